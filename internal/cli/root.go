// Package cli implements the habits command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	logLevel  string
	jsonMode  bool
	stats     bool
}

// app is the state of one invocation: global flags, the clock and the
// store runtime, opened on demand by commands that need it.
type app struct {
	flags rootFlags
	clock func() time.Time
	rt    *runtime
}

// NewRootCmd creates the top-level "habits" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{clock: time.Now})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "habits",
		Short: "Track good and bad habits in a spreadsheet-shaped store",
		Long: "habits keeps habit records, one row each, in a spreadsheet tab.\n" +
			"The store is a local SQLite file or a remote Drive folder and Sheets spreadsheet.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.StringVar(&a.flags.backend, "backend", "", "backend: sqlite or remote (overrides config.yaml)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVar(&a.flags.stats, "stats", false, "print operation statistics to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newTrackCmd(a),
		newArchiveCmd(a, true),
		newArchiveCmd(a, false),
		newDeleteCmd(a),
		newBatchCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	a := &app{clock: time.Now}
	root := newRootCmd(a)
	if err := run(a, root); err != nil {
		os.Exit(report(root.ErrOrStderr(), err))
	}
}

// run executes root and closes the runtime whether or not the command
// succeeded.
func run(a *app, root *cobra.Command) error {
	err := root.Execute()
	return errors.Join(err, a.close(root))
}

// report prints err and returns its exit code. Validation and not-found
// failures are the user's; every other store failure is a system error.
func report(w io.Writer, err error) int {
	fmt.Fprintln(w, "habits:", err)

	var se *types.StoreError
	if !errors.As(err, &se) {
		return exitUserError
	}
	switch se.Kind {
	case types.KindValidation, types.KindNotFound:
		return exitUserError
	default:
		return exitSysError
	}
}
