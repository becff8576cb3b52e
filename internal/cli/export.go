package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/habits/internal/jsonl"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// Export formats.
const (
	formatJSONL = "jsonl"
	formatYAML  = "yaml"
)

func newExportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export every habit as JSONL or YAML",
		Long: `Export writes every habit, archived ones included, to file or stdout.
JSONL files are replaced atomically.

Example:
  habits export habits.jsonl
  habits export --format yaml > habits.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSONL && format != formatYAML {
				return invalid("export", "invalid format %q (valid: jsonl, yaml)", format)
			}
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			res := rt.coord.Load(cmd.Context())
			if !res.Success {
				return resultError("export", res)
			}

			if len(args) == 0 || args[0] == "-" {
				return writeHabits(cmd.OutOrStdout(), format, res.Data)
			}
			if format == formatJSONL {
				if err := jsonl.WriteHabits(args[0], res.Data); err != nil {
					return err
				}
			} else {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create %s: %w", args[0], err)
				}
				if err := writeHabits(f, format, res.Data); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d habits to %s\n", len(res.Data), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSONL, "output format: jsonl or yaml")
	return cmd
}

func writeHabits(w io.Writer, format string, habits []types.Habit) error {
	if format == formatYAML {
		docs := make([]types.HabitDocument, len(habits))
		for i, h := range habits {
			docs[i] = h.Document()
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	for _, h := range habits {
		if err := enc.Encode(h); err != nil {
			return fmt.Errorf("encode habit %s: %w", h.ID, err)
		}
	}
	return nil
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import habits from a JSONL or YAML export",
		Long: `Import creates a habit for each record in file. Records keep their id,
fields and tracking; ids already in the store are skipped.
Files ending in .yaml or .yml are read as YAML, anything else as JSONL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			habits, skipped, err := readHabits(args[0])
			if err != nil {
				return err
			}
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			if res := rt.coord.Load(cmd.Context()); !res.Success {
				return resultError("import", res)
			}

			imported := 0
			for _, h := range habits {
				if _, exists := rt.coord.Habit(h.ID); exists {
					skipped++
					continue
				}
				res := rt.coord.Create(cmd.Context(), h)
				if !res.Success {
					return resultError("import "+h.ID, res)
				}
				imported++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d habits, skipped %d\n", imported, skipped)
			return nil
		},
	}
}

// readHabits reads an export file, counting records that fail to decode.
func readHabits(path string) ([]types.Habit, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", path, err)
		}
		var docs []types.HabitDocument
		if err := yaml.Unmarshal(data, &docs); err != nil {
			return nil, 0, invalid("import", "decode %s: %s", path, err)
		}
		var (
			out     []types.Habit
			skipped int
		)
		for _, d := range docs {
			h, err := d.Habit()
			if err != nil || h.Validate() != nil {
				skipped++
				continue
			}
			out = append(out, h)
		}
		return out, skipped, nil
	default:
		return jsonl.ReadHabits(path)
	}
}
