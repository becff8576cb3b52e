package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/habits/internal/auth"
	"github.com/mesh-intelligence/habits/internal/habits"
	"github.com/mesh-intelligence/habits/internal/logging"
	"github.com/mesh-intelligence/habits/internal/metrics"
	"github.com/mesh-intelligence/habits/internal/paths"
	"github.com/mesh-intelligence/habits/internal/remote"
	"github.com/mesh-intelligence/habits/internal/sqlite"
	"github.com/mesh-intelligence/habits/pkg/types"
)

// runtime is the opened store: configuration, logger, backend and the
// coordinator in front of it.
type runtime struct {
	cfg        types.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics.OpMetric
	coord      *habits.Coordinator
	handlePath string
	handle     types.StoreHandle // as loaded from handlePath
	cancel     context.CancelFunc
	closers    []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// opsReported lists the operations --stats prints.
var opsReported = []string{
	habits.OpLoad, habits.OpCreate, habits.OpUpdate, habits.OpDelete, habits.OpArchive,
	habits.OpTrack, habits.OpArchiveMany, habits.OpBatchDelete,
}

// resolveConfig loads config.yaml and applies flag overrides.
func (a *app) resolveConfig() (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, "", err
	}
	if a.flags.backend != "" {
		v.Set(cfgKeyBackend, a.flags.backend)
	}
	if a.flags.logLevel != "" {
		v.Set(cfgKeyLogLevel, a.flags.logLevel)
	}
	cfg, err := decodeConfig(v)
	if err != nil {
		return types.Config{}, "", err
	}

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return types.Config{}, "", &types.StoreError{Kind: types.KindValidation, Op: "config", Message: err.Error(), Err: err}
	}
	return cfg, configDir, nil
}

// open builds the runtime on first use. Later calls return the same one.
func (a *app) open(cmd *cobra.Command) (*runtime, error) {
	if a.rt != nil {
		return a.rt, nil
	}
	cfg, _, err := a.resolveConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, &types.StoreError{Kind: types.KindValidation, Op: "config", Message: err.Error(), Err: err}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		cancel:   cancel,
		closers:  []io.Closer{logCloser},
	}
	rt.metrics = metrics.NewOpMetric(rt.registry, "habit_ops", "op")

	backend, diag, err := rt.openBackend(ctx)
	if err != nil {
		rt.close()
		return nil, err
	}

	rt.coord = habits.New(habits.Options{
		Backend:    backend,
		Schema:     cfg.Schema(),
		Diagnoser:  diag,
		Logger:     logger,
		Metrics:    rt.metrics,
		Clock:      a.clock,
		BatchLimit: cfg.BatchLimit,
	})

	rt.handlePath, _ = paths.ResolveFile("", cfg.DataDir, paths.HandleFileName)
	if h, ok := loadHandle(rt.handlePath, logger); ok {
		if err := rt.coord.UseHandle(ctx, h); err != nil {
			logger.Warn("stored handle rejected, provisioning again",
				slog.String("folder", h.FolderID),
				slog.String("sheet", h.SheetID),
				slog.Any("error", err))
		} else {
			rt.handle = h
		}
	}

	a.rt = rt
	return rt, nil
}

// openBackend attaches the configured backend. The remote backend gets a
// token-file diagnoser, watched until the runtime closes.
func (rt *runtime) openBackend(ctx context.Context) (types.Tabular, types.Diagnoser, error) {
	switch rt.cfg.Backend {
	case types.BackendSQLite:
		b := sqlite.NewBackend()
		if err := b.Attach(rt.cfg); err != nil {
			return nil, nil, fmt.Errorf("attach backend: %w", err)
		}
		rt.closers = append(rt.closers, closerFunc(b.Detach))
		return b, nil, nil

	case types.BackendRemote:
		client := remote.New(remote.Options{
			DriveURL:  rt.cfg.DriveURL,
			SheetsURL: rt.cfg.SheetsURL,
			Token:     rt.cfg.AccessToken,
			Timeout:   rt.cfg.Timeout,
		})
		tf := auth.NewTokenFile(rt.cfg.TokenFile, rt.cfg.AccessToken, client.SetToken, rt.logger)
		if rt.cfg.TokenFile == "" {
			return client, tf, nil
		}
		if rt.cfg.AccessToken == "" {
			if _, err := tf.Reload(); err != nil {
				rt.logger.Warn("token file unreadable", slog.String("path", rt.cfg.TokenFile), slog.Any("error", err))
			}
		}
		go func() {
			if err := tf.Watch(ctx, nil); err != nil {
				rt.logger.Debug("token watch stopped", slog.Any("error", err))
			}
		}()
		return client, tf, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, rt.cfg.Backend)
	}
}

// close persists a newly provisioned handle and releases resources.
func (rt *runtime) close() error {
	var errs []error
	if rt.coord != nil {
		if h := rt.coord.Handle(); !h.IsZero() && h != rt.handle {
			if err := saveHandle(rt.handlePath, h); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if rt.cancel != nil {
		rt.cancel()
	}
	for _, c := range slices.Backward(rt.closers) {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// close closes the runtime if a command opened one and prints
// statistics when --stats is set.
func (a *app) close(cmd *cobra.Command) error {
	if a.rt == nil {
		return nil
	}
	if a.flags.stats {
		w := cmd.ErrOrStderr()
		for _, op := range opsReported {
			if a.rt.metrics.Count(metrics.ResultAll, op) == 0 {
				continue
			}
			fmt.Fprintf(w, "%-14s %s\n", op, a.rt.metrics.String(op))
		}
	}
	err := a.rt.close()
	a.rt = nil
	return err
}

// loadHandle reads a stored handle. A missing or unreadable file yields
// false.
func loadHandle(path string, logger *slog.Logger) (types.StoreHandle, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("reading stored handle", slog.Any("error", err))
		}
		return types.StoreHandle{}, false
	}
	var h types.StoreHandle
	if err := yaml.Unmarshal(data, &h); err != nil {
		logger.Warn("decoding stored handle", slog.Any("error", err))
		return types.StoreHandle{}, false
	}
	return h, !h.IsZero()
}

func saveHandle(path string, h types.StoreHandle) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal handle: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create handle dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
