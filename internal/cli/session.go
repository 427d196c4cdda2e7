package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raytheonbbn/parliament-sub002/internal/config"
	"github.com/raytheonbbn/parliament-sub002/internal/engine"
	"github.com/raytheonbbn/parliament-sub002/internal/store"
)

// session is an open store and engine built from the configuration file.
type session struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// newLogger logs to stderr at info, or debug with --verbose.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	w := cmd.ErrOrStderr()
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession loads the configuration, opens the store and registers the
// configured indexes, rebuilding them from the store.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(opts, cmd)

	logger.Debug("opening store", "path", cfg.StorePath())
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	eng := engine.New(st, cfg.EngineOptions(logger)...)
	for _, def := range cfg.Definitions() {
		if err := eng.CreateIndex(ctx, def); err != nil {
			_ = eng.Close()
			_ = st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open index "+def.Name, err)
		}
	}
	return &session{cfg: cfg, store: st, engine: eng, logger: logger}, nil
}

func (s *session) Close() {
	if err := s.engine.Close(); err != nil {
		s.logger.Error("error closing indexes", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
