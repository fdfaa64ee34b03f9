package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/catalog"
	"github.com/roach88/shopstate/internal/config"
	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/store"
)

// Session is an opened database with a loaded engine.
type Session struct {
	Config config.Config
	Store  *store.Store
	Engine *engine.Engine
	Out    *OutputFormatter
}

// cliDefaults are the configuration defaults for command-line use. Each
// invocation is a new process, so the cart and wishlist are persisted.
func cliDefaults() config.Config {
	cfg := config.Default()
	cfg.PersistSession = true
	cfg.LogLevel = "warn"
	return cfg
}

// resolveConfig loads defaults, the config file and the environment, then
// applies the global flags the user set explicitly.
func resolveConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadFrom(cliDefaults(), opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("catalog") {
		cfg.Catalog = opts.Catalog
	}
	if flags.Changed("persist-session") {
		cfg.PersistSession = opts.PersistSession
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// setupLogging installs the default slog handler on the command's stderr.
func setupLogging(cfg config.Config, cmd *cobra.Command) {
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Level(),
	})
	slog.SetDefault(slog.New(handler))
}

// formatter returns the output formatter for cmd.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession resolves configuration, opens the database and catalog, and
// loads the engine. Load failures are logged and the engine starts from
// whatever could be read, except for the order ledger: an unreadable ledger
// is a command error.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, extra ...engine.Option) (*Session, error) {
	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg, cmd)

	var src catalog.Source = catalog.NewStatic()
	if cfg.Catalog != "" {
		s, err := catalog.LoadFile(cfg.Catalog)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
		src = s
	}

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engOpts := []engine.Option{
		engine.WithPersistSession(cfg.PersistSession),
		engine.WithRecentLimit(cfg.RecentLimit),
		engine.WithFlushInterval(cfg.FlushInterval),
	}
	eng := engine.New(st, src, append(engOpts, extra...)...)
	if err := eng.Load(ctx); err != nil {
		if eng.Ledger().Stale() {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load order ledger", err)
		}
		slog.Warn("engine load incomplete", "error", err)
	}

	return &Session{
		Config: cfg,
		Store:  st,
		Engine: eng,
		Out:    formatter(opts, cmd),
	}, nil
}

// Close retries pending writes and closes the database.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.Engine.Pending() {
		if err := s.Engine.Flush(ctx); err != nil {
			slog.Error("pending writes lost", "error", err)
			errs = append(errs, err)
		}
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// fail reports err in the configured format and returns the ExitError that
// carries its exit code. Domain errors exit 1, everything else 2.
func (s *Session) fail(err error) error {
	code := ExitCommandError
	if model.CodeOf(err) != "" && !errors.Is(err, model.ErrInvalidArgument) {
		code = ExitFailure
	}
	if s.Out.Format == "json" {
		if werr := s.Out.Error(ErrorCode(err), err.Error(), nil); werr != nil {
			return werr
		}
	}
	return WrapExitError(code, "command failed", err)
}

// execute runs one engine command and renders the view built from the result.
func execute(opts *RootOptions, cmd *cobra.Command, c engine.Command, view func(*Session, engine.Result) any) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(ctx); cerr != nil && err == nil {
			err = WrapExitError(ExitFailure, "failed to persist state", cerr)
		}
	}()

	res, err := s.Engine.Execute(ctx, c)
	if err != nil {
		return s.fail(err)
	}
	return s.Out.SuccessWithWarning(view(s, res), res.Warning)
}

// show renders a read-only view without executing a command.
func show(opts *RootOptions, cmd *cobra.Command, view func(*Session) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	data, err := view(s)
	if err != nil {
		return s.fail(err)
	}
	return s.Out.Success(data)
}
