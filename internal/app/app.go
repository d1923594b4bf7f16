package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/brainjit/internal/backend"
	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/config"
	"github.com/vk/brainjit/internal/ctxlog"
)

// Streams are the process streams the app reads and writes.
type Streams struct {
	// In feeds the running program's getchar.
	In io.Reader
	// Out receives printed modules and program output.
	Out io.Writer
	// Err receives logs and diagnostics.
	Err io.Writer
}

// App encapsulates the application's dependencies and configuration.
type App struct {
	streams Streams
	config  *Config
	logger  *slog.Logger
	loader  config.Loader
	backend *backend.Native
}

// NewApp is the constructor for the main application. The logger writes to
// streams.Err so that program output on streams.Out stays clean.
func NewApp(streams Streams, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg, streams.Err)
	logger.Debug("Logger configured successfully.")
	return &App{
		streams: streams,
		config:  cfg,
		logger:  logger,
		loader:  loader,
		backend: backend.New(),
	}
}

// Run compiles the configured program and dispatches the result.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "input", a.config.InputPath, "mode", a.config.Mode().String())

	settings, err := a.loader.Load(ctx, a.config.ConfigPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	a.merge(settings)

	opts := a.options(settings)
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	m, err := a.build(ctx, opts, settings.Cache.Path)
	if err != nil {
		return err
	}

	if err := a.dispatch(ctx, m, settings); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// merge applies command-line overrides to the loaded settings.
func (a *App) merge(s *config.Settings) {
	c := a.config
	if c.TapeSize != nil {
		s.Tape.Size = *c.TapeSize
	}
	if c.MaxNesting != nil {
		s.Compiler.MaxNesting = *c.MaxNesting
	}
	if c.MaxSteps != nil {
		s.Engine.MaxSteps = *c.MaxSteps
	}
	if c.Optimize {
		s.Optimizer.Enabled = true
	}
	if c.CachePath != "" {
		s.Cache.Path = c.CachePath
	}
}

func (a *App) options(s *config.Settings) compiler.Options {
	opts := compiler.DefaultOptions()
	opts.TapeSize = s.Tape.Size
	opts.HeadStart = s.Tape.Head
	opts.MaxNesting = s.Compiler.MaxNesting
	opts.Passes = s.ActivePasses()
	opts.ModuleName = a.config.InputPath
	return opts
}
