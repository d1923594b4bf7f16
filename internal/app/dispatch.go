package app

import (
	"context"
	"io"

	"github.com/llir/llvm/ir"

	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/config"
	"github.com/vk/brainjit/internal/ctxlog"
	"github.com/vk/brainjit/internal/engine"
	"github.com/vk/brainjit/internal/fsutil"
)

// dispatch sends a verified module to the configured output.
func (a *App) dispatch(ctx context.Context, m *ir.Module, s *config.Settings) error {
	logger := ctxlog.FromContext(ctx)
	switch a.config.Mode() {
	case ModeWrite:
		write := func(w io.Writer) error { return a.backend.Print(w, m) }
		if err := fsutil.WriteFileAtomic(a.config.OutputPath, write); err != nil {
			return &compiler.Error{Kind: compiler.KindBackend, Err: err}
		}
		logger.Info("Module written.", "path", a.config.OutputPath)
	case ModePrint:
		if err := a.backend.Print(a.streams.Out, m); err != nil {
			return &compiler.Error{Kind: compiler.KindBackend, Err: err}
		}
	case ModeJIT:
		code, err := a.backend.Execute(ctx, m, compiler.EntryUnit,
			engine.WithStdin(a.streams.In),
			engine.WithStdout(a.streams.Out),
			engine.WithMaxSteps(s.Engine.MaxSteps),
		)
		if err != nil {
			return &compiler.Error{Kind: compiler.KindBackend, Err: err}
		}
		logger.Debug("Program finished.", "exit_code", code)
	default:
		logger.Info("Module verified.", "input", a.config.InputPath)
	}
	return nil
}
