package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"

	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/ctxlog"
	"github.com/vk/brainjit/internal/engine"
	"github.com/vk/brainjit/internal/irutil"
	"github.com/vk/brainjit/internal/irverify"
	"github.com/vk/brainjit/internal/passes"
)

// Native provides IR services implemented in this module.
type Native struct{}

var _ compiler.Backend = (*Native)(nil)

// New returns a Native backend.
func New() *Native {
	return &Native{}
}

// NewPipeline builds an optimization pipeline from pass names.
func (n *Native) NewPipeline(names []string) (compiler.Pipeline, error) {
	p, err := passes.NewPipeline(names...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Verify checks m for structural and type errors.
func (n *Native) Verify(m *ir.Module) error {
	return irverify.Verify(m)
}

// Parse reads a module from its textual form. name is used in error messages.
func (n *Native) Parse(name, text string) (*ir.Module, error) {
	m, err := asm.ParseString(name, text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse module %s: %w", name, err)
	}
	return m, nil
}

// Print writes the textual form of m to w.
func (n *Native) Print(w io.Writer, m *ir.Module) error {
	if _, err := io.WriteString(w, n.Text(m)); err != nil {
		return fmt.Errorf("failed to write module: %w", err)
	}
	return nil
}

// Text returns the textual form of m. Local value numbers are assigned
// afresh, so modules that were optimized after an earlier print come out
// densely numbered.
func (n *Native) Text(m *ir.Module) string {
	for _, f := range m.Funcs {
		irutil.ResetLocalIDs(f)
	}
	return m.String()
}

// Execute runs the entry function of m in a fresh engine and returns its
// result.
func (n *Native) Execute(ctx context.Context, m *ir.Module, entry string, opts ...engine.Option) (int64, error) {
	logger := ctxlog.FromContext(ctx)
	e, err := engine.New(m, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare module for execution: %w", err)
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logger.Warn("Failed to release engine memory.", "error", cerr)
		}
	}()
	logger.Debug("Engine ready.", "entry", entry)
	code, err := e.Run(ctx, entry)
	if err != nil {
		return code, fmt.Errorf("execution of @%s failed: %w", entry, err)
	}
	return code, nil
}
