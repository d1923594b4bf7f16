package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/vk/brainjit/internal/ctxlog"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("engine is closed")

// Engine runs the functions of one module against its own memory.
// An Engine is not safe for concurrent use.
type Engine struct {
	mem     []byte
	release func() error
	globals map[string]slot
	funcs   map[string]*function

	stdin    *bufio.Reader
	stdout   *bufio.Writer
	maxSteps uint64
	steps    uint64
	logger   *slog.Logger
	closed   bool
}

type settings struct {
	stdin    io.Reader
	stdout   io.Writer
	maxSteps uint64
}

// Option configures an Engine.
type Option func(*settings)

// WithStdin sets the stream read by getchar. Defaults to os.Stdin.
func WithStdin(r io.Reader) Option {
	return func(s *settings) { s.stdin = r }
}

// WithStdout sets the stream written by putchar. Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(s *settings) { s.stdout = w }
}

// WithMaxSteps limits the number of branches a single Run may take.
// Zero means no limit.
func WithMaxSteps(n uint64) Option {
	return func(s *settings) { s.maxSteps = n }
}

// New prepares m for execution. The module must not be modified afterwards.
func New(m *ir.Module, opts ...Option) (*Engine, error) {
	s := settings{stdin: os.Stdin, stdout: os.Stdout}
	for _, opt := range opts {
		opt(&s)
	}

	slots, size, err := layout(m)
	if err != nil {
		return nil, err
	}
	mem, release, err := allocate(size)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		mem:      mem,
		release:  release,
		globals:  make(map[string]slot, len(slots)),
		funcs:    make(map[string]*function, len(m.Funcs)),
		stdin:    bufio.NewReader(s.stdin),
		stdout:   bufio.NewWriter(s.stdout),
		maxSteps: s.maxSteps,
		logger:   slog.Default(),
	}
	if err := e.load(m, slots); err != nil {
		_ = release()
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(m *ir.Module, slots map[*ir.Global]slot) error {
	if err := initialise(m, slots, e.mem); err != nil {
		return err
	}
	for g, s := range slots {
		e.globals[g.Name()] = s
	}

	byFunc := make(map[*ir.Func]*function, len(m.Funcs))
	for _, f := range m.Funcs {
		fn := &function{name: f.Name(), params: len(f.Params)}
		if f.Sig != nil && !types.Equal(f.Sig.RetType, types.Void) {
			bits, err := bitsOf(f.Sig.RetType)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Ident(), err)
			}
			fn.retBits = bits
		}
		if len(f.Blocks) == 0 {
			p, ok := primitives[f.Name()]
			if !ok {
				return fmt.Errorf("declaration %s has no host implementation", f.Ident())
			}
			if p.params != fn.params {
				return fmt.Errorf("declaration %s takes %d parameter(s), host implementation takes %d", f.Ident(), fn.params, p.params)
			}
			fn.host = p.fn
		}
		byFunc[f] = fn
		e.funcs[fn.name] = fn
	}
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}
		if err := lowerFunc(f, byFunc[f], slots, byFunc); err != nil {
			return err
		}
	}
	return nil
}

// Run calls the named function with args and returns its result,
// sign-extended from the function's return width. Missing arguments are
// zero. Buffered program output is flushed before Run returns.
func (e *Engine) Run(ctx context.Context, name string, args ...uint64) (result int64, err error) {
	if e.closed {
		return 0, ErrClosed
	}
	fn, ok := e.funcs[name]
	if !ok {
		return 0, fmt.Errorf("no function @%s in module", name)
	}
	if len(args) > fn.params {
		return 0, fmt.Errorf("@%s takes %d argument(s), got %d", name, fn.params, len(args))
	}
	full := make([]uint64, fn.params)
	copy(full, args)

	e.logger = ctxlog.FromContext(ctx)
	e.logger.Debug("Running function.", "func", name, "args", len(args))
	e.steps = 0
	defer func() {
		if ferr := e.stdout.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("failed to flush program output: %w", ferr)
		}
		e.logger.Debug("Function returned.", "func", name, "branches", e.steps, "error", err)
	}()

	r, err := e.invoke(ctx, fn, full, 0)
	if err != nil {
		return 0, err
	}
	return signExtend(r, fn.retBits), nil
}

// Global returns the memory backing the named global. The slice aliases
// engine memory and is only valid until Close.
func (e *Engine) Global(name string) ([]byte, bool) {
	s, ok := e.globals[name]
	if !ok || e.closed {
		return nil, false
	}
	return e.mem[s.off : s.off+s.size : s.off+s.size], true
}

// Close releases the engine's memory. It is safe to call more than once.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.mem = nil
	return e.release()
}
