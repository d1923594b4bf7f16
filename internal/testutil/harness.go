// Package testutil holds the compile-and-run harness shared by tests that
// exercise the compiler end to end.
package testutil

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/backend"
	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/engine"
	"github.com/vk/brainjit/internal/source"
)

// DefaultMaxSteps bounds every harness run so a broken loop fails the test
// instead of hanging it.
const DefaultMaxSteps = 1 << 24

// Compile compiles src with opts through a fresh session and the native backend.
func Compile(t *testing.T, src string, opts compiler.Options) (*compiler.Session, *ir.Module, error) {
	t.Helper()
	s := compiler.NewSession(opts, backend.New())
	m, err := s.Compile(context.Background(), source.NewScanner(strings.NewReader(src), ""))
	return s, m, err
}

// MustCompile is Compile with default options that fails the test on error.
func MustCompile(t *testing.T, src string) (*compiler.Session, *ir.Module) {
	t.Helper()
	s, m, err := Compile(t, src, compiler.DefaultOptions())
	require.NoError(t, err)
	return s, m
}

// Result is the observable outcome of running a module.
type Result struct {
	Output string
	Exit   int64
	Tape   []byte
	Head   uint32
}

// Run executes the entry unit of m with input on stdin and captures the
// program output together with the final tape and head.
func Run(t *testing.T, m *ir.Module, input string) Result {
	t.Helper()
	var out bytes.Buffer
	e, err := engine.New(m,
		engine.WithStdin(strings.NewReader(input)),
		engine.WithStdout(&out),
		engine.WithMaxSteps(DefaultMaxSteps),
	)
	require.NoError(t, err)
	defer e.Close()

	code, err := e.Run(context.Background(), compiler.EntryUnit)
	require.NoError(t, err)

	tape, ok := e.Global("tape")
	require.True(t, ok, "module has no @tape")
	head, ok := e.Global("head")
	require.True(t, ok, "module has no @head")
	return Result{
		Output: out.String(),
		Exit:   code,
		Tape:   bytes.Clone(tape),
		Head:   binary.LittleEndian.Uint32(head),
	}
}
