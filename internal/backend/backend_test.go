package backend

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/engine"
	"github.com/vk/brainjit/internal/source"
)

func compileProgram(t *testing.T, src string, passes ...string) *ir.Module {
	t.Helper()
	opts := compiler.DefaultOptions()
	opts.Passes = passes
	opts.ModuleName = "prog.b"
	s := compiler.NewSession(opts, New())
	_, err := s.Compile(context.Background(), source.NewScanner(strings.NewReader(src), "prog.b"))
	require.NoError(t, err)
	m, err := s.Release()
	require.NoError(t, err)
	return m
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		passes []string
	}{
		{name: "plain"},
		{name: "optimized", passes: []string{"peephole", "reassociate", "cse", "simplifycfg"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			be := New()
			m := compileProgram(t, "++++++[->++++<]>.", tc.passes...)
			var buf bytes.Buffer

			// Act
			require.NoError(t, be.Print(&buf, m))
			parsed, err := be.Parse("roundtrip.ll", buf.String())

			// Assert
			require.NoError(t, err)
			require.NoError(t, be.Verify(parsed))
			assert.Equal(t, buf.String(), be.Text(parsed))

			var out bytes.Buffer
			code, err := be.Execute(context.Background(), parsed, compiler.EntryUnit, engine.WithStdout(&out))
			require.NoError(t, err)
			assert.Equal(t, int64(0), code)
			assert.Equal(t, []byte{24}, out.Bytes())
		})
	}
}

func TestText_ContainsDeclarations(t *testing.T) {
	m := compileProgram(t, ",.")

	text := New().Text(m)

	assert.Contains(t, text, "@tape = global [655360 x i8] zeroinitializer")
	assert.Contains(t, text, "@head = global i32 0")
	assert.Contains(t, text, "declare i32 @getchar()")
	assert.Contains(t, text, "declare i32 @putchar(i32")
	assert.Contains(t, text, "define void @brain()")
	assert.Contains(t, text, "define i32 @main(i32 %argc, i8** %argv)")
	assert.Contains(t, text, `source_filename = "prog.b"`)
}

func TestParse_Invalid(t *testing.T) {
	_, err := New().Parse("bad.ll", "define void @f( {")

	assert.ErrorContains(t, err, "failed to parse module bad.ll")
}

func TestExecute_UnknownEntry(t *testing.T) {
	m := compileProgram(t, "+")

	_, err := New().Execute(context.Background(), m, "start")

	assert.ErrorContains(t, err, "execution of @start failed")
}

func TestNewPipeline_UnknownPass(t *testing.T) {
	_, err := New().NewPipeline([]string{"licm"})

	assert.ErrorContains(t, err, `unknown optimization pass "licm"`)
}
