package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/cache"
	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/engine"
	"github.com/vk/brainjit/internal/hcl_adapter"
)

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.b")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func newTestApp(t *testing.T, cfg Config, input string) (*App, TestStreams) {
	t.Helper()
	c, err := NewConfig(cfg)
	require.NoError(t, err)
	return SetupAppTest(t, c, hcl_adapter.NewLoader(), input)
}

func TestRun_JIT(t *testing.T) {
	tests := []struct {
		name     string
		optimize bool
	}{
		{name: "plain"},
		{name: "optimized", optimize: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			input := writeProgram(t, "++++++[->++++<]>.")
			a, streams := newTestApp(t, Config{InputPath: input, JIT: true, Optimize: tc.optimize}, "")

			// Act
			err := a.Run(context.Background())

			// Assert
			require.NoError(t, err)
			assert.Equal(t, "\x18", streams.Out.String())
		})
	}
}

func TestRun_JITReadsInput(t *testing.T) {
	input := writeProgram(t, ",[.,]")
	a, streams := newTestApp(t, Config{InputPath: input, JIT: true}, "echo\x00")

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, "echo", streams.Out.String())
}

func TestRun_Print(t *testing.T) {
	input := writeProgram(t, "+.")
	a, streams := newTestApp(t, Config{InputPath: input, Print: true}, "")

	require.NoError(t, a.Run(context.Background()))

	out := streams.Out.String()
	assert.Contains(t, out, "define void @brain()")
	assert.Contains(t, out, "define i32 @main(i32 %argc, i8** %argv)")
}

func TestRun_Write(t *testing.T) {
	// Arrange
	input := writeProgram(t, "+.")
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "prog.ll")
	a, streams := newTestApp(t, Config{InputPath: input, OutputPath: outPath}, "")

	// Act
	err := a.Run(context.Background())

	// Assert
	require.NoError(t, err)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "@tape = global [655360 x i8] zeroinitializer")
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files may be left behind")
	assert.Empty(t, streams.Out.String())
}

func TestRun_CheckOnly(t *testing.T) {
	input := writeProgram(t, "+")
	a, streams := newTestApp(t, Config{InputPath: input}, "")

	require.NoError(t, a.Run(context.Background()))

	assert.Empty(t, streams.Out.String())
	assert.Contains(t, streams.Err.String(), "Module verified.")
}

func TestRun_SyntaxErrorLeavesNoArtifact(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unmatched open", src: "+[+"},
		{name: "unmatched close", src: "+]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			input := writeProgram(t, tc.src)
			outDir := t.TempDir()
			outPath := filepath.Join(outDir, "prog.ll")
			a, _ := newTestApp(t, Config{InputPath: input, OutputPath: outPath}, "")

			// Act
			err := a.Run(context.Background())

			// Assert
			require.Error(t, err)
			assert.Equal(t, ExitSyntax, ExitCode(err))
			entries, err := os.ReadDir(outDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRun_ErrorExitCodes(t *testing.T) {
	nesting := 1
	steps := uint64(50)
	tests := []struct {
		name     string
		src      string
		settings string
		cfg      Config
		want     int
	}{
		{name: "missing input", cfg: Config{InputPath: "/does/not/exist.b"}, want: ExitInput},
		{name: "nesting limit", src: "[[]]", cfg: Config{MaxNesting: &nesting}, want: ExitResource},
		{name: "step limit", src: "+[]", cfg: Config{JIT: true, MaxSteps: &steps}, want: ExitBackend},
		{name: "engine step limit from settings", src: "+[]", settings: "engine {\n  max_steps = 10\n}\n", cfg: Config{JIT: true}, want: ExitBackend},
		{name: "broken settings", src: "+", settings: "tape {", want: ExitUsage},
		{name: "head outside tape", src: "+", settings: "tape {\n  size = 4\n  head = 9\n}\n", want: ExitUsage},
		{name: "unknown pass", src: "+", settings: "optimizer {\n  passes = [\"unroll\"]\n}\n", want: ExitBackend},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			cfg := tc.cfg
			if cfg.InputPath == "" {
				cfg.InputPath = writeProgram(t, tc.src)
			}
			if tc.settings != "" {
				cfg.ConfigPath = filepath.Join(t.TempDir(), "brainjit.hcl")
				require.NoError(t, os.WriteFile(cfg.ConfigPath, []byte(tc.settings), 0o600))
			}
			a, _ := newTestApp(t, cfg, "")

			// Act
			err := a.Run(context.Background())

			// Assert
			require.Error(t, err)
			assert.Equal(t, tc.want, ExitCode(err), "error: %v", err)
		})
	}
}

func TestRun_StepLimitIsReported(t *testing.T) {
	steps := uint64(5)
	a, _ := newTestApp(t, Config{InputPath: writeProgram(t, "+[]"), JIT: true, MaxSteps: &steps}, "")

	err := a.Run(context.Background())

	assert.ErrorIs(t, err, engine.ErrStepLimit)
}

func TestRun_Cache(t *testing.T) {
	// Arrange
	input := writeProgram(t, "++++++[->++++<]>.")
	cachePath := filepath.Join(t.TempDir(), "cache.db")
	first, firstStreams := newTestApp(t, Config{InputPath: input, JIT: true, CachePath: cachePath}, "")
	second, secondStreams := newTestApp(t, Config{InputPath: input, JIT: true, CachePath: cachePath}, "")

	// Act
	require.NoError(t, first.Run(context.Background()))
	require.NoError(t, second.Run(context.Background()))

	// Assert
	assert.Contains(t, firstStreams.Err.String(), "Cache miss.")
	assert.Contains(t, secondStreams.Err.String(), "Cache hit.")
	assert.Equal(t, "\x18", firstStreams.Out.String())
	assert.Equal(t, "\x18", secondStreams.Out.String())
}

func TestRun_InvalidCacheEntryIsRecompiled(t *testing.T) {
	// Arrange
	src := "+."
	input := writeProgram(t, src)
	cachePath := filepath.Join(t.TempDir(), "cache.db")
	c, err := cache.Open(context.Background(), cachePath)
	require.NoError(t, err)
	_, err = c.Put(context.Background(), cache.Key([]byte(src), compiler.DefaultOptions().Fingerprint()), "not a module")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	a, streams := newTestApp(t, Config{InputPath: input, JIT: true, CachePath: cachePath}, "")

	// Act
	err = a.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Contains(t, streams.Err.String(), "Discarding invalid cache entry.")
	assert.Equal(t, "\x01", streams.Out.String())
}

func TestNewConfig(t *testing.T) {
	negative := -1
	var zero uint32
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "no input", cfg: Config{}, want: "an input program is required"},
		{name: "two modes", cfg: Config{InputPath: "p.b", Print: true, JIT: true}, want: "mutually exclusive"},
		{name: "output and print", cfg: Config{InputPath: "p.b", OutputPath: "p.ll", Print: true}, want: "mutually exclusive"},
		{name: "negative nesting", cfg: Config{InputPath: "p.b", MaxNesting: &negative}, want: "max-nesting must not be negative"},
		{name: "zero tape", cfg: Config{InputPath: "p.b", TapeSize: &zero}, want: "tape-size must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)

			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestConfigMode(t *testing.T) {
	assert.Equal(t, ModeCheck, (&Config{}).Mode())
	assert.Equal(t, ModeWrite, (&Config{OutputPath: "x"}).Mode())
	assert.Equal(t, ModePrint, (&Config{Print: true}).Mode())
	assert.Equal(t, ModeJIT, (&Config{JIT: true}).Mode())
	assert.Equal(t, "jit", ModeJIT.String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitSyntax, ExitCode(&compiler.Error{Kind: compiler.KindSyntax}))
	assert.Equal(t, ExitVerification, ExitCode(&compiler.Error{Kind: compiler.KindVerification}))
	assert.Equal(t, ExitUsage, ExitCode(ErrInvalidSettings))
}
