package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/app"
	"github.com/vk/brainjit/internal/cli"
)

type buffers struct {
	out bytes.Buffer
	err bytes.Buffer
}

func (b *buffers) streams(input string) app.Streams {
	return app.Streams{In: strings.NewReader(input), Out: &b.out, Err: &b.err}
}

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.b")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "expected *cli.ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestRun_ShouldExit(t *testing.T) {
	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	var b buffers

	// --- Act ---
	err := run(context.Background(), b.streams(""), []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, b.err.String(), "Usage:", "Expected help text to be printed")
}

func TestRun_ParseError(t *testing.T) {
	var b buffers

	err := run(context.Background(), b.streams(""), []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
	assert.Equal(t, app.ExitUsage, exitCode(t, err))
}

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		args     []string
		wantOut  string
		wantCode int
		wantErr  string
	}{
		{name: "increment and print", src: "+.", args: []string{"-jit"}, wantOut: "\x01"},
		{name: "multiply loop", src: "++++++[->++++<]>.", args: []string{"-jit"}, wantOut: "\x18"},
		{name: "multiply loop optimized", src: "++++++[->++++<]>.", args: []string{"-jit", "-opt"}, wantOut: "\x18"},
		{name: "unmatched open", src: "[", args: []string{"-jit"}, wantCode: app.ExitSyntax, wantErr: "unmatched '['"},
		{name: "unmatched close", src: "]", args: []string{"-jit"}, wantCode: app.ExitSyntax, wantErr: "unmatched ']'"},
		{name: "check only", src: ">>>+<<<-", wantOut: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			var b buffers
			args := append(append([]string{"-log-level", "error"}, tc.args...), writeProgram(t, tc.src))

			// --- Act ---
			err := run(context.Background(), b.streams(""), args)

			// --- Assert ---
			if tc.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tc.wantCode, exitCode(t, err))
				assert.Contains(t, err.Error(), tc.wantErr)
				assert.Empty(t, b.out.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOut, b.out.String())
		})
	}
}

func TestRun_PrintThenReparseViaOutputFile(t *testing.T) {
	// --- Arrange ---
	input := writeProgram(t, "++++++[->++++<]>.")
	outPath := filepath.Join(t.TempDir(), "prog.ll")
	var printed, written buffers

	// --- Act ---
	require.NoError(t, run(context.Background(), printed.streams(""), []string{"-print", input}))
	require.NoError(t, run(context.Background(), written.streams(""), []string{"-o", outPath, input}))

	// --- Assert ---
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, printed.out.String(), string(data))
}

func TestRun_MissingInputFile(t *testing.T) {
	var b buffers

	err := run(context.Background(), b.streams(""), []string{"-jit", filepath.Join(t.TempDir(), "missing.b")})

	assert.Equal(t, app.ExitInput, exitCode(t, err))
	assert.Contains(t, err.Error(), "could not be opened")
}
