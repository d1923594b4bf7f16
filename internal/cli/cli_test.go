package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/app"
)

func requireExitError(t *testing.T, err error) *ExitError {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T", err)
	return exitErr
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("BRAINJIT_CONFIG", "")
	t.Setenv("BRAINJIT_CACHE", "")
	t.Setenv("BRAINJIT_LOG_LEVEL", "")
	t.Setenv("BRAINJIT_LOG_FORMAT", "")

	cfg, exit, err := Parse([]string{"prog.b"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "prog.b", cfg.InputPath)
	assert.Equal(t, app.ModeCheck, cfg.Mode())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Nil(t, cfg.TapeSize)
	assert.Nil(t, cfg.MaxNesting)
	assert.Nil(t, cfg.MaxSteps)
}

func TestParse_AllFlags(t *testing.T) {
	args := []string{
		"-jit", "-opt",
		"-config", "brainjit.hcl",
		"-cache", "cache.db",
		"-tape-size", "1024",
		"-max-nesting", "0",
		"-max-steps", "99",
		"-log-level", "DEBUG",
		"-log-format", "json",
		"prog.b",
	}

	cfg, _, err := Parse(args, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, app.ModeJIT, cfg.Mode())
	assert.True(t, cfg.Optimize)
	assert.Equal(t, "brainjit.hcl", cfg.ConfigPath)
	assert.Equal(t, "cache.db", cfg.CachePath)
	require.NotNil(t, cfg.TapeSize)
	assert.Equal(t, uint32(1024), *cfg.TapeSize)
	require.NotNil(t, cfg.MaxNesting, "an explicit zero still overrides the settings file")
	assert.Equal(t, 0, *cfg.MaxNesting)
	require.NotNil(t, cfg.MaxSteps)
	assert.Equal(t, uint64(99), *cfg.MaxSteps)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestParse_EnvironmentDefaults(t *testing.T) {
	t.Setenv("BRAINJIT_CONFIG", "/etc/brainjit.hcl")
	t.Setenv("BRAINJIT_CACHE", "/var/cache/brainjit.db")
	t.Setenv("BRAINJIT_LOG_LEVEL", "warn")
	t.Setenv("BRAINJIT_LOG_FORMAT", "json")

	cfg, _, err := Parse([]string{"-print", "prog.b"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "/etc/brainjit.hcl", cfg.ConfigPath)
	assert.Equal(t, "/var/cache/brainjit.db", cfg.CachePath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	cfg, _, err = Parse([]string{"-config", "local.hcl", "prog.b"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "local.hcl", cfg.ConfigPath, "flags win over the environment")
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}

	cfg, exit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no input", args: nil, want: "missing INPUT argument"},
		{name: "two inputs", args: []string{"a.b", "b.b"}, want: "expected one INPUT argument, got 2"},
		{name: "unknown flag", args: []string{"-fast", "a.b"}, want: "flag provided but not defined: -fast"},
		{name: "conflicting modes", args: []string{"-print", "-jit", "a.b"}, want: "mutually exclusive"},
		{name: "output and jit", args: []string{"-o", "a.ll", "-jit", "a.b"}, want: "mutually exclusive"},
		{name: "bad log level", args: []string{"-log-level", "loud", "a.b"}, want: "invalid log-level"},
		{name: "bad log format", args: []string{"-log-format", "xml", "a.b"}, want: "invalid log-format"},
		{name: "negative nesting", args: []string{"-max-nesting", "-2", "a.b"}, want: "max-nesting must not be negative"},
		{name: "huge tape", args: []string{"-tape-size", "4294967296", "a.b"}, want: "tape-size 4294967296 is too large"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BRAINJIT_LOG_LEVEL", "")
			t.Setenv("BRAINJIT_LOG_FORMAT", "")

			_, exit, err := Parse(tc.args, &bytes.Buffer{})

			assert.False(t, exit)
			exitErr := requireExitError(t, err)
			assert.Equal(t, app.ExitUsage, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
