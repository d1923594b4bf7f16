package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/app"
	"github.com/vk/brainjit/internal/cli"
	"github.com/vk/brainjit/internal/hcl_adapter"
)

// Result holds the outcome of a single end-to-end run.
type Result struct {
	Err       error
	Output    string
	LogOutput string
	Dir       string
}

// RunIntegrationTest writes files into a fresh directory, parses args as the
// command line would and runs the app with input on standard input. The
// placeholder $DIR in file contents and args expands to that directory.
func RunIntegrationTest(t *testing.T, files map[string]string, input string, args ...string) Result {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(content, "$DIR", dir)), 0o644))
	}
	expanded := make([]string, len(args))
	for i, arg := range args {
		expanded[i] = strings.ReplaceAll(arg, "$DIR", dir)
	}

	var usage strings.Builder
	cfg, exit, err := cli.Parse(expanded, &usage)
	require.NoError(t, err, usage.String())
	require.False(t, exit)

	a, streams := app.SetupAppTest(t, cfg, hcl_adapter.NewLoader(), input)
	err = a.Run(context.Background())

	return Result{
		Err:       err,
		Output:    streams.Out.String(),
		LogOutput: streams.Err.String(),
		Dir:       dir,
	}
}
