package integration_tests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/backend"
	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/engine"
)

// TestOutput_WrittenModuleRuns verifies that a module written with -o parses
// back, verifies and executes like the original program.
func TestOutput_WrittenModuleRuns(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"prog.b": "++++++[->++++<]>."}
	res := RunIntegrationTest(t, files, "", "-opt", "-o", "$DIR/prog.ll", "$DIR/prog.b")
	require.NoError(t, res.Err)
	text, err := os.ReadFile(filepath.Join(res.Dir, "prog.ll"))
	require.NoError(t, err)

	// --- Act ---
	be := backend.New()
	m, err := be.Parse("prog.ll", string(text))
	require.NoError(t, err)
	require.NoError(t, be.Verify(m))
	var out bytes.Buffer
	code, err := be.Execute(context.Background(), m, compiler.EntryUnit, engine.WithStdout(&out))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, int64(0), code)
	assert.Equal(t, []byte{24}, out.Bytes())
	assert.Contains(t, res.LogOutput, "Module written.")
}
