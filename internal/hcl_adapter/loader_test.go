package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/brainjit/internal/config"
)

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	s, err := NewLoader().Load(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, config.Default(), s)
	assert.Nil(t, s.ActivePasses())
}

func TestLoad_FullFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "brainjit.hcl")
	src := `
tape {
  size = 1024 * 64
  head = 10
}
compiler {
  max_nesting = 128
}
optimizer {
  passes = concat(default_passes, ["peephole"])
}
engine {
  max_steps = 1000000
}
cache {
  path = "cache.db"
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	// Act
	s, err := NewLoader().Load(context.Background(), path)

	// Assert
	require.NoError(t, err)
	want := &config.Settings{
		Tape:     config.Tape{Size: 65536, Head: 10},
		Compiler: config.Compiler{MaxNesting: 128},
		Optimizer: config.Optimizer{
			Enabled: true,
			Passes:  []string{"peephole", "reassociate", "cse", "simplifycfg", "peephole"},
		},
		Engine: config.Engine{MaxSteps: 1000000},
		Cache:  config.Cache{Path: "cache.db"},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBytes_OptimizerBlock(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		enabled bool
		passes  []string
	}{
		{name: "block enables defaults", src: "optimizer {}\n", enabled: true, passes: []string{"peephole", "reassociate", "cse", "simplifycfg"}},
		{name: "explicitly disabled", src: "optimizer {\n  enabled = false\n}\n", enabled: false, passes: []string{"peephole", "reassociate", "cse", "simplifycfg"}},
		{name: "custom list", src: "optimizer {\n  passes = [\"cse\"]\n}\n", enabled: true, passes: []string{"cse"}},
		{name: "empty list", src: "optimizer {\n  passes = []\n}\n", enabled: true, passes: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewLoader().LoadBytes(context.Background(), []byte(tc.src), "inline.hcl")

			require.NoError(t, err)
			assert.Equal(t, tc.enabled, s.Optimizer.Enabled)
			assert.Equal(t, tc.passes, s.Optimizer.Passes)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "syntax", src: "tape {", want: "failed to parse HCL file"},
		{name: "unknown block", src: "jit {}\n", want: "failed to decode HCL file"},
		{name: "wrong type", src: "tape {\n  size = \"big\"\n}\n", want: "failed to decode HCL file"},
		{name: "passes not a list", src: "optimizer {\n  passes = 3\n}\n", want: "must be a list of strings"},
		{name: "unknown variable", src: "optimizer {\n  passes = fast_passes\n}\n", want: "invalid optimizer passes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().LoadBytes(context.Background(), []byte(tc.src), "bad.hcl")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))

	assert.ErrorContains(t, err, "failed to parse HCL file")
}
