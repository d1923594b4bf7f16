package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/brainjit/internal/config"
	"github.com/vk/brainjit/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL settings loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the HCL file at path and applies it over the defaults.
func (l *Loader) Load(ctx context.Context, path string) (*config.Settings, error) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		logger.Debug("No settings file given, using defaults.")
		return config.Default(), nil
	}
	logger.Debug("Loading settings file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return l.apply(ctx, path, file.Body)
}

// LoadBytes is Load for settings held in memory. filename is used in diagnostics.
func (l *Loader) LoadBytes(ctx context.Context, src []byte, filename string) (*config.Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.apply(ctx, filename, file.Body)
}

func (l *Loader) apply(ctx context.Context, path string, body hcl.Body) (*config.Settings, error) {
	evalCtx := newEvalContext()
	var root fileRoot
	if diags := gohcl.DecodeBody(body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	s := config.Default()
	if t := root.Tape; t != nil {
		if t.Size != nil {
			s.Tape.Size = *t.Size
		}
		if t.Head != nil {
			s.Tape.Head = *t.Head
		}
	}
	if c := root.Compiler; c != nil && c.MaxNesting != nil {
		s.Compiler.MaxNesting = *c.MaxNesting
	}
	if o := root.Optimizer; o != nil {
		// A present optimizer block turns optimization on unless it says otherwise.
		s.Optimizer.Enabled = true
		if o.Enabled != nil {
			s.Optimizer.Enabled = *o.Enabled
		}
		if isExprDefined(ctx, o.Passes, "passes") {
			names, err := stringList(o.Passes, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("invalid optimizer passes in %s: %w", path, err)
			}
			s.Optimizer.Passes = names
		}
	}
	if e := root.Engine; e != nil && e.MaxSteps != nil {
		s.Engine.MaxSteps = *e.MaxSteps
	}
	if c := root.Cache; c != nil && c.Path != nil {
		s.Cache.Path = *c.Path
	}

	ctxlog.FromContext(ctx).Debug("Settings loaded.",
		"path", path,
		"tape_size", s.Tape.Size,
		"optimize", s.Optimizer.Enabled,
		"passes", s.Optimizer.Passes,
		"cache", s.Cache.Path,
	)
	return s, nil
}
