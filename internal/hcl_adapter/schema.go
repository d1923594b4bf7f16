package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a settings file may contain.
type fileRoot struct {
	Tape      *tapeBlock      `hcl:"tape,block"`
	Compiler  *compilerBlock  `hcl:"compiler,block"`
	Optimizer *optimizerBlock `hcl:"optimizer,block"`
	Engine    *engineBlock    `hcl:"engine,block"`
	Cache     *cacheBlock     `hcl:"cache,block"`
}

type tapeBlock struct {
	Size *uint32 `hcl:"size,optional"`
	Head *uint32 `hcl:"head,optional"`
}

type compilerBlock struct {
	MaxNesting *int `hcl:"max_nesting,optional"`
}

type optimizerBlock struct {
	Enabled *bool `hcl:"enabled,optional"`
	// Passes is kept as an expression so it can refer to default_passes.
	Passes hcl.Expression `hcl:"passes,optional"`
}

type engineBlock struct {
	MaxSteps *uint64 `hcl:"max_steps,optional"`
}

type cacheBlock struct {
	Path *string `hcl:"path,optional"`
}
