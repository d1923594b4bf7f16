package config

import "github.com/vk/brainjit/internal/passes"

// DefaultTapeSize mirrors the compiler's default tape length.
const DefaultTapeSize = 655360

// Settings is the unified settings model.
type Settings struct {
	Tape      Tape
	Compiler  Compiler
	Optimizer Optimizer
	Engine    Engine
	Cache     Cache
}

// Tape sets the tape geometry.
type Tape struct {
	Size uint32
	// Head is the start position; zero selects the middle of the tape.
	Head uint32
}

// Compiler holds front-end limits.
type Compiler struct {
	// MaxNesting limits loop depth; zero means unlimited.
	MaxNesting int
}

// Optimizer selects the optimization pipeline.
type Optimizer struct {
	Enabled bool
	Passes  []string
}

// Engine holds execution limits.
type Engine struct {
	// MaxSteps limits the branches taken by one run; zero means unlimited.
	MaxSteps uint64
}

// Cache locates the compile cache. An empty path disables caching.
type Cache struct {
	Path string
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	return &Settings{
		Tape:      Tape{Size: DefaultTapeSize},
		Optimizer: Optimizer{Passes: passes.DefaultNames()},
	}
}

// ActivePasses returns the passes to run, or nil when optimization is off.
func (s *Settings) ActivePasses() []string {
	if !s.Optimizer.Enabled {
		return nil
	}
	return s.Optimizer.Passes
}
