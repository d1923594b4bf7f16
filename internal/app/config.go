package app

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects what happens to a verified module.
type Mode int

const (
	// ModeCheck only compiles and verifies.
	ModeCheck Mode = iota
	// ModeWrite serializes the module to Config.OutputPath.
	ModeWrite
	// ModePrint writes the module text to standard output.
	ModePrint
	// ModeJIT runs the module in the execution engine.
	ModeJIT
)

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModePrint:
		return "print"
	case ModeJIT:
		return "jit"
	}
	return "check"
}

// Config holds everything a single invocation needs. Pointer fields are
// overrides: nil leaves the settings file value in place.
type Config struct {
	InputPath  string
	OutputPath string
	Print      bool
	JIT        bool
	Optimize   bool

	ConfigPath string
	CachePath  string

	TapeSize   *uint32
	MaxNesting *int
	MaxSteps   *uint64

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.InputPath == "" {
		return nil, errors.New("an input program is required")
	}
	modes := 0
	for _, on := range []bool{cfg.OutputPath != "", cfg.Print, cfg.JIT} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return nil, errors.New("-o, -print and -jit are mutually exclusive")
	}
	if cfg.MaxNesting != nil && *cfg.MaxNesting < 0 {
		return nil, fmt.Errorf("max-nesting must not be negative, got %d", *cfg.MaxNesting)
	}
	if cfg.TapeSize != nil && *cfg.TapeSize == 0 {
		return nil, errors.New("tape-size must be positive")
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return &cfg, nil
}

// Mode returns the output mode the configuration asks for.
func (c *Config) Mode() Mode {
	switch {
	case c.OutputPath != "":
		return ModeWrite
	case c.Print:
		return ModePrint
	case c.JIT:
		return ModeJIT
	}
	return ModeCheck
}
