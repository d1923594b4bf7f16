// Package config defines the format-agnostic settings model for the compiler,
// along with the Loader interface for reading settings from a file.
//
// Settings is the single source of truth for tape geometry, nesting limits,
// the optimization pipeline, engine limits and the compile cache. Concrete
// loaders, such as the HCL one, live in separate packages.
package config
