// Package app contains the core application logic. It merges flags over the
// settings file, compiles the program through a compiler session, consults
// the compile cache, and dispatches the verified module to exactly one
// output: a file, the terminal, or the execution engine. It is decoupled
// from any specific entrypoint like a CLI.
package app
