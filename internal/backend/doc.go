// Package backend is the single entry point to the IR services the rest of
// the program needs: optimization pipelines, verification, textual parsing
// and printing, and in-process execution.
//
// Native implements compiler.Backend on top of the passes, irverify and
// engine packages, so the compiler never depends on how those services are
// provided.
package backend
