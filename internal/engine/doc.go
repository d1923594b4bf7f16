// Package engine executes compiled modules in-process.
//
// New lays every global of a module out in a single linear memory, binds
// external declarations to host primitives, and lowers each defined function
// into a flat register program. Run then interprets a named function. Memory
// addresses handed to the program are offsets into the linear memory, so a
// stray pointer can only ever reach the module's own globals.
package engine
