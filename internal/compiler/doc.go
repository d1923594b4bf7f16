// Package compiler translates a tape-language program into an LLVM IR module.
//
// A Session owns one module from bootstrap to hand-off. Compile declares the
// host primitives, allocates the tape and head globals, assembles the program
// unit @brain from the token stream, optionally optimizes it, assembles the
// entry unit @main and verifies the result. Release then transfers the module
// to the caller.
package compiler
