// Package passes implements the fixed optimisation pipeline that may be run
// over the program unit before it is verified and used:
//
//	peephole -> reassociate -> cse -> simplifycfg
//
// Every pass rewrites a single function in place and reports whether it
// changed anything. Passes never alter observable behaviour: the same tape
// contents and the same byte stream on output, for every input.
//
// Passes are looked up by name, so the order can be configured, but the
// default pipeline is the one above and runs each pass exactly once.
package passes
