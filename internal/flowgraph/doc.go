// Package flowgraph builds the control-flow graph of a single IR function
// and answers the structural questions the verifier and the CFG
// simplification pass ask of it: successors, predecessors, reachability
// from the entry block, dominance, and which edges are loop back-edges.
//
// A Graph is a snapshot. Passes that rewrite branches build a new one.
package flowgraph
