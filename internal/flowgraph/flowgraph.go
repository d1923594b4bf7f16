package flowgraph

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"github.com/vk/brainjit/internal/irutil"
)

// node is one basic block with its incoming and outgoing edges. Edge lists
// keep insertion order so that traversals are deterministic.
type node struct {
	block *ir.Block
	index int
	preds []*node
	succs []*node
}

// Graph is the control-flow graph of one function.
type Graph struct {
	fn    *ir.Func
	nodes map[*ir.Block]*node
	order []*node

	idom map[*node]*node
}

// New returns an initialized, empty Graph for fn. Most callers want Build.
func New(fn *ir.Func) *Graph {
	return &Graph{
		fn:    fn,
		nodes: make(map[*ir.Block]*node),
	}
}

// Build constructs the graph of fn from its blocks and terminators.
// Branches to blocks that are not part of fn are reported as errors.
func Build(fn *ir.Func) (*Graph, error) {
	g := New(fn)
	for _, b := range fn.Blocks {
		g.AddNode(b)
	}
	for _, b := range fn.Blocks {
		for _, s := range irutil.Succs(b) {
			if err := g.AddEdge(b, s); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// AddNode adds b to the graph. Adding a block twice does nothing.
func (g *Graph) AddNode(b *ir.Block) {
	if _, ok := g.nodes[b]; ok {
		return
	}
	n := &node{block: b, index: len(g.order)}
	g.nodes[b] = n
	g.order = append(g.order, n)
	g.idom = nil
}

// AddEdge records a control transfer from -> to. Both blocks must already be
// in the graph. Duplicate edges (a conditional branch with equal targets) are
// recorded once.
func (g *Graph) AddEdge(from, to *ir.Block) error {
	if to == nil {
		return fmt.Errorf("block %s branches to a non-block target", from.Ident())
	}
	fromNode, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("source block not found: %s", from.Ident())
	}
	toNode, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("block %s branches to %s outside function %s", from.Ident(), to.Ident(), g.fn.Ident())
	}
	for _, s := range fromNode.succs {
		if s == toNode {
			return nil
		}
	}
	fromNode.succs = append(fromNode.succs, toNode)
	toNode.preds = append(toNode.preds, fromNode)
	g.idom = nil
	return nil
}

// Entry returns the entry block, or nil for a declaration.
func (g *Graph) Entry() *ir.Block {
	if len(g.order) == 0 {
		return nil
	}
	return g.order[0].block
}

// Preds returns the distinct predecessors of b.
func (g *Graph) Preds(b *ir.Block) []*ir.Block {
	n, ok := g.nodes[b]
	if !ok {
		return nil
	}
	return blocks(n.preds)
}

// Succs returns the distinct successors of b.
func (g *Graph) Succs(b *ir.Block) []*ir.Block {
	n, ok := g.nodes[b]
	if !ok {
		return nil
	}
	return blocks(n.succs)
}

// Reachable returns the set of blocks reachable from the entry block.
func (g *Graph) Reachable() map[*ir.Block]bool {
	seen := make(map[*ir.Block]bool)
	if len(g.order) == 0 {
		return seen
	}
	// Explicit stack: deeply nested loops must not exhaust the goroutine stack.
	stack := []*node{g.order[0]}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n.block] {
			continue
		}
		seen[n.block] = true
		for i := len(n.succs) - 1; i >= 0; i-- {
			if !seen[n.succs[i].block] {
				stack = append(stack, n.succs[i])
			}
		}
	}
	return seen
}

// BackEdges returns the edges whose target is on the current DFS path when
// traversed from the entry, i.e. the edges that close a loop.
func (g *Graph) BackEdges() [][2]*ir.Block {
	if len(g.order) == 0 {
		return nil
	}
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[*node]int)
	type frame struct {
		n    *node
		next int
	}
	var edges [][2]*ir.Block
	stack := []frame{{n: g.order[0]}}
	state[g.order[0]] = onPath
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.n.succs) {
			state[top.n] = done
			stack = stack[:len(stack)-1]
			continue
		}
		s := top.n.succs[top.next]
		top.next++
		switch state[s] {
		case onPath:
			edges = append(edges, [2]*ir.Block{top.n.block, s.block})
		case unvisited:
			state[s] = onPath
			stack = append(stack, frame{n: s})
		}
	}
	return edges
}

func blocks(ns []*node) []*ir.Block {
	out := make([]*ir.Block, len(ns))
	for i, n := range ns {
		out[i] = n.block
	}
	return out
}
