package flowgraph

import "github.com/llir/llvm/ir"

// computeDominators fills g.idom using the iterative algorithm of Cooper,
// Harvey and Kennedy over a reverse postorder of the reachable blocks.
func (g *Graph) computeDominators() {
	g.idom = make(map[*node]*node)
	if len(g.order) == 0 {
		return
	}

	rpo := g.reversePostorder()
	pos := make(map[*node]int, len(rpo))
	for i, n := range rpo {
		pos[n] = i
	}

	entry := rpo[0]
	g.idom[entry] = entry

	intersect := func(a, b *node) *node {
		for a != b {
			for pos[a] > pos[b] {
				a = g.idom[a]
			}
			for pos[b] > pos[a] {
				b = g.idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, n := range rpo[1:] {
			var newIdom *node
			for _, p := range n.preds {
				if _, ok := g.idom[p]; !ok {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(p, newIdom)
			}
			if newIdom != nil && g.idom[n] != newIdom {
				g.idom[n] = newIdom
				changed = true
			}
		}
	}
}

func (g *Graph) reversePostorder() []*node {
	type frame struct {
		n    *node
		next int
	}
	visited := make(map[*node]bool)
	var post []*node
	stack := []frame{{n: g.order[0]}}
	visited[g.order[0]] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.n.succs) {
			post = append(post, top.n)
			stack = stack[:len(stack)-1]
			continue
		}
		s := top.n.succs[top.next]
		top.next++
		if !visited[s] {
			visited[s] = true
			stack = append(stack, frame{n: s})
		}
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// IDom returns the immediate dominator of b. The entry block and blocks
// unreachable from it have none.
func (g *Graph) IDom(b *ir.Block) *ir.Block {
	if g.idom == nil {
		g.computeDominators()
	}
	n, ok := g.nodes[b]
	if !ok {
		return nil
	}
	d, ok := g.idom[n]
	if !ok || d == n {
		return nil
	}
	return d.block
}

// Dominates reports whether every path from the entry to b passes through a.
// A block dominates itself. Unreachable blocks are dominated by nothing and
// dominate nothing but themselves.
func (g *Graph) Dominates(a, b *ir.Block) bool {
	if a == b {
		return true
	}
	if g.idom == nil {
		g.computeDominators()
	}
	na, okA := g.nodes[a]
	nb, okB := g.nodes[b]
	if !okA || !okB {
		return false
	}
	if _, ok := g.idom[nb]; !ok {
		return false
	}
	for {
		d := g.idom[nb]
		if d == nb {
			return false
		}
		if d == na {
			return true
		}
		nb = d
	}
}
