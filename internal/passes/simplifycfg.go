package passes

import (
	"github.com/llir/llvm/ir"

	"github.com/vk/brainjit/internal/flowgraph"
	"github.com/vk/brainjit/internal/irutil"
)

// SimplifyCFG cleans up the control-flow graph: it folds conditional
// branches whose outcome is known, deletes unreachable blocks, bypasses empty
// forwarding blocks and merges blocks into their only predecessor.
type SimplifyCFG struct{}

func (SimplifyCFG) Name() string { return "simplifycfg" }

func (SimplifyCFG) Run(f *ir.Func) bool {
	if len(f.Blocks) == 0 {
		return false
	}
	changed := false
	for {
		round := foldBranches(f)
		if removeUnreachable(f) {
			round = true
		}
		if forwardEmpty(f) {
			round = true
		}
		if mergeChains(f) {
			round = true
		}
		if !round {
			return changed
		}
		changed = true
	}
}

func foldBranches(f *ir.Func) bool {
	changed := false
	for _, b := range f.Blocks {
		t, ok := b.Term.(*ir.TermCondBr)
		if !ok {
			continue
		}
		tt, tf := irutil.AsBlock(t.TargetTrue), irutil.AsBlock(t.TargetFalse)
		switch {
		case tt == tf:
			b.Term = ir.NewBr(tt)
		default:
			c, ok := intConst(t.Cond)
			if !ok {
				continue
			}
			if raw(c) != 0 {
				b.Term = ir.NewBr(tt)
			} else {
				b.Term = ir.NewBr(tf)
			}
		}
		changed = true
	}
	return changed
}

func removeUnreachable(f *ir.Func) bool {
	g, err := flowgraph.Build(f)
	if err != nil {
		// Malformed functions are left for the verifier to report.
		return false
	}
	live := g.Reachable()
	if len(live) == len(f.Blocks) {
		return false
	}
	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if live[b] {
			kept = append(kept, b)
		}
	}
	f.Blocks = kept
	return true
}

// predecessors maps each block to the blocks branching to it, one entry per edge.
func predecessors(f *ir.Func) map[*ir.Block][]*ir.Block {
	preds := make(map[*ir.Block][]*ir.Block)
	for _, b := range f.Blocks {
		for _, s := range irutil.Succs(b) {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// forwardEmpty redirects edges into blocks that hold nothing but an
// unconditional branch straight to that branch's target.
func forwardEmpty(f *ir.Func) bool {
	preds := predecessors(f)
	changed := false
	for _, b := range f.Blocks[1:] {
		br, ok := b.Term.(*ir.TermBr)
		if !ok || len(b.Insts) != 0 {
			continue
		}
		target := irutil.AsBlock(br.Target)
		if target == nil || target == b {
			continue
		}
		for _, p := range preds[b] {
			if irutil.Retarget(p, b, target) {
				preds[target] = append(preds[target], p)
				changed = true
			}
		}
		preds[b] = nil
	}
	return changed
}

// mergeChains appends a block to its predecessor when the predecessor ends in
// an unconditional branch to it and nothing else branches to it.
func mergeChains(f *ir.Func) bool {
	preds := predecessors(f)
	entry := f.Blocks[0]
	merged := make(map[*ir.Block]bool)
	for _, b := range f.Blocks {
		if merged[b] {
			continue
		}
		for {
			br, ok := b.Term.(*ir.TermBr)
			if !ok {
				break
			}
			s := irutil.AsBlock(br.Target)
			if s == nil || s == b || s == entry || merged[s] || len(preds[s]) != 1 {
				break
			}
			b.Insts = append(b.Insts, s.Insts...)
			b.Term = s.Term
			merged[s] = true
		}
	}
	if len(merged) == 0 {
		return false
	}
	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if !merged[b] {
			kept = append(kept, b)
		}
	}
	f.Blocks = kept
	return true
}
