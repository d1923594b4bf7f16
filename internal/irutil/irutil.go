// Package irutil holds the small set of IR walking and rewriting helpers
// shared by the verifier, the optimisation passes, and the engine.
//
// Branch targets are always read through AsBlock and written by assignment,
// and successors are recomputed from the terminator instead of trusting any
// cached successor list, because passes retarget branches in place.
package irutil

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// AsBlock returns v as a basic block, or nil when v is not one.
func AsBlock(v any) *ir.Block {
	b, _ := v.(*ir.Block)
	return b
}

// Succs returns the successor blocks of b's terminator.
func Succs(b *ir.Block) []*ir.Block {
	switch t := b.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{AsBlock(t.Target)}
	case *ir.TermCondBr:
		return []*ir.Block{AsBlock(t.TargetTrue), AsBlock(t.TargetFalse)}
	}
	return nil
}

// Retarget rewrites every edge from b to from so that it points at to.
// It reports whether anything changed.
func Retarget(b *ir.Block, from, to *ir.Block) bool {
	changed := false
	switch t := b.Term.(type) {
	case *ir.TermBr:
		if AsBlock(t.Target) == from {
			t.Target = to
			changed = true
		}
	case *ir.TermCondBr:
		if AsBlock(t.TargetTrue) == from {
			t.TargetTrue = to
			changed = true
		}
		if AsBlock(t.TargetFalse) == from {
			t.TargetFalse = to
			changed = true
		}
	}
	return changed
}

// Operands returns mutable references to the value operands of inst.
// Branch targets are not included. ok is false for instruction kinds this
// package does not know about.
func Operands(inst ir.Instruction) (ops []*value.Value, ok bool) {
	switch in := inst.(type) {
	case *ir.InstAdd:
		return []*value.Value{&in.X, &in.Y}, true
	case *ir.InstSub:
		return []*value.Value{&in.X, &in.Y}, true
	case *ir.InstMul:
		return []*value.Value{&in.X, &in.Y}, true
	case *ir.InstAnd:
		return []*value.Value{&in.X, &in.Y}, true
	case *ir.InstOr:
		return []*value.Value{&in.X, &in.Y}, true
	case *ir.InstXor:
		return []*value.Value{&in.X, &in.Y}, true
	case *ir.InstICmp:
		return []*value.Value{&in.X, &in.Y}, true
	case *ir.InstLoad:
		return []*value.Value{&in.Src}, true
	case *ir.InstStore:
		return []*value.Value{&in.Src, &in.Dst}, true
	case *ir.InstGetElementPtr:
		ops = []*value.Value{&in.Src}
		for i := range in.Indices {
			ops = append(ops, &in.Indices[i])
		}
		return ops, true
	case *ir.InstCall:
		ops = []*value.Value{&in.Callee}
		for i := range in.Args {
			ops = append(ops, &in.Args[i])
		}
		return ops, true
	case *ir.InstTrunc:
		return []*value.Value{&in.From}, true
	case *ir.InstZExt:
		return []*value.Value{&in.From}, true
	case *ir.InstSExt:
		return []*value.Value{&in.From}, true
	}
	return nil, false
}

// TermOperands returns mutable references to the value operands of a
// terminator, excluding branch targets.
func TermOperands(term ir.Terminator) []*value.Value {
	switch t := term.(type) {
	case *ir.TermRet:
		if t.X == nil {
			return nil
		}
		return []*value.Value{&t.X}
	case *ir.TermCondBr:
		return []*value.Value{&t.Cond}
	}
	return nil
}

// HasSideEffects reports whether inst must be kept even when its result is unused.
// Unknown instruction kinds are treated as effectful.
func HasSideEffects(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.InstAdd, *ir.InstSub, *ir.InstMul, *ir.InstAnd, *ir.InstOr, *ir.InstXor,
		*ir.InstICmp, *ir.InstLoad, *ir.InstGetElementPtr,
		*ir.InstTrunc, *ir.InstZExt, *ir.InstSExt:
		return false
	}
	return true
}

// ReplaceAllUses rewrites every use of old inside f to repl and returns the
// number of rewritten operands.
func ReplaceAllUses(f *ir.Func, old, repl value.Value) int {
	n := 0
	rewrite := func(ops []*value.Value) {
		for _, op := range ops {
			if *op == old {
				*op = repl
				n++
			}
		}
	}
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			ops, _ := Operands(inst)
			rewrite(ops)
		}
		if b.Term != nil {
			rewrite(TermOperands(b.Term))
		}
	}
	return n
}

// UseCounts returns how many times each value is used as an operand in f.
func UseCounts(f *ir.Func) map[value.Value]int {
	uses := make(map[value.Value]int)
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			ops, _ := Operands(inst)
			for _, op := range ops {
				uses[*op]++
			}
		}
		if b.Term != nil {
			for _, op := range TermOperands(b.Term) {
				uses[*op]++
			}
		}
	}
	return uses
}

// InstCount returns the number of instructions in f, terminators included.
func InstCount(f *ir.Func) int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Insts)
		if b.Term != nil {
			n++
		}
	}
	return n
}

type numbered interface {
	IsUnnamed() bool
	SetID(id int64)
}

// ResetLocalIDs clears the IDs of unnamed locals in f so that they are
// renumbered from scratch the next time the function is printed. It must be
// called after instructions were removed from a function that was already
// printed once.
func ResetLocalIDs(f *ir.Func) {
	reset := func(v any) {
		if n, ok := v.(numbered); ok && n.IsUnnamed() {
			n.SetID(0)
		}
	}
	for _, p := range f.Params {
		reset(p)
	}
	for _, b := range f.Blocks {
		reset(b)
		for _, inst := range b.Insts {
			reset(inst)
		}
	}
}
