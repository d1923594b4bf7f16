package passes

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// Reassociate canonicalises commutative expressions so that constants sit on
// the right, then combines chains of constant additions and multiplications.
type Reassociate struct{}

func (Reassociate) Name() string { return "reassociate" }

func (Reassociate) Run(f *ir.Func) bool {
	changed := false
	for {
		round := false
		for _, b := range f.Blocks {
			for _, inst := range b.Insts {
				if canonicalise(inst) {
					round = true
				}
				if combine(inst) {
					round = true
				}
			}
		}
		if !round {
			break
		}
		changed = true
	}
	if removeDead(f) {
		changed = true
	}
	return changed
}

// canonicalise swaps the operands of a commutative instruction whose only
// constant operand is on the left.
func canonicalise(inst ir.Instruction) bool {
	var x, y *value.Value
	switch in := inst.(type) {
	case *ir.InstAdd:
		x, y = &in.X, &in.Y
	case *ir.InstMul:
		x, y = &in.X, &in.Y
	case *ir.InstAnd:
		x, y = &in.X, &in.Y
	case *ir.InstOr:
		x, y = &in.X, &in.Y
	case *ir.InstXor:
		x, y = &in.X, &in.Y
	case *ir.InstICmp:
		if in.Pred != enum.IPredEQ && in.Pred != enum.IPredNE {
			return false
		}
		x, y = &in.X, &in.Y
	default:
		return false
	}
	_, lc := intConst(*x)
	_, rc := intConst(*y)
	if lc && !rc {
		*x, *y = *y, *x
		return true
	}
	return false
}

// combine folds op (op v, c1), c2 into op v, c1 op c2 for add and mul.
func combine(inst ir.Instruction) bool {
	switch in := inst.(type) {
	case *ir.InstAdd:
		c2, ok := intConst(in.Y)
		if !ok {
			return false
		}
		inner, ok := in.X.(*ir.InstAdd)
		if !ok {
			return false
		}
		c1, ok := intConst(inner.Y)
		if !ok {
			return false
		}
		in.X = inner.X
		in.Y = newInt(c1.Typ, raw(c1)+raw(c2))
		return true
	case *ir.InstMul:
		c2, ok := intConst(in.Y)
		if !ok {
			return false
		}
		inner, ok := in.X.(*ir.InstMul)
		if !ok {
			return false
		}
		c1, ok := intConst(inner.Y)
		if !ok {
			return false
		}
		in.X = inner.X
		in.Y = newInt(c1.Typ, raw(c1)*raw(c2))
		return true
	}
	return false
}
