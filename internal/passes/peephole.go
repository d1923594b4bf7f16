package passes

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vk/brainjit/internal/irutil"
)

// Peephole folds constants, removes algebraic identities, and deletes dead
// side-effect free instructions.
type Peephole struct{}

func (Peephole) Name() string { return "peephole" }

func (Peephole) Run(f *ir.Func) bool {
	changed := false
	for _, b := range f.Blocks {
		for i, inst := range b.Insts {
			repl, rewritten := simplify(inst)
			if rewritten != nil {
				b.Insts[i] = rewritten
				irutil.ReplaceAllUses(f, inst.(value.Value), rewritten.(value.Value))
				changed = true
				continue
			}
			if repl != nil {
				if irutil.ReplaceAllUses(f, inst.(value.Value), repl) > 0 {
					changed = true
				}
			}
		}
	}
	if removeDead(f) {
		changed = true
	}
	return changed
}

// simplify returns either a value that inst can be replaced with, or a new
// instruction that should take its place.
func simplify(inst ir.Instruction) (value.Value, ir.Instruction) {
	switch in := inst.(type) {
	case *ir.InstAdd:
		if r, ok := foldPair(inst, in.X, in.Y); ok {
			return r, nil
		}
		if isZero(in.Y) {
			return in.X, nil
		}
		if isZero(in.X) {
			return in.Y, nil
		}
	case *ir.InstSub:
		if r, ok := foldPair(inst, in.X, in.Y); ok {
			return r, nil
		}
		if isZero(in.Y) {
			return in.X, nil
		}
		if c, ok := intConst(in.Y); ok {
			// sub x, c => add x, -c; reassociate can then merge it with other adds.
			return nil, ir.NewAdd(in.X, newInt(c.Typ, -raw(c)))
		}
	case *ir.InstMul:
		if r, ok := foldPair(inst, in.X, in.Y); ok {
			return r, nil
		}
		if isOne(in.Y) {
			return in.X, nil
		}
		if isZero(in.Y) {
			return in.Y, nil
		}
	case *ir.InstAnd:
		if r, ok := foldPair(inst, in.X, in.Y); ok {
			return r, nil
		}
	case *ir.InstOr:
		if r, ok := foldPair(inst, in.X, in.Y); ok {
			return r, nil
		}
		if isZero(in.Y) {
			return in.X, nil
		}
	case *ir.InstXor:
		if r, ok := foldPair(inst, in.X, in.Y); ok {
			return r, nil
		}
		if isZero(in.Y) {
			return in.X, nil
		}
	case *ir.InstICmp:
		x, okX := intConst(in.X)
		y, okY := intConst(in.Y)
		if okX && okY {
			if r, ok := foldICmp(in.Pred, x, y); ok {
				return r, nil
			}
		}
	case *ir.InstTrunc:
		to, ok := in.To.(*types.IntType)
		if !ok {
			break
		}
		if c, ok := intConst(in.From); ok {
			return newInt(to, raw(c)), nil
		}
		// trunc (zext x) back to the type of x is x.
		if z, ok := in.From.(*ir.InstZExt); ok && types.Equal(z.From.Type(), to) {
			return z.From, nil
		}
	case *ir.InstZExt:
		to, ok := in.To.(*types.IntType)
		if !ok {
			break
		}
		if c, ok := intConst(in.From); ok {
			return newInt(to, raw(c)), nil
		}
	case *ir.InstSExt:
		to, ok := in.To.(*types.IntType)
		if !ok {
			break
		}
		if c, ok := intConst(in.From); ok {
			return newInt(to, uint64(signed(c))), nil
		}
	}
	return nil, nil
}

func foldPair(inst ir.Instruction, x, y value.Value) (value.Value, bool) {
	cx, okX := intConst(x)
	cy, okY := intConst(y)
	if !okX || !okY {
		return nil, false
	}
	r, ok := foldBinary(inst, cx, cy)
	if !ok {
		return nil, false
	}
	return r, true
}
