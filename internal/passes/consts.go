package passes

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vk/brainjit/internal/irutil"
)

// intConst returns v as an integer constant of at most 64 bits.
func intConst(v value.Value) (*constant.Int, bool) {
	c, ok := v.(*constant.Int)
	if !ok || c.Typ.BitSize > 64 || !c.X.IsInt64() && !c.X.IsUint64() {
		return nil, false
	}
	return c, true
}

// raw returns the two's complement bit pattern of c, truncated to its width.
func raw(c *constant.Int) uint64 {
	var u uint64
	if c.X.IsInt64() {
		u = uint64(c.X.Int64())
	} else {
		u = c.X.Uint64()
	}
	return u & mask(c.Typ.BitSize)
}

// signed returns c sign-extended from its width to 64 bits.
func signed(c *constant.Int) int64 {
	return signExtend(raw(c), c.Typ.BitSize)
}

func mask(bits uint64) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

func signExtend(u uint64, bits uint64) int64 {
	if bits >= 64 {
		return int64(u)
	}
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

// newInt builds a constant of type t from a bit pattern, printed in the
// signed form LLVM uses (i8 255 is written as i8 -1).
func newInt(t *types.IntType, u uint64) *constant.Int {
	u &= mask(t.BitSize)
	if t.BitSize == 1 {
		return constant.NewBool(u == 1)
	}
	return constant.NewInt(t, signExtend(u, t.BitSize))
}

// foldBinary evaluates op over two constants of the same type.
func foldBinary(inst ir.Instruction, x, y *constant.Int) (*constant.Int, bool) {
	a, b := raw(x), raw(y)
	var r uint64
	switch inst.(type) {
	case *ir.InstAdd:
		r = a + b
	case *ir.InstSub:
		r = a - b
	case *ir.InstMul:
		r = a * b
	case *ir.InstAnd:
		r = a & b
	case *ir.InstOr:
		r = a | b
	case *ir.InstXor:
		r = a ^ b
	default:
		return nil, false
	}
	return newInt(x.Typ, r), true
}

// foldICmp evaluates an integer comparison of two constants.
func foldICmp(pred enum.IPred, x, y *constant.Int) (*constant.Int, bool) {
	ux, uy := raw(x), raw(y)
	sx, sy := signed(x), signed(y)
	var r bool
	switch pred {
	case enum.IPredEQ:
		r = ux == uy
	case enum.IPredNE:
		r = ux != uy
	case enum.IPredUGT:
		r = ux > uy
	case enum.IPredUGE:
		r = ux >= uy
	case enum.IPredULT:
		r = ux < uy
	case enum.IPredULE:
		r = ux <= uy
	case enum.IPredSGT:
		r = sx > sy
	case enum.IPredSGE:
		r = sx >= sy
	case enum.IPredSLT:
		r = sx < sy
	case enum.IPredSLE:
		r = sx <= sy
	default:
		return nil, false
	}
	return constant.NewBool(r), true
}

// isZero and isOne report whether v is the integer constant 0 or 1.
func isZero(v value.Value) bool {
	c, ok := intConst(v)
	return ok && raw(c) == 0
}

func isOne(v value.Value) bool {
	c, ok := intConst(v)
	return ok && raw(c) == 1
}

// removeDead deletes side-effect free instructions whose results are unused,
// repeating until nothing more can be removed.
func removeDead(f *ir.Func) bool {
	changed := false
	for {
		uses := irutil.UseCounts(f)
		removed := false
		for _, b := range f.Blocks {
			kept := b.Insts[:0]
			for _, inst := range b.Insts {
				if v, ok := inst.(value.Value); ok && !irutil.HasSideEffects(inst) && uses[v] == 0 {
					removed = true
					continue
				}
				kept = append(kept, inst)
			}
			b.Insts = kept
		}
		if !removed {
			return changed
		}
		changed = true
	}
}
