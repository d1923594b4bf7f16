package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vk/brainjit/internal/source"
)

// cellPtr emits the address of the cell under the head.
func (s *Session) cellPtr(b *ir.Block) value.Value {
	pos := b.NewLoad(types.I32, s.head)
	return b.NewGetElementPtr(s.tapeType, s.tape, constant.NewInt(types.I32, 0), pos)
}

// emitOp appends the instructions of a non-bracket operation to b.
func (s *Session) emitOp(b *ir.Block, op source.Op) error {
	switch op {
	case source.OpIncCell, source.OpDecCell:
		delta := int64(1)
		if op == source.OpDecCell {
			delta = -1
		}
		ptr := s.cellPtr(b)
		cell := b.NewLoad(types.I8, ptr)
		b.NewStore(b.NewAdd(cell, constant.NewInt(types.I8, delta)), ptr)
	case source.OpLeft, source.OpRight:
		delta := int64(1)
		if op == source.OpLeft {
			delta = -1
		}
		pos := b.NewLoad(types.I32, s.head)
		b.NewStore(b.NewAdd(pos, constant.NewInt(types.I32, delta)), s.head)
	case source.OpRead:
		c := b.NewCall(s.getchar)
		v := b.NewTrunc(c, types.I8)
		b.NewStore(v, s.cellPtr(b))
	case source.OpWrite:
		cell := b.NewLoad(types.I8, s.cellPtr(b))
		b.NewCall(s.putchar, b.NewZExt(cell, types.I32))
	default:
		return fmt.Errorf("operation %q is not a straight-line operation", op.String())
	}
	return nil
}

// emitLoopTest seals b with a branch to body when the current cell is
// non-zero and to end otherwise.
func (s *Session) emitLoopTest(b, body, end *ir.Block) {
	cell := b.NewLoad(types.I8, s.cellPtr(b))
	nz := b.NewICmp(enum.IPredNE, cell, constant.NewInt(types.I8, 0))
	b.NewCondBr(nz, body, end)
}
