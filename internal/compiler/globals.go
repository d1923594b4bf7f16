package compiler

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

const (
	tapeName    = "tape"
	headName    = "head"
	getcharName = "getchar"
	putcharName = "putchar"
)

// declareHost declares the external I/O primitives the program unit calls.
func (s *Session) declareHost() {
	s.getchar = s.module.NewFunc(getcharName, types.I32)
	s.putchar = s.module.NewFunc(putcharName, types.I32, ir.NewParam("c", types.I32))
}

// allocateTape defines the zero-initialized cell array.
func (s *Session) allocateTape() {
	s.tapeType = types.NewArray(uint64(s.opts.TapeSize), types.I8)
	s.tape = s.module.NewGlobalDef(tapeName, constant.NewZeroInitializer(s.tapeType))
}

// allocateHead defines the head position. Its start value is stored by the
// program unit's first block, not by the initializer.
func (s *Session) allocateHead() {
	s.head = s.module.NewGlobalDef(headName, constant.NewInt(types.I32, 0))
}
