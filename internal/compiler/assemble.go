package compiler

import (
	"context"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/vk/brainjit/internal/source"
)

const (
	// ProgramUnit is the function holding the translated program.
	ProgramUnit = "brain"
	// EntryUnit is the process entry point that calls ProgramUnit.
	EntryUnit = "main"
)

// assembleProgram builds void @brain(): an init block positioning the head,
// the translated program, and a final ret.
func (s *Session) assembleProgram(ctx context.Context, sc *source.Scanner) (*ir.Func, error) {
	f := s.module.NewFunc(ProgramUnit, types.Void)
	init := f.NewBlock("init")
	init.NewStore(constant.NewInt(types.I32, int64(s.opts.head())), s.head)

	last, err := s.buildFlow(ctx, f, init, sc)
	if err != nil {
		return nil, err
	}
	last.NewRet(nil)
	return f, nil
}

// assembleEntry builds i32 @main(i32 %argc, i8** %argv), which runs the
// program unit and returns 0.
func (s *Session) assembleEntry(program *ir.Func) *ir.Func {
	argv := types.NewPointer(types.NewPointer(types.I8))
	f := s.module.NewFunc(EntryUnit, types.I32, ir.NewParam("argc", types.I32), ir.NewParam("argv", argv))
	entry := f.NewBlock("entry")
	entry.NewCall(program)
	entry.NewRet(constant.NewInt(types.I32, 0))
	return f
}
