package engine

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vk/brainjit/internal/irutil"
)

type opcode uint8

const (
	opAdd opcode = iota
	opSub
	opMul
	opAnd
	opOr
	opXor
	opICmp
	opLoad
	opStore
	opGEP
	opTrunc
	opZExt
	opSExt
	opCall
	opBr
	opCondBr
	opRet
	opUnreachable
)

// operand is either a register or an immediate.
type operand struct {
	reg int
	imm uint64
	// isImm selects imm over reg.
	isImm bool
}

type gepTerm struct {
	idx   operand
	bits  uint64
	scale uint64
}

type inst struct {
	op     opcode
	dst    int
	a, b   operand
	bits   uint64
	size   uint64
	pred   enum.IPred
	terms  []gepTerm
	args   []operand
	callee *function
	// target and alt are program counters of branch destinations.
	target int
	alt    int
	hasRet bool
}

type function struct {
	name    string
	params  int
	nregs   int
	retBits uint64
	code    []inst
	host    hostFunc
}

type lowerer struct {
	fn    *ir.Func
	slots map[*ir.Global]slot
	funcs map[*ir.Func]*function
	regs  map[value.Value]int
	start map[*ir.Block]int
	out   *function
}

// lowerFunc translates the body of f into a register program.
func lowerFunc(f *ir.Func, out *function, slots map[*ir.Global]slot, funcs map[*ir.Func]*function) error {
	l := &lowerer{
		fn:    f,
		slots: slots,
		funcs: funcs,
		regs:  make(map[value.Value]int),
		start: make(map[*ir.Block]int),
		out:   out,
	}
	for _, p := range f.Params {
		l.regs[p] = len(l.regs)
	}
	for _, b := range f.Blocks {
		for _, in := range b.Insts {
			if v, ok := in.(value.Value); ok && !types.Equal(v.Type(), types.Void) {
				l.regs[v] = len(l.regs)
			}
		}
	}
	out.nregs = len(l.regs)

	type fixup struct {
		pc      int
		targets [2]*ir.Block
	}
	var fixups []fixup
	for _, b := range f.Blocks {
		l.start[b] = len(out.code)
		for _, in := range b.Insts {
			lowered, err := l.inst(in)
			if err != nil {
				return fmt.Errorf("%s, block %s: %w", f.Ident(), b.Ident(), err)
			}
			out.code = append(out.code, lowered)
		}
		term, targets, err := l.term(b.Term)
		if err != nil {
			return fmt.Errorf("%s, block %s: %w", f.Ident(), b.Ident(), err)
		}
		fixups = append(fixups, fixup{pc: len(out.code), targets: targets})
		out.code = append(out.code, term)
	}
	for _, fx := range fixups {
		in := &out.code[fx.pc]
		for i, t := range fx.targets {
			if t == nil {
				continue
			}
			pc, ok := l.start[t]
			if !ok {
				return fmt.Errorf("%s: branch to block %s outside the function", f.Ident(), t.Ident())
			}
			if i == 0 {
				in.target = pc
			} else {
				in.alt = pc
			}
		}
	}
	return nil
}

func (l *lowerer) operand(v value.Value) (operand, error) {
	switch v := v.(type) {
	case *constant.Int:
		var u uint64
		if v.X.IsInt64() {
			u = uint64(v.X.Int64())
		} else if v.X.IsUint64() {
			u = v.X.Uint64()
		} else {
			return operand{}, fmt.Errorf("constant %s does not fit in 64 bits", v.Ident())
		}
		return operand{imm: u & mask(v.Typ.BitSize), isImm: true}, nil
	case *constant.Null:
		return operand{isImm: true}, nil
	case *ir.Global:
		s, ok := l.slots[v]
		if !ok {
			return operand{}, fmt.Errorf("global %s is not part of the module", v.Ident())
		}
		return operand{imm: s.off, isImm: true}, nil
	}
	if r, ok := l.regs[v]; ok {
		return operand{reg: r}, nil
	}
	return operand{}, fmt.Errorf("unsupported operand %s", v.Ident())
}

func (l *lowerer) dst(v value.Value) int {
	return l.regs[v]
}

func (l *lowerer) binary(op opcode, res, x, y value.Value) (inst, error) {
	a, err := l.operand(x)
	if err != nil {
		return inst{}, err
	}
	b, err := l.operand(y)
	if err != nil {
		return inst{}, err
	}
	bits, err := bitsOf(res.Type())
	if err != nil {
		return inst{}, err
	}
	return inst{op: op, dst: l.dst(res), a: a, b: b, bits: bits}, nil
}

func (l *lowerer) cast(op opcode, res, from value.Value) (inst, error) {
	a, err := l.operand(from)
	if err != nil {
		return inst{}, err
	}
	fromBits, err := bitsOf(from.Type())
	if err != nil {
		return inst{}, err
	}
	toBits, err := bitsOf(res.Type())
	if err != nil {
		return inst{}, err
	}
	return inst{op: op, dst: l.dst(res), a: a, bits: toBits, size: fromBits}, nil
}

func (l *lowerer) inst(in ir.Instruction) (inst, error) {
	switch in := in.(type) {
	case *ir.InstAdd:
		return l.binary(opAdd, in, in.X, in.Y)
	case *ir.InstSub:
		return l.binary(opSub, in, in.X, in.Y)
	case *ir.InstMul:
		return l.binary(opMul, in, in.X, in.Y)
	case *ir.InstAnd:
		return l.binary(opAnd, in, in.X, in.Y)
	case *ir.InstOr:
		return l.binary(opOr, in, in.X, in.Y)
	case *ir.InstXor:
		return l.binary(opXor, in, in.X, in.Y)
	case *ir.InstICmp:
		out, err := l.binary(opICmp, in, in.X, in.Y)
		if err != nil {
			return inst{}, err
		}
		// Comparisons operate at the operand width.
		if out.bits, err = bitsOf(in.X.Type()); err != nil {
			return inst{}, err
		}
		out.pred = in.Pred
		return out, nil
	case *ir.InstLoad:
		a, err := l.operand(in.Src)
		if err != nil {
			return inst{}, err
		}
		size, err := sizeOf(in.ElemType)
		if err != nil {
			return inst{}, err
		}
		if size > 8 {
			return inst{}, fmt.Errorf("load of aggregate type %s", in.ElemType)
		}
		return inst{op: opLoad, dst: l.dst(in), a: a, size: size}, nil
	case *ir.InstStore:
		v, err := l.operand(in.Src)
		if err != nil {
			return inst{}, err
		}
		p, err := l.operand(in.Dst)
		if err != nil {
			return inst{}, err
		}
		size, err := sizeOf(in.Src.Type())
		if err != nil {
			return inst{}, err
		}
		if size > 8 {
			return inst{}, fmt.Errorf("store of aggregate type %s", in.Src.Type())
		}
		return inst{op: opStore, a: p, b: v, size: size}, nil
	case *ir.InstGetElementPtr:
		return l.gep(in)
	case *ir.InstTrunc:
		return l.cast(opTrunc, in, in.From)
	case *ir.InstZExt:
		return l.cast(opZExt, in, in.From)
	case *ir.InstSExt:
		return l.cast(opSExt, in, in.From)
	case *ir.InstCall:
		return l.call(in)
	}
	return inst{}, fmt.Errorf("unsupported instruction %T", in)
}

func (l *lowerer) gep(in *ir.InstGetElementPtr) (inst, error) {
	base, err := l.operand(in.Src)
	if err != nil {
		return inst{}, err
	}
	out := inst{op: opGEP, dst: l.dst(in), a: base}
	t := in.ElemType
	for i, idx := range in.Indices {
		if i > 0 {
			arr, ok := t.(*types.ArrayType)
			if !ok {
				return inst{}, fmt.Errorf("getelementptr into non-array type %s", t)
			}
			t = arr.ElemType
		}
		scale, err := sizeOf(t)
		if err != nil {
			return inst{}, err
		}
		op, err := l.operand(idx)
		if err != nil {
			return inst{}, err
		}
		bits, err := bitsOf(idx.Type())
		if err != nil {
			return inst{}, err
		}
		out.terms = append(out.terms, gepTerm{idx: op, bits: bits, scale: scale})
	}
	return out, nil
}

func (l *lowerer) call(in *ir.InstCall) (inst, error) {
	callee, ok := in.Callee.(*ir.Func)
	if !ok {
		return inst{}, fmt.Errorf("indirect call through %s", in.Callee.Ident())
	}
	target, ok := l.funcs[callee]
	if !ok {
		return inst{}, fmt.Errorf("call to %s outside the module", callee.Ident())
	}
	if len(in.Args) != target.params {
		return inst{}, fmt.Errorf("call to %s with %d argument(s), want %d", callee.Ident(), len(in.Args), target.params)
	}
	out := inst{op: opCall, callee: target}
	for _, arg := range in.Args {
		op, err := l.operand(arg)
		if err != nil {
			return inst{}, err
		}
		out.args = append(out.args, op)
	}
	if !types.Equal(in.Type(), types.Void) {
		bits, err := bitsOf(in.Type())
		if err != nil {
			return inst{}, err
		}
		out.dst, out.bits, out.hasRet = l.dst(in), bits, true
	}
	return out, nil
}

func (l *lowerer) term(t ir.Terminator) (inst, [2]*ir.Block, error) {
	var none [2]*ir.Block
	switch t := t.(type) {
	case *ir.TermBr:
		target := irutil.AsBlock(t.Target)
		if target == nil {
			return inst{}, none, fmt.Errorf("branch target is not a block")
		}
		return inst{op: opBr}, [2]*ir.Block{target}, nil
	case *ir.TermCondBr:
		c, err := l.operand(t.Cond)
		if err != nil {
			return inst{}, none, err
		}
		tt, tf := irutil.AsBlock(t.TargetTrue), irutil.AsBlock(t.TargetFalse)
		if tt == nil || tf == nil {
			return inst{}, none, fmt.Errorf("branch target is not a block")
		}
		return inst{op: opCondBr, a: c}, [2]*ir.Block{tt, tf}, nil
	case *ir.TermRet:
		if t.X == nil {
			return inst{op: opRet}, none, nil
		}
		a, err := l.operand(t.X)
		if err != nil {
			return inst{}, none, err
		}
		return inst{op: opRet, a: a, hasRet: true}, none, nil
	case *ir.TermUnreachable:
		return inst{op: opUnreachable}, none, nil
	case nil:
		return inst{}, none, fmt.Errorf("block is not terminated")
	}
	return inst{}, none, fmt.Errorf("unsupported terminator %T", t)
}
