// Package irverify checks the structural self-consistency of a module before
// it is serialised, printed, or executed. A module that fails verification
// must not be used.
package irverify

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vk/brainjit/internal/flowgraph"
	"github.com/vk/brainjit/internal/irutil"
)

// Problem is a single verification failure.
type Problem struct {
	Func  string
	Block string
	Msg   string
}

func (p Problem) String() string {
	switch {
	case p.Func == "":
		return p.Msg
	case p.Block == "":
		return fmt.Sprintf("%s: %s", p.Func, p.Msg)
	default:
		return fmt.Sprintf("%s, block %s: %s", p.Func, p.Block, p.Msg)
	}
}

// Error lists every problem found in a module.
type Error struct {
	Problems []Problem
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module verification failed with %d problem(s)", len(e.Problems))
	for _, p := range e.Problems {
		sb.WriteString("\n  ")
		sb.WriteString(p.String())
	}
	return sb.String()
}

// Verify checks m and returns an *Error listing every problem, or nil.
func Verify(m *ir.Module) error {
	v := &verifier{
		globals: make(map[value.Value]bool),
	}
	v.module(m)
	if len(v.problems) == 0 {
		return nil
	}
	return &Error{Problems: v.problems}
}

type verifier struct {
	problems []Problem
	globals  map[value.Value]bool

	fn    *ir.Func
	block *ir.Block
}

func (v *verifier) report(format string, args ...any) {
	p := Problem{Msg: fmt.Sprintf(format, args...)}
	if v.fn != nil {
		p.Func = v.fn.Ident()
	}
	if v.block != nil {
		p.Block = v.block.Ident()
	}
	v.problems = append(v.problems, p)
}

func (v *verifier) module(m *ir.Module) {
	names := make(map[string]bool)
	for _, g := range m.Globals {
		if names[g.Name()] {
			v.report("duplicate global name %s", g.Ident())
		}
		names[g.Name()] = true
		v.globals[g] = true
		if g.Init != nil && !types.Equal(g.Init.Type(), g.ContentType) {
			v.report("global %s initializer has type %s, want %s", g.Ident(), g.Init.Type(), g.ContentType)
		}
	}
	for _, f := range m.Funcs {
		if names[f.Name()] {
			v.report("duplicate function name %s", f.Ident())
		}
		names[f.Name()] = true
		v.globals[f] = true
	}
	for _, f := range m.Funcs {
		v.function(f)
	}
}

// defSite locates the definition of an instruction value.
type defSite struct {
	block *ir.Block
	index int
}

func (v *verifier) function(f *ir.Func) {
	v.fn = f
	v.block = nil
	defer func() { v.fn, v.block = nil, nil }()

	if len(f.Blocks) == 0 {
		return
	}

	for _, b := range f.Blocks {
		if b.Term == nil {
			v.block = b
			v.report("block is not terminated")
		}
	}
	v.block = nil
	if v.hasUnterminated(f) {
		// Without terminators the CFG is meaningless.
		return
	}

	g, err := flowgraph.Build(f)
	if err != nil {
		v.report("%v", err)
		return
	}
	if preds := g.Preds(f.Blocks[0]); len(preds) > 0 {
		v.block = f.Blocks[0]
		v.report("entry block has %d predecessor(s)", len(preds))
		v.block = nil
	}

	params := make(map[value.Value]bool, len(f.Params))
	for _, p := range f.Params {
		params[p] = true
	}
	defs := make(map[value.Value]defSite)
	for _, b := range f.Blocks {
		for i, inst := range b.Insts {
			if val, ok := inst.(value.Value); ok {
				defs[val] = defSite{block: b, index: i}
			}
		}
	}

	reachable := g.Reachable()
	for _, b := range f.Blocks {
		v.block = b
		for i, inst := range b.Insts {
			ops, known := irutil.Operands(inst)
			if !known {
				v.report("unsupported instruction %T", inst)
				continue
			}
			for _, op := range ops {
				v.operand(*op, defSite{block: b, index: i}, params, defs, g, reachable[b])
			}
			v.instruction(inst)
		}
		for _, op := range irutil.TermOperands(b.Term) {
			v.operand(*op, defSite{block: b, index: len(b.Insts)}, params, defs, g, reachable[b])
		}
		v.terminator(f, b.Term)
	}
}

func (v *verifier) hasUnterminated(f *ir.Func) bool {
	for _, b := range f.Blocks {
		if b.Term == nil {
			return true
		}
	}
	return false
}

// operand checks that op is defined and, for instruction results, that its
// definition dominates the use.
func (v *verifier) operand(op value.Value, use defSite, params map[value.Value]bool, defs map[value.Value]defSite, g *flowgraph.Graph, reachable bool) {
	if op == nil {
		v.report("nil operand")
		return
	}
	switch op.(type) {
	case *ir.Func, *ir.Global:
		if !v.globals[op] {
			v.report("%s refers to a global outside the module", op.Ident())
		}
		return
	case *ir.Block:
		v.report("basic block %s used as a value", op.Ident())
		return
	case constant.Constant:
		return
	}
	if params[op] {
		return
	}
	def, ok := defs[op]
	if !ok {
		v.report("operand %s is not defined in this function", op.Ident())
		return
	}
	if !reachable {
		return
	}
	if def.block == use.block {
		if def.index >= use.index {
			v.report("%s is used before its definition", op.Ident())
		}
		return
	}
	if !g.Dominates(def.block, use.block) {
		v.report("definition of %s in %s does not dominate its use", op.Ident(), def.block.Ident())
	}
}

func (v *verifier) instruction(inst ir.Instruction) {
	switch in := inst.(type) {
	case *ir.InstAdd:
		v.binary("add", in.X, in.Y)
	case *ir.InstSub:
		v.binary("sub", in.X, in.Y)
	case *ir.InstMul:
		v.binary("mul", in.X, in.Y)
	case *ir.InstAnd:
		v.binary("and", in.X, in.Y)
	case *ir.InstOr:
		v.binary("or", in.X, in.Y)
	case *ir.InstXor:
		v.binary("xor", in.X, in.Y)
	case *ir.InstICmp:
		v.binary("icmp", in.X, in.Y)
	case *ir.InstLoad:
		elem, ok := pointee(in.Src)
		if !ok {
			v.report("load from non-pointer %s", in.Src.Type())
		} else if !types.Equal(elem, in.ElemType) {
			v.report("load of %s through pointer to %s", in.ElemType, elem)
		}
	case *ir.InstStore:
		elem, ok := pointee(in.Dst)
		if !ok {
			v.report("store to non-pointer %s", in.Dst.Type())
		} else if !types.Equal(elem, in.Src.Type()) {
			v.report("store of %s through pointer to %s", in.Src.Type(), elem)
		}
	case *ir.InstGetElementPtr:
		if _, ok := pointee(in.Src); !ok {
			v.report("getelementptr on non-pointer %s", in.Src.Type())
		}
		for _, idx := range in.Indices {
			if _, ok := idx.Type().(*types.IntType); !ok {
				v.report("getelementptr index of type %s", idx.Type())
			}
		}
	case *ir.InstCall:
		v.call(in)
	case *ir.InstTrunc:
		v.cast("trunc", in.From, in.To, func(from, to uint64) bool { return from > to })
	case *ir.InstZExt:
		v.cast("zext", in.From, in.To, func(from, to uint64) bool { return from < to })
	case *ir.InstSExt:
		v.cast("sext", in.From, in.To, func(from, to uint64) bool { return from < to })
	}
}

func (v *verifier) binary(op string, x, y value.Value) {
	if _, ok := x.Type().(*types.IntType); !ok {
		v.report("%s operand of non-integer type %s", op, x.Type())
		return
	}
	if !types.Equal(x.Type(), y.Type()) {
		v.report("%s operands have mismatched types %s and %s", op, x.Type(), y.Type())
	}
}

func (v *verifier) cast(op string, from value.Value, to types.Type, valid func(from, to uint64) bool) {
	fromT, ok1 := from.Type().(*types.IntType)
	toT, ok2 := to.(*types.IntType)
	if !ok1 || !ok2 {
		v.report("%s between non-integer types %s and %s", op, from.Type(), to)
		return
	}
	if !valid(fromT.BitSize, toT.BitSize) {
		v.report("invalid %s from %s to %s", op, fromT, toT)
	}
}

func (v *verifier) call(in *ir.InstCall) {
	callee, ok := in.Callee.(*ir.Func)
	if !ok {
		v.report("indirect call through %s is not supported", in.Callee.Ident())
		return
	}
	sig := callee.Sig
	if sig.Variadic {
		if len(in.Args) < len(sig.Params) {
			v.report("call to %s with %d argument(s), want at least %d", callee.Ident(), len(in.Args), len(sig.Params))
			return
		}
	} else if len(in.Args) != len(sig.Params) {
		v.report("call to %s with %d argument(s), want %d", callee.Ident(), len(in.Args), len(sig.Params))
		return
	}
	for i, p := range sig.Params {
		if !types.Equal(in.Args[i].Type(), p) {
			v.report("argument %d of call to %s has type %s, want %s", i, callee.Ident(), in.Args[i].Type(), p)
		}
	}
}

func (v *verifier) terminator(f *ir.Func, term ir.Terminator) {
	switch t := term.(type) {
	case *ir.TermRet:
		ret := f.Sig.RetType
		if t.X == nil {
			if !types.Equal(ret, types.Void) {
				v.report("ret void in function returning %s", ret)
			}
			return
		}
		if !types.Equal(t.X.Type(), ret) {
			v.report("ret of %s in function returning %s", t.X.Type(), ret)
		}
	case *ir.TermCondBr:
		if !types.Equal(t.Cond.Type(), types.I1) {
			v.report("branch condition of type %s, want i1", t.Cond.Type())
		}
	case *ir.TermBr, *ir.TermUnreachable:
	default:
		v.report("unsupported terminator %T", term)
	}
}

func pointee(v value.Value) (types.Type, bool) {
	pt, ok := v.Type().(*types.PointerType)
	if !ok {
		return nil, false
	}
	return pt.ElemType, true
}
