package passes

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/vk/brainjit/internal/irutil"
)

// CSE removes redundant computations inside each basic block. Pure
// instructions are value-numbered, loads are forwarded from earlier loads and
// stores to the same address, and stores that are overwritten before being
// read are deleted. Calls clobber everything known about memory.
type CSE struct{}

func (CSE) Name() string { return "cse" }

func (CSE) Run(f *ir.Func) bool {
	repl := make(map[value.Value]value.Value)
	resolve := func(v value.Value) value.Value {
		for {
			r, ok := repl[v]
			if !ok {
				return v
			}
			v = r
		}
	}
	dead := make(map[ir.Instruction]bool)

	for _, b := range f.Blocks {
		numbered := make(map[exprKey]value.Value)
		mem := make(map[value.Value]value.Value)
		pending := make(map[value.Value]*ir.InstStore)

		for _, inst := range b.Insts {
			ops, known := irutil.Operands(inst)
			for _, op := range ops {
				*op = resolve(*op)
			}
			switch in := inst.(type) {
			case *ir.InstLoad:
				if v, ok := mem[in.Src]; ok && types.Equal(v.Type(), in.ElemType) {
					repl[in] = v
					dead[in] = true
					continue
				}
				for p := range pending {
					if mayAlias(p, in.Src) {
						delete(pending, p)
					}
				}
				mem[in.Src] = in
			case *ir.InstStore:
				if v, ok := mem[in.Dst]; ok && v == in.Src {
					dead[in] = true
					continue
				}
				if prev, ok := pending[in.Dst]; ok {
					dead[prev] = true
				}
				for p := range mem {
					if mayAlias(p, in.Dst) {
						delete(mem, p)
					}
				}
				mem[in.Dst] = in.Src
				pending[in.Dst] = in
			default:
				if !known || irutil.HasSideEffects(inst) {
					clear(mem)
					clear(pending)
					continue
				}
				key, ok := keyOf(inst)
				if !ok {
					continue
				}
				if v, ok := numbered[key]; ok {
					repl[inst.(value.Value)] = v
					dead[inst] = true
					continue
				}
				numbered[key] = inst.(value.Value)
			}
		}
	}

	if len(dead) == 0 {
		return removeDead(f)
	}
	for _, b := range f.Blocks {
		kept := b.Insts[:0]
		for _, inst := range b.Insts {
			if dead[inst] {
				continue
			}
			ops, _ := irutil.Operands(inst)
			for _, op := range ops {
				*op = resolve(*op)
			}
			kept = append(kept, inst)
		}
		b.Insts = kept
		if b.Term != nil {
			for _, op := range irutil.TermOperands(b.Term) {
				*op = resolve(*op)
			}
		}
	}
	removeDead(f)
	return true
}

// exprKey identifies a pure computation by opcode, result type and operands.
// Constants are keyed by their printed form since equal constants are not
// necessarily the same object.
type exprKey struct {
	op   string
	typ  string
	pred enum.IPred
	args [4]any
}

func keyOf(inst ir.Instruction) (exprKey, bool) {
	var k exprKey
	var ops []value.Value
	switch in := inst.(type) {
	case *ir.InstAdd:
		k.op, ops = "add", []value.Value{in.X, in.Y}
	case *ir.InstSub:
		k.op, ops = "sub", []value.Value{in.X, in.Y}
	case *ir.InstMul:
		k.op, ops = "mul", []value.Value{in.X, in.Y}
	case *ir.InstAnd:
		k.op, ops = "and", []value.Value{in.X, in.Y}
	case *ir.InstOr:
		k.op, ops = "or", []value.Value{in.X, in.Y}
	case *ir.InstXor:
		k.op, ops = "xor", []value.Value{in.X, in.Y}
	case *ir.InstICmp:
		k.op, k.pred, ops = "icmp", in.Pred, []value.Value{in.X, in.Y}
	case *ir.InstTrunc:
		k.op, ops = "trunc", []value.Value{in.From}
	case *ir.InstZExt:
		k.op, ops = "zext", []value.Value{in.From}
	case *ir.InstSExt:
		k.op, ops = "sext", []value.Value{in.From}
	case *ir.InstGetElementPtr:
		k.op = "gep " + in.ElemType.String()
		ops = append([]value.Value{in.Src}, in.Indices...)
	default:
		return k, false
	}
	if len(ops) > len(k.args) {
		return k, false
	}
	k.typ = inst.(value.Value).Type().String()
	for i, op := range ops {
		if c, ok := op.(constant.Constant); ok {
			if _, isGlobal := op.(*ir.Global); !isGlobal {
				if _, isFunc := op.(*ir.Func); !isFunc {
					k.args[i] = c.Type().String() + " " + c.Ident()
					continue
				}
			}
		}
		k.args[i] = op
	}
	return k, true
}

// location describes what is known statically about a pointer.
type location struct {
	base    *ir.Global
	elem    string
	indices []int64
	exact   bool
}

func locate(p value.Value) (location, bool) {
	switch ptr := p.(type) {
	case *ir.Global:
		return location{base: ptr, exact: true}, true
	case *ir.InstGetElementPtr:
		g, ok := ptr.Src.(*ir.Global)
		if !ok {
			return location{}, false
		}
		loc := location{base: g, elem: ptr.ElemType.String(), exact: true}
		for _, idx := range ptr.Indices {
			c, ok := intConst(idx)
			if !ok {
				loc.exact = false
				loc.indices = nil
				break
			}
			loc.indices = append(loc.indices, signed(c))
		}
		return loc, true
	}
	return location{}, false
}

// mayAlias reports whether two pointers could refer to overlapping memory.
func mayAlias(p, q value.Value) bool {
	if p == q {
		return true
	}
	lp, okP := locate(p)
	lq, okQ := locate(q)
	if !okP || !okQ {
		return true
	}
	if lp.base != lq.base {
		return false
	}
	if !lp.exact || !lq.exact || lp.elem != lq.elem || len(lp.indices) != len(lq.indices) {
		return true
	}
	for i := range lp.indices {
		if lp.indices[i] != lq.indices[i] {
			return false
		}
	}
	return true
}
