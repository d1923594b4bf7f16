package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/llir/llvm/ir/enum"
)

// ErrStepLimit is returned when a run takes more branches than allowed.
var ErrStepLimit = errors.New("step limit exceeded")

// maxCallDepth bounds recursion through calls between lowered functions.
const maxCallDepth = 1 << 12

// ctxCheckInterval is how many branches run between context checks.
const ctxCheckInterval = 1 << 10

func (e *Engine) invoke(ctx context.Context, fn *function, args []uint64, depth int) (uint64, error) {
	if fn.host != nil {
		return fn.host(e, args)
	}
	if depth > maxCallDepth {
		return 0, fmt.Errorf("call depth exceeded %d in @%s", maxCallDepth, fn.name)
	}
	regs := make([]uint64, fn.nregs)
	copy(regs, args)
	val := func(o operand) uint64 {
		if o.isImm {
			return o.imm
		}
		return regs[o.reg]
	}

	pc := 0
	for {
		in := &fn.code[pc]
		pc++
		switch in.op {
		case opAdd:
			regs[in.dst] = (val(in.a) + val(in.b)) & mask(in.bits)
		case opSub:
			regs[in.dst] = (val(in.a) - val(in.b)) & mask(in.bits)
		case opMul:
			regs[in.dst] = (val(in.a) * val(in.b)) & mask(in.bits)
		case opAnd:
			regs[in.dst] = val(in.a) & val(in.b)
		case opOr:
			regs[in.dst] = val(in.a) | val(in.b)
		case opXor:
			regs[in.dst] = val(in.a) ^ val(in.b)
		case opICmp:
			if compare(in.pred, val(in.a), val(in.b), in.bits) {
				regs[in.dst] = 1
			} else {
				regs[in.dst] = 0
			}
		case opLoad:
			addr := val(in.a)
			if !e.inBounds(addr, in.size) {
				return 0, fmt.Errorf("load of %d byte(s) at %#x in @%s: %w", in.size, addr, fn.name, ErrOutOfBounds)
			}
			regs[in.dst] = load(e.mem[addr:], in.size)
		case opStore:
			addr := val(in.a)
			if !e.inBounds(addr, in.size) {
				return 0, fmt.Errorf("store of %d byte(s) at %#x in @%s: %w", in.size, addr, fn.name, ErrOutOfBounds)
			}
			store(e.mem[addr:], in.size, val(in.b))
		case opGEP:
			addr := val(in.a)
			for _, t := range in.terms {
				addr += uint64(signExtend(val(t.idx), t.bits)) * t.scale
			}
			regs[in.dst] = addr
		case opTrunc, opZExt:
			regs[in.dst] = val(in.a) & mask(in.bits)
		case opSExt:
			regs[in.dst] = uint64(signExtend(val(in.a), in.size)) & mask(in.bits)
		case opCall:
			args := make([]uint64, len(in.args))
			for i, a := range in.args {
				args[i] = val(a)
			}
			r, err := e.invoke(ctx, in.callee, args, depth+1)
			if err != nil {
				return 0, err
			}
			if in.hasRet {
				regs[in.dst] = r & mask(in.bits)
			}
		case opBr:
			if err := e.step(ctx); err != nil {
				return 0, err
			}
			pc = in.target
		case opCondBr:
			if err := e.step(ctx); err != nil {
				return 0, err
			}
			if val(in.a)&1 != 0 {
				pc = in.target
			} else {
				pc = in.alt
			}
		case opRet:
			if in.hasRet {
				return val(in.a), nil
			}
			return 0, nil
		case opUnreachable:
			return 0, fmt.Errorf("reached unreachable code in @%s", fn.name)
		}
	}
}

// step counts one branch against the step limit and periodically polls ctx.
func (e *Engine) step(ctx context.Context) error {
	e.steps++
	if e.maxSteps > 0 && e.steps > e.maxSteps {
		return fmt.Errorf("after %d branches: %w", e.maxSteps, ErrStepLimit)
	}
	if e.steps%ctxCheckInterval == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) inBounds(addr, size uint64) bool {
	return addr >= nullGuard && addr <= uint64(len(e.mem)) && size <= uint64(len(e.mem))-addr
}

func compare(pred enum.IPred, x, y, bits uint64) bool {
	sx, sy := signExtend(x, bits), signExtend(y, bits)
	switch pred {
	case enum.IPredEQ:
		return x == y
	case enum.IPredNE:
		return x != y
	case enum.IPredUGT:
		return x > y
	case enum.IPredUGE:
		return x >= y
	case enum.IPredULT:
		return x < y
	case enum.IPredULE:
		return x <= y
	case enum.IPredSGT:
		return sx > sy
	case enum.IPredSGE:
		return sx >= sy
	case enum.IPredSLT:
		return sx < sy
	case enum.IPredSLE:
		return sx <= sy
	}
	return false
}
