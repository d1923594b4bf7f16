package engine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// ErrOutOfBounds is returned when the program touches memory outside its globals.
var ErrOutOfBounds = errors.New("memory access out of range")

// Offsets below nullGuard are never handed out, so a zero pointer always faults.
const nullGuard = 16

type slot struct {
	off  uint64
	size uint64
}

// sizeOf returns the number of bytes a value of type t occupies in memory.
func sizeOf(t types.Type) (uint64, error) {
	switch t := t.(type) {
	case *types.IntType:
		return (t.BitSize + 7) / 8, nil
	case *types.PointerType:
		return 8, nil
	case *types.ArrayType:
		elem, err := sizeOf(t.ElemType)
		if err != nil {
			return 0, err
		}
		return t.Len * elem, nil
	}
	return 0, fmt.Errorf("unsupported memory type %s", t)
}

// bitsOf returns the register width of a first-class value of type t.
func bitsOf(t types.Type) (uint64, error) {
	switch t := t.(type) {
	case *types.IntType:
		if t.BitSize > 64 {
			return 0, fmt.Errorf("integer type %s is wider than 64 bits", t)
		}
		return t.BitSize, nil
	case *types.PointerType:
		return 64, nil
	}
	return 0, fmt.Errorf("unsupported value type %s", t)
}

// layout assigns an aligned slot to every global of m and returns the
// total memory size required.
func layout(m *ir.Module) (map[*ir.Global]slot, uint64, error) {
	slots := make(map[*ir.Global]slot, len(m.Globals))
	next := uint64(nullGuard)
	for _, g := range m.Globals {
		size, err := sizeOf(g.ContentType)
		if err != nil {
			return nil, 0, fmt.Errorf("global %s: %w", g.Ident(), err)
		}
		slots[g] = slot{off: next, size: size}
		next += (size + 7) &^ 7
	}
	return slots, next, nil
}

// initialise writes the initial value of every global into mem.
func initialise(m *ir.Module, slots map[*ir.Global]slot, mem []byte) error {
	for _, g := range m.Globals {
		s := slots[g]
		if g.Init == nil {
			continue
		}
		if err := writeConst(mem[s.off:s.off+s.size], g.Init, slots); err != nil {
			return fmt.Errorf("global %s: %w", g.Ident(), err)
		}
	}
	return nil
}

func writeConst(dst []byte, c constant.Constant, slots map[*ir.Global]slot) error {
	switch c := c.(type) {
	case *constant.ZeroInitializer:
		clear(dst)
		return nil
	case *constant.Int:
		var u uint64
		if c.X.IsInt64() {
			u = uint64(c.X.Int64())
		} else {
			u = c.X.Uint64()
		}
		store(dst, uint64(len(dst)), u)
		return nil
	case *constant.CharArray:
		copy(dst, c.X)
		return nil
	case *constant.Array:
		if len(c.Elems) == 0 {
			return nil
		}
		elem := uint64(len(dst)) / uint64(len(c.Elems))
		for i, e := range c.Elems {
			if err := writeConst(dst[uint64(i)*elem:uint64(i+1)*elem], e, slots); err != nil {
				return err
			}
		}
		return nil
	case *constant.Null:
		clear(dst)
		return nil
	case *ir.Global:
		store(dst, 8, slots[c].off)
		return nil
	}
	return fmt.Errorf("unsupported initializer %s", c.Ident())
}

func load(src []byte, size uint64) uint64 {
	switch size {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(src))
	case 4:
		return uint64(binary.LittleEndian.Uint32(src))
	}
	return binary.LittleEndian.Uint64(src)
}

func store(dst []byte, size uint64, v uint64) {
	switch size {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	default:
		binary.LittleEndian.PutUint64(dst, v)
	}
}

func mask(bits uint64) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

func signExtend(u, bits uint64) int64 {
	if bits >= 64 || bits == 0 {
		return int64(u)
	}
	shift := 64 - bits
	return int64(u<<shift) >> shift
}
