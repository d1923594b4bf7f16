package engine

import (
	"errors"
	"io"
)

// hostFunc implements an external declaration in Go.
type hostFunc func(e *Engine, args []uint64) (uint64, error)

type primitive struct {
	params int
	fn     hostFunc
}

// primitives are the host functions a module may declare and call.
var primitives = map[string]primitive{
	"getchar": {params: 0, fn: hostGetchar},
	"putchar": {params: 1, fn: hostPutchar},
}

// hostGetchar reads one byte from the engine's input. End of input and read
// errors both yield -1.
func hostGetchar(e *Engine, _ []uint64) (uint64, error) {
	c, err := e.stdin.ReadByte()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			e.logger.Debug("Input read failed, returning EOF to program.", "error", err)
		}
		return uint64(0xFFFFFFFF), nil
	}
	return uint64(c), nil
}

func hostPutchar(e *Engine, args []uint64) (uint64, error) {
	c := byte(args[0])
	if err := e.stdout.WriteByte(c); err != nil {
		return 0, err
	}
	return uint64(c), nil
}
