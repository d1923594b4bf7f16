//go:build unix

package engine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allocate maps size bytes of zeroed, private anonymous memory.
func allocate(size uint64) ([]byte, func() error, error) {
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to map %d bytes of engine memory: %w", size, err)
	}
	return mem, func() error { return unix.Munmap(mem) }, nil
}
