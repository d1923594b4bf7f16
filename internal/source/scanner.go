package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Scanner reads significant tokens from a program, forward only.
type Scanner struct {
	r      *bufio.Reader
	closer io.Closer
	pos    Position
}

// NewScanner returns a scanner reading from r. name is used in positions.
func NewScanner(r io.Reader, name string) *Scanner {
	return &Scanner{
		r:   bufio.NewReader(r),
		pos: Position{File: name, Line: 1, Column: 1},
	}
}

// Open opens the file at path for scanning. The caller must Close the scanner.
func Open(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("the file %s could not be opened: %w", path, err)
	}
	s := NewScanner(f, path)
	s.closer = f
	return s, nil
}

// Next returns the next significant token. It returns io.EOF once the input
// is exhausted; any other error comes from the underlying reader.
func (s *Scanner) Next() (Token, error) {
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Token{}, io.EOF
			}
			return Token{}, fmt.Errorf("reading %s: %w", s.pos, err)
		}

		pos := s.pos
		s.advance(c)
		if IsOp(c) {
			return Token{Op: Op(c), Pos: pos}, nil
		}
	}
}

// Pos returns the position of the next unread byte.
func (s *Scanner) Pos() Position {
	return s.pos
}

func (s *Scanner) advance(c byte) {
	s.pos.Offset++
	if c == '\n' {
		s.pos.Line++
		s.pos.Column = 1
		return
	}
	s.pos.Column++
}

// Close releases the file opened by Open. It is a no-op for scanners built
// with NewScanner.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
