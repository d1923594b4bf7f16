package source

import "fmt"

// Op is one of the eight significant operations of the language.
type Op byte

const (
	OpIncCell   Op = '+'
	OpDecCell   Op = '-'
	OpLeft      Op = '<'
	OpRight     Op = '>'
	OpRead      Op = ','
	OpWrite     Op = '.'
	OpLoopStart Op = '['
	OpLoopEnd   Op = ']'
)

// IsOp reports whether c is a significant operator character.
func IsOp(c byte) bool {
	switch Op(c) {
	case OpIncCell, OpDecCell, OpLeft, OpRight, OpRead, OpWrite, OpLoopStart, OpLoopEnd:
		return true
	}
	return false
}

func (o Op) String() string {
	return string(rune(o))
}

// Position locates a byte in a source file. Line and Column are 1-based.
type Position struct {
	File   string
	Offset int64
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Token is a significant operation together with where it was read.
type Token struct {
	Op  Op
	Pos Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q", t.Pos, t.Op.String())
}
