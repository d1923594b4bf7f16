package compiler

import (
	"errors"
	"strings"

	"github.com/vk/brainjit/internal/source"
)

// Kind classifies compilation failures.
type Kind int

const (
	KindInput Kind = iota + 1
	KindSyntax
	KindResource
	KindVerification
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input error"
	case KindSyntax:
		return "syntax error"
	case KindResource:
		return "resource error"
	case KindVerification:
		return "verification error"
	case KindBackend:
		return "backend error"
	}
	return "error"
}

// Error is a classified compilation failure. Pos is set for errors tied to a
// place in the source.
type Error struct {
	Kind Kind
	Pos  source.Position
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Pos.Line > 0 {
		sb.WriteString(" at ")
		sb.WriteString(e.Pos.String())
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

func syntaxError(pos source.Position, msg string) *Error {
	return &Error{Kind: KindSyntax, Pos: pos, Msg: msg}
}
