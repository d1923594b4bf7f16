package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/llir/llvm/ir"

	"github.com/vk/brainjit/internal/ctxlog"
	"github.com/vk/brainjit/internal/source"
)

// loopFrame is one open bracket.
type loopFrame struct {
	id     int
	header *ir.Block
	body   *ir.Block
	end    *ir.Block
	open   source.Position
}

// buildFlow consumes tokens until end of input, appending straight-line code
// to the current block and opening or closing loops at brackets. Nesting is
// tracked on an explicit stack, so depth is bounded only by MaxNesting.
// It returns the block that is still open at end of input.
func (s *Session) buildFlow(ctx context.Context, f *ir.Func, cur *ir.Block, sc *source.Scanner) (*ir.Block, error) {
	logger := ctxlog.FromContext(ctx)
	var stack []loopFrame
	loops := 0

	for {
		tok, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Kind: KindInput, Pos: sc.Pos(), Msg: "failed to read program", Err: err}
		}
		s.stats.Ops++

		switch tok.Op {
		case source.OpLoopStart:
			if s.opts.MaxNesting > 0 && len(stack) >= s.opts.MaxNesting {
				return nil, &Error{
					Kind: KindResource,
					Pos:  tok.Pos,
					Msg:  fmt.Sprintf("loop nesting exceeds the limit of %d", s.opts.MaxNesting),
				}
			}
			fr := loopFrame{
				id:     loops,
				header: f.NewBlock(fmt.Sprintf("loop.header.%d", loops)),
				body:   f.NewBlock(fmt.Sprintf("loop.body.%d", loops)),
				end:    f.NewBlock(fmt.Sprintf("loop.end.%d", loops)),
				open:   tok.Pos,
			}
			loops++
			cur.NewBr(fr.header)
			s.emitLoopTest(fr.header, fr.body, fr.end)
			stack = append(stack, fr)
			s.stats.Loops++
			s.stats.MaxDepth = max(s.stats.MaxDepth, len(stack))
			cur = fr.body

		case source.OpLoopEnd:
			if len(stack) == 0 {
				return nil, syntaxError(tok.Pos, "unmatched ']'")
			}
			fr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cond := f.NewBlock(fmt.Sprintf("loop.cond.%d", fr.id))
			cur.NewBr(cond)
			s.emitLoopTest(cond, fr.body, fr.end)
			cur = fr.end

		default:
			if err := s.emitOp(cur, tok.Op); err != nil {
				return nil, &Error{Kind: KindSyntax, Pos: tok.Pos, Err: err}
			}
		}
	}

	s.stats.FinalDepth = len(stack)
	if len(stack) > 0 {
		innermost := stack[len(stack)-1]
		return nil, syntaxError(innermost.open, fmt.Sprintf("unmatched '[' (%d bracket(s) left open)", len(stack)))
	}
	logger.Debug("Control flow built.", "ops", s.stats.Ops, "loops", loops, "max_depth", s.stats.MaxDepth)
	return cur, nil
}
