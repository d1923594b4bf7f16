package compiler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/vk/brainjit/internal/ctxlog"
	"github.com/vk/brainjit/internal/irutil"
	"github.com/vk/brainjit/internal/passes"
	"github.com/vk/brainjit/internal/source"
)

// DefaultTapeSize is the number of cells on the tape unless configured otherwise.
const DefaultTapeSize = 655360

// Pipeline optimizes a single function.
type Pipeline interface {
	Run(ctx context.Context, f *ir.Func) (passes.Report, error)
}

// Backend provides the optimization and verification services a session uses.
type Backend interface {
	NewPipeline(names []string) (Pipeline, error)
	Verify(m *ir.Module) error
}

// Options configure a Session.
type Options struct {
	// TapeSize is the number of cells.
	TapeSize uint32
	// HeadStart is the initial head position. Zero selects the middle of the tape.
	HeadStart uint32
	// MaxNesting limits loop depth. Zero means unlimited.
	MaxNesting int
	// Passes names the optimization passes to run over the program unit, in
	// order. Empty disables optimization.
	Passes []string
	// ModuleName is recorded as the module's source file name.
	ModuleName string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{TapeSize: DefaultTapeSize}
}

func (o Options) head() uint32 {
	if o.HeadStart == 0 {
		return o.TapeSize / 2
	}
	return o.HeadStart
}

// Validate reports options that cannot produce a working module.
func (o Options) Validate() error {
	if o.TapeSize == 0 {
		return errors.New("tape size must be positive")
	}
	if o.TapeSize > math.MaxInt32 {
		return fmt.Errorf("tape size %d does not fit the 32-bit head", o.TapeSize)
	}
	if o.HeadStart >= o.TapeSize {
		return fmt.Errorf("head start %d is outside a tape of %d cells", o.HeadStart, o.TapeSize)
	}
	if o.MaxNesting < 0 {
		return fmt.Errorf("max nesting %d is negative", o.MaxNesting)
	}
	return nil
}

// Fingerprint identifies every option that changes the generated module.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("tape=%d;head=%d;nesting=%d;passes=%s", o.TapeSize, o.head(), o.MaxNesting, strings.Join(o.Passes, ","))
}

// Stats describes one compilation.
type Stats struct {
	Ops         int
	Loops       int
	MaxDepth    int
	FinalDepth  int
	Blocks      int
	InstsBefore int
	InstsAfter  int
	Optimized   bool
}

// Session compiles one program into one module. Sessions are independent of
// each other and are not safe for concurrent use.
type Session struct {
	id   string
	opts Options
	be   Backend

	module   *ir.Module
	compiled bool
	released bool

	tapeType *types.ArrayType
	tape     *ir.Global
	head     *ir.Global
	getchar  *ir.Func
	putchar  *ir.Func

	stats Stats
}

// NewSession returns a session that compiles with opts, optimizing and
// verifying through be.
func NewSession(opts Options, be Backend) *Session {
	return &Session{
		id:   uuid.NewString(),
		opts: opts,
		be:   be,
	}
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string { return s.id }

// Compile reads the whole program from sc and builds, optionally optimizes,
// and verifies the module. A session compiles exactly once.
func (s *Session) Compile(ctx context.Context, sc *source.Scanner) (*ir.Module, error) {
	if s.compiled {
		return nil, errors.New("session has already compiled a program")
	}
	s.compiled = true
	ctx = ctxlog.With(ctx, "session", s.id)
	logger := ctxlog.FromContext(ctx)

	if err := s.opts.Validate(); err != nil {
		return nil, &Error{Kind: KindResource, Msg: "invalid options", Err: err}
	}

	s.module = ir.NewModule()
	s.module.SourceFilename = s.opts.ModuleName
	s.declareHost()
	s.allocateTape()
	s.allocateHead()
	logger.Debug("Session bootstrapped.", "tape_size", s.opts.TapeSize, "head_start", s.opts.head())

	program, err := s.assembleProgram(ctx, sc)
	if err != nil {
		s.module = nil
		return nil, err
	}
	s.stats.InstsBefore = irutil.InstCount(program)
	s.stats.InstsAfter = s.stats.InstsBefore

	if len(s.opts.Passes) > 0 {
		if err := s.optimize(ctx, program); err != nil {
			s.module = nil
			return nil, err
		}
	}
	s.stats.Blocks = len(program.Blocks)

	s.assembleEntry(program)

	if err := s.be.Verify(s.module); err != nil {
		return s.module, &Error{Kind: KindVerification, Msg: "module is invalid", Err: err}
	}
	logger.Debug("Module compiled and verified.",
		"ops", s.stats.Ops,
		"loops", s.stats.Loops,
		"blocks", s.stats.Blocks,
		"insts", s.stats.InstsAfter,
	)
	return s.module, nil
}

func (s *Session) optimize(ctx context.Context, f *ir.Func) error {
	pipeline, err := s.be.NewPipeline(s.opts.Passes)
	if err != nil {
		return &Error{Kind: KindBackend, Msg: "failed to build optimization pipeline", Err: err}
	}
	report, err := pipeline.Run(ctx, f)
	if err != nil {
		return &Error{Kind: KindBackend, Msg: "optimization failed", Err: err}
	}
	s.stats.InstsAfter = report.InstsAfter()
	s.stats.Optimized = true
	ctxlog.FromContext(ctx).Debug("Program unit optimized.",
		"insts_before", report.InstsBefore,
		"insts_after", report.InstsAfter(),
		"blocks_before", report.BlocksBefore,
		"blocks_after", report.BlocksAfter(),
	)
	return nil
}

// Stats returns statistics of the last compilation.
func (s *Session) Stats() Stats { return s.stats }

// Release hands the compiled module to the caller. The session keeps no
// reference to it afterwards.
func (s *Session) Release() (*ir.Module, error) {
	if s.released {
		return nil, errors.New("module has already been released")
	}
	if s.module == nil {
		return nil, errors.New("no compiled module to release")
	}
	m := s.module
	s.module = nil
	s.released = true
	return m, nil
}
