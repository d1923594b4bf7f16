package passes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/llir/llvm/ir"

	"github.com/vk/brainjit/internal/ctxlog"
	"github.com/vk/brainjit/internal/irutil"
)

// Pass rewrites one function in place.
type Pass interface {
	Name() string
	// Run transforms f and reports whether anything changed.
	Run(f *ir.Func) bool
}

// registry maps pass names to their constructors.
var registry = map[string]func() Pass{
	"peephole":    func() Pass { return Peephole{} },
	"reassociate": func() Pass { return Reassociate{} },
	"cse":         func() Pass { return CSE{} },
	"simplifycfg": func() Pass { return SimplifyCFG{} },
}

// DefaultNames returns the default pipeline, in order.
func DefaultNames() []string {
	return []string{"peephole", "reassociate", "cse", "simplifycfg"}
}

// Names returns every registered pass name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a fresh instance of the named pass.
func Lookup(name string) (Pass, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown optimization pass %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Pipeline is an ordered list of passes.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds a pipeline from pass names. An empty list yields the
// default pipeline.
func NewPipeline(names ...string) (*Pipeline, error) {
	if len(names) == 0 {
		names = DefaultNames()
	}
	p := &Pipeline{}
	for _, name := range names {
		pass, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		p.passes = append(p.passes, pass)
	}
	return p, nil
}

// Names returns the pass names in pipeline order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name()
	}
	return names
}

// PassResult records the effect of one pass.
type PassResult struct {
	Name    string
	Changed bool
	Insts   int
	Blocks  int
}

// Report summarises one pipeline run over a function.
type Report struct {
	Func         string
	InstsBefore  int
	BlocksBefore int
	Passes       []PassResult
}

// InstsAfter returns the instruction count after the last pass.
func (r Report) InstsAfter() int {
	if len(r.Passes) == 0 {
		return r.InstsBefore
	}
	return r.Passes[len(r.Passes)-1].Insts
}

// BlocksAfter returns the block count after the last pass.
func (r Report) BlocksAfter() int {
	if len(r.Passes) == 0 {
		return r.BlocksBefore
	}
	return r.Passes[len(r.Passes)-1].Blocks
}

// Changed reports whether any pass changed the function.
func (r Report) Changed() bool {
	for _, p := range r.Passes {
		if p.Changed {
			return true
		}
	}
	return false
}

// Run runs every pass once, in order, over f.
func (p *Pipeline) Run(ctx context.Context, f *ir.Func) (Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := Report{
		Func:         f.Name(),
		InstsBefore:  irutil.InstCount(f),
		BlocksBefore: len(f.Blocks),
	}
	for _, pass := range p.passes {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("optimization of %s interrupted before %s: %w", f.Ident(), pass.Name(), err)
		}
		changed := pass.Run(f)
		res := PassResult{
			Name:    pass.Name(),
			Changed: changed,
			Insts:   irutil.InstCount(f),
			Blocks:  len(f.Blocks),
		}
		report.Passes = append(report.Passes, res)
		logger.Debug("Optimization pass finished.", "pass", res.Name, "func", f.Name(), "changed", res.Changed, "insts", res.Insts, "blocks", res.Blocks)
	}
	irutil.ResetLocalIDs(f)
	return report, nil
}
