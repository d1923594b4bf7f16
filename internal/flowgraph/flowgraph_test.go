package flowgraph

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopFunc builds: entry -> header; header -> body|end; body -> header; end: ret.
// An orphan block with no predecessors is appended last.
func loopFunc() (*ir.Func, map[string]*ir.Block) {
	m := ir.NewModule()
	f := m.NewFunc("f", types.Void)
	entry := f.NewBlock("entry")
	header := f.NewBlock("header")
	body := f.NewBlock("body")
	end := f.NewBlock("end")
	orphan := f.NewBlock("orphan")

	entry.NewBr(header)
	header.NewCondBr(constant.True, body, end)
	body.NewBr(header)
	end.NewRet(nil)
	orphan.NewBr(end)

	return f, map[string]*ir.Block{
		"entry": entry, "header": header, "body": body, "end": end, "orphan": orphan,
	}
}

func TestBuild_Edges(t *testing.T) {
	f, b := loopFunc()

	g, err := Build(f)
	require.NoError(t, err)

	assert.Equal(t, b["entry"], g.Entry())
	assert.Equal(t, []*ir.Block{b["body"], b["end"]}, g.Succs(b["header"]))
	assert.ElementsMatch(t, []*ir.Block{b["entry"], b["body"]}, g.Preds(b["header"]))
	assert.ElementsMatch(t, []*ir.Block{b["header"], b["orphan"]}, g.Preds(b["end"]))
	assert.Empty(t, g.Succs(b["end"]))
}

func TestBuild_ForeignTarget(t *testing.T) {
	m := ir.NewModule()
	other := m.NewFunc("other", types.Void)
	foreign := other.NewBlock("foreign")
	foreign.NewRet(nil)

	f := m.NewFunc("f", types.Void)
	f.NewBlock("entry").NewBr(foreign)

	_, err := Build(f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside function")
}

func TestReachable(t *testing.T) {
	f, b := loopFunc()
	g, err := Build(f)
	require.NoError(t, err)

	seen := g.Reachable()

	assert.True(t, seen[b["entry"]])
	assert.True(t, seen[b["body"]])
	assert.True(t, seen[b["end"]])
	assert.False(t, seen[b["orphan"]])
}

func TestDominators(t *testing.T) {
	f, b := loopFunc()
	g, err := Build(f)
	require.NoError(t, err)

	assert.True(t, g.Dominates(b["entry"], b["end"]))
	assert.True(t, g.Dominates(b["header"], b["body"]))
	assert.True(t, g.Dominates(b["header"], b["end"]))
	assert.False(t, g.Dominates(b["body"], b["end"]))
	assert.False(t, g.Dominates(b["orphan"], b["end"]))
	assert.False(t, g.Dominates(b["entry"], b["orphan"]))
	assert.True(t, g.Dominates(b["body"], b["body"]))

	assert.Equal(t, b["header"], g.IDom(b["end"]))
	assert.Equal(t, b["entry"], g.IDom(b["header"]))
	assert.Nil(t, g.IDom(b["entry"]))
}

func TestBackEdges(t *testing.T) {
	f, b := loopFunc()
	g, err := Build(f)
	require.NoError(t, err)

	edges := g.BackEdges()

	require.Len(t, edges, 1)
	assert.Equal(t, [2]*ir.Block{b["body"], b["header"]}, edges[0])
}

func TestDeepChainDoesNotRecurse(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("chain", types.Void)
	const n = 20000
	bs := make([]*ir.Block, n)
	for i := range bs {
		bs[i] = f.NewBlock("")
	}
	for i := 0; i < n-1; i++ {
		bs[i].NewBr(bs[i+1])
	}
	bs[n-1].NewRet(nil)

	g, err := Build(f)
	require.NoError(t, err)

	assert.Len(t, g.Reachable(), n)
	assert.True(t, g.Dominates(bs[0], bs[n-1]))
	assert.Equal(t, bs[n-2], g.IDom(bs[n-1]))
}
