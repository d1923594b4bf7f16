package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/llir/llvm/ir"

	"github.com/vk/brainjit/internal/cache"
	"github.com/vk/brainjit/internal/compiler"
	"github.com/vk/brainjit/internal/ctxlog"
	"github.com/vk/brainjit/internal/source"
)

// build returns a verified module for the configured input, from the cache
// when cachePath is set and holds a valid entry.
func (a *App) build(ctx context.Context, opts compiler.Options, cachePath string) (*ir.Module, error) {
	if cachePath == "" {
		sc, err := source.Open(a.config.InputPath)
		if err != nil {
			return nil, &compiler.Error{Kind: compiler.KindInput, Err: err}
		}
		defer sc.Close()
		return a.compile(ctx, opts, sc)
	}

	src, err := os.ReadFile(a.config.InputPath)
	if err != nil {
		return nil, &compiler.Error{Kind: compiler.KindInput, Msg: fmt.Sprintf("the file %s could not be read", a.config.InputPath), Err: err}
	}
	c, err := cache.Open(ctx, cachePath)
	if err != nil {
		return nil, &compiler.Error{Kind: compiler.KindBackend, Err: err}
	}
	defer c.Close()

	key := cache.Key(src, opts.Fingerprint())
	if m := a.lookup(ctx, c, key); m != nil {
		return m, nil
	}

	m, err := a.compile(ctx, opts, source.NewScanner(bytes.NewReader(src), a.config.InputPath))
	if err != nil {
		return nil, err
	}
	if _, err := c.Put(ctx, key, a.backend.Text(m)); err != nil {
		return nil, &compiler.Error{Kind: compiler.KindBackend, Err: err}
	}
	return m, nil
}

// lookup returns the cached module for key, or nil when there is none or the
// cached text no longer parses and verifies.
func (a *App) lookup(ctx context.Context, c *cache.Cache, key string) *ir.Module {
	logger := ctxlog.FromContext(ctx)
	entry, ok, err := c.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache lookup failed, compiling.", "error", err)
		return nil
	}
	if !ok {
		logger.Debug("Cache miss.", "key", key)
		return nil
	}
	m, err := a.backend.Parse(a.config.InputPath, entry.IR)
	if err == nil {
		err = a.backend.Verify(m)
	}
	if err != nil {
		logger.Warn("Discarding invalid cache entry.", "id", entry.ID, "error", err)
		return nil
	}
	logger.Debug("Cache hit.", "key", key, "id", entry.ID, "hits", entry.Hits)
	return m
}

// compile runs one compiler session over sc. When verification fails the
// module text is dumped to the diagnostic stream.
func (a *App) compile(ctx context.Context, opts compiler.Options, sc *source.Scanner) (*ir.Module, error) {
	session := compiler.NewSession(opts, a.backend)
	m, err := session.Compile(ctx, sc)
	if err != nil {
		if compiler.KindOf(err) == compiler.KindVerification && m != nil {
			a.dumpModule(m)
		}
		return nil, err
	}
	stats := session.Stats()
	a.logger.Debug("Compilation finished.",
		"session", session.ID(),
		"ops", stats.Ops,
		"loops", stats.Loops,
		"max_depth", stats.MaxDepth,
		"insts_before", stats.InstsBefore,
		"insts_after", stats.InstsAfter,
	)
	return session.Release()
}

func (a *App) dumpModule(m *ir.Module) {
	if _, err := io.WriteString(a.streams.Err, a.backend.Text(m)); err != nil {
		a.logger.Warn("Failed to dump invalid module.", "error", err)
	}
}
