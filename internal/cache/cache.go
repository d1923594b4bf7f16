// Package cache stores verified module text in SQLite, keyed by a digest of
// the program source and the options that shaped the module.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/vk/brainjit/internal/ctxlog"
)

// Entry is one cached module.
type Entry struct {
	Key       string
	ID        string
	IR        string
	CreatedAt time.Time
	Hits      int64
}

// Cache is a handle to the cache database.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Key returns the cache key for a program compiled with the given options
// fingerprint.
func Key(src []byte, fingerprint string) string {
	h, _ := blake2b.New256(nil)
	h.Write(src)
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS modules (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		ir TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		hits INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Cache opened.", "path", path)
	return &Cache{db: db, now: time.Now}, nil
}

// Get returns the entry for key and counts the hit. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (e Entry, ok bool, err error) {
	var created int64
	row := c.db.QueryRowContext(ctx, `SELECT key, id, ir, created_at, hits FROM modules WHERE key = ?`, key)
	if err := row.Scan(&e.Key, &e.ID, &e.IR, &created, &e.Hits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `UPDATE modules SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return Entry{}, false, fmt.Errorf("failed to record cache hit: %w", err)
	}
	e.Hits++
	e.CreatedAt = time.Unix(created, 0)
	return e, true, nil
}

// Put stores module text under key, replacing any earlier entry.
func (c *Cache) Put(ctx context.Context, key, ir string) (Entry, error) {
	e := Entry{
		Key:       key,
		ID:        uuid.NewString(),
		IR:        ir,
		CreatedAt: c.now().Truncate(time.Second),
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO modules (key, id, ir, created_at, hits) VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(key) DO UPDATE SET id = excluded.id, ir = excluded.ir, created_at = excluded.created_at, hits = 0`,
		e.Key, e.ID, e.IR, e.CreatedAt.Unix())
	if err != nil {
		return Entry{}, fmt.Errorf("failed to store cache entry: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Cache entry stored.", "key", key, "id", e.ID, "bytes", len(ir))
	return e, nil
}

// Delete removes the entry for key, if any.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM modules WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
