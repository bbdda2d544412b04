package modules

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/funvibe/expect/internal/config"
	_ "modernc.org/sqlite"
)

// cacheFormat is bumped when the stored rewrite changes shape, so entries
// written by older versions stop matching.
const cacheFormat = "v1"

const schema = `
CREATE TABLE IF NOT EXISTS rewrites (
	key        TEXT PRIMARY KEY,
	module     TEXT NOT NULL,
	code       TEXT NOT NULL,
	sites      INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	hits       INTEGER NOT NULL DEFAULT 0
)`

// Cache stores rewritten sources in a sqlite database keyed by the hash of
// the original source and the rewrite options.
type Cache struct {
	db   *sql.DB
	path string
}

// CacheEntry is one stored rewrite.
type CacheEntry struct {
	Module string
	Code   string
	Sites  int
}

// CacheStats summarizes the cache contents.
type CacheStats struct {
	Path    string
	Entries int64
	Hits    int64
	// Bytes is the total size of the stored code.
	Bytes int64
	// FileSize is the size of the database file on disk.
	FileSize int64
	Oldest   time.Time
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache %s: %w", path, err)
	}
	return &Cache{db: db, path: path}, nil
}

// CacheKey derives the key for source rewritten under the options
// fingerprint.
func CacheKey(source, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte("\x00"))
	h.Write([]byte(fingerprint))
	h.Write([]byte("\x00"))
	h.Write([]byte(config.Version))
	h.Write([]byte("\x00"))
	h.Write([]byte(cacheFormat))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Path() string {
	return c.path
}

// Get returns the entry stored under key and counts the hit.
func (c *Cache) Get(ctx context.Context, key string) (*CacheEntry, bool, error) {
	var e CacheEntry
	err := c.db.QueryRowContext(ctx,
		`SELECT module, code, sites FROM rewrites WHERE key = ?`, key,
	).Scan(&e.Module, &e.Code, &e.Sites)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `UPDATE rewrites SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return nil, false, fmt.Errorf("updating cache: %w", err)
	}
	return &e, true, nil
}

// Put stores an entry, replacing any previous one under key.
func (c *Cache) Put(ctx context.Context, key string, e CacheEntry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rewrites (key, module, code, sites, created_at, hits) VALUES (?, ?, ?, ?, ?, 0)`,
		key, e.Module, e.Code, e.Sites, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Stats reports entry counts and sizes.
func (c *Cache) Stats(ctx context.Context) (*CacheStats, error) {
	st := &CacheStats{Path: c.path}
	var oldest sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hits), 0), COALESCE(SUM(LENGTH(CAST(code AS BLOB))), 0), MIN(created_at) FROM rewrites`,
	).Scan(&st.Entries, &st.Hits, &st.Bytes, &oldest)
	if err != nil {
		return nil, fmt.Errorf("reading cache stats: %w", err)
	}
	if oldest.Valid {
		st.Oldest = time.Unix(oldest.Int64, 0)
	}
	if info, err := os.Stat(c.path); err == nil {
		st.FileSize = info.Size()
	}
	return st, nil
}

// Clean removes every entry and returns how many were dropped.
func (c *Cache) Clean(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM rewrites`)
	if err != nil {
		return 0, fmt.Errorf("cleaning cache: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := c.db.ExecContext(ctx, `VACUUM`); err != nil {
		return n, fmt.Errorf("compacting cache: %w", err)
	}
	return n, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
