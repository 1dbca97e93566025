// Package cache keeps transpiled module output between builds in SQLite.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

// FileName is the database file created inside the cache directory.
const FileName = "transpile.db"

// Entry is one cached transpile result.
type Entry struct {
	Code      []byte
	SourceMap []byte
	CreatedAt time.Time
}

// Stats reports cache effectiveness for the lifetime of a TranspileCache.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// TranspileCache stores loader output keyed by Key.
type TranspileCache struct {
	db     *sql.DB
	mu     sync.RWMutex
	hits   atomic.Int64
	misses atomic.Int64
}

// Open creates or opens the cache database inside dir.
func Open(dir string) (*TranspileCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryCache, "create cache directory").
			Warning().
			WithContext("path", dir).
			Build()
	}
	return open(filepath.Join(dir, FileName))
}

// NewMemory returns a cache that lives only as long as the process.
func NewMemory() (*TranspileCache, error) {
	return open(":memory:")
}

func open(dsn string) (*TranspileCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryCache, "open sqlite database").Warning().Build()
	}
	// One connection: an in-memory database is private to its connection and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	c := &TranspileCache{db: db}
	if err := c.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryCache, "initialize schema").Warning().Build()
	}
	return c, nil
}

func (c *TranspileCache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transpile (
		key TEXT PRIMARY KEY,
		code BLOB NOT NULL,
		source_map BLOB,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_created_at ON transpile(created_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Engine identifies the transpiler build that produced cached entries. It is
// part of every key, so upgrading esbuild invalidates old results.
var Engine = engineVersion()

const esbuildModule = "github.com/evanw/esbuild"

func engineVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != esbuildModule {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		return esbuildModule + "@" + dep.Version
	}
	return "unknown"
}

// Key derives the cache key from the engine version, the loader name, its
// options and the source bytes.
func Key(loader string, options map[string]any, source []byte) string {
	h := sha256.New()
	h.Write([]byte(Engine))
	h.Write([]byte{0})
	h.Write([]byte(loader))
	h.Write([]byte{0})
	if len(options) > 0 {
		// encoding/json sorts map keys, which keeps the key stable.
		if b, err := json.Marshal(options); err == nil {
			h.Write(b)
		}
	}
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry for key. A miss is not an error.
func (c *TranspileCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var e Entry
	var created int64
	err := c.db.QueryRowContext(ctx,
		"SELECT code, source_map, created_at FROM transpile WHERE key = ?", key,
	).Scan(&e.Code, &e.SourceMap, &created)
	if stderrors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.WrapError(err, errors.CategoryCache, "query transpile cache").Warning().Build()
	}
	e.CreatedAt = time.Unix(created, 0)
	c.hits.Add(1)
	return e, true, nil
}

// Put stores code and its source map under key, replacing any previous entry.
func (c *TranspileCache) Put(ctx context.Context, key string, code, sourceMap []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO transpile (key, code, source_map, created_at) VALUES (?, ?, ?, ?)",
		key, code, sourceMap, time.Now().Unix(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryCache, "store transpile result").Warning().Build()
	}
	return nil
}

// Prune removes entries created before cutoff and returns how many were removed.
func (c *TranspileCache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, "DELETE FROM transpile WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryCache, "prune transpile cache").Warning().Build()
	}
	return res.RowsAffected()
}

// Stats returns hit and miss counts plus the number of stored entries.
func (c *TranspileCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	_ = c.db.QueryRow("SELECT COUNT(*) FROM transpile").Scan(&s.Entries)
	return s
}

// Close closes the database connection.
func (c *TranspileCache) Close() error {
	return c.db.Close()
}
