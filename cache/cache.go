// Package cache implements a content-addressed cache of rendered
// output, keyed by a hash of the opcode stream that produced it. A
// class or method whose underlying bytecode hasn't changed skips the
// whole lift/structure/print pipeline on a cache hit. Backed by
// database/sql; the driver is selected by config.CacheConfig.Driver so
// the same cache can run on sqlite for local use or mysql/postgres
// for a shared team cache.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/wudi/hlbcgo/config"
	"github.com/wudi/hlbcgo/opcode"
)

// Cache wraps a *sql.DB holding a single table of rendered text keyed
// by content hash.
type Cache struct {
	db     *sql.DB
	driver string
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS render_cache (
	key TEXT PRIMARY KEY,
	rendered TEXT NOT NULL
)`

// sqlDriverName maps a config driver name to the database/sql driver
// registered by each backend's blank import above.
func sqlDriverName(driver string) (string, error) {
	switch driver {
	case "sqlite", "":
		return "sqlite", nil
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	default:
		return "", fmt.Errorf("cache: unknown driver %q", driver)
	}
}

// Open connects to the backend named by cfg.Driver using cfg.DSN and
// ensures the cache table exists.
func Open(ctx context.Context, cfg config.CacheConfig) (*Cache, error) {
	driverName, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", driverName, err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create table: %w", err)
	}
	return &Cache{db: db, driver: driverName}, nil
}

// Close releases the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key hashes a function's opcode stream (via opcode.EncodeFunction) so
// identical bytecode always maps to the same cache entry regardless of
// where it was loaded from.
func Key(instructions []opcode.Instruction) string {
	sum := sha256.Sum256(opcode.EncodeFunction(instructions))
	return hex.EncodeToString(sum[:])
}

// query rewrites ? placeholders to $1, $2, ... for postgres, whose
// driver doesn't accept the ? form the other two backends share.
func (c *Cache) query(sqlText string) string {
	if c.driver != "postgres" {
		return sqlText
	}
	out := make([]byte, 0, len(sqlText)+4)
	n := 0
	for i := 0; i < len(sqlText); i++ {
		if sqlText[i] == '?' {
			n++
			out = append(out, '$')
			out = append(out, []byte(fmt.Sprintf("%d", n))...)
			continue
		}
		out = append(out, sqlText[i])
	}
	return string(out)
}

// Get returns the cached rendered text for key, if present.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var rendered string
	err := c.db.QueryRowContext(ctx, c.query(`SELECT rendered FROM render_cache WHERE key = ?`), key).Scan(&rendered)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get: %w", err)
	}
	return rendered, true, nil
}

// Put stores rendered text under key, overwriting any prior entry.
func (c *Cache) Put(ctx context.Context, key, rendered string) error {
	upsert := `INSERT INTO render_cache (key, rendered) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET rendered = excluded.rendered`
	_, err := c.db.ExecContext(ctx, c.query(upsert), key, rendered)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}
