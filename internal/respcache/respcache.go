// Package respcache stores oracle responses keyed by a prompt fingerprint.
package respcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache is a fingerprint-keyed response store backed by the shared database.
// A nil Cache is valid and never hits.
type Cache struct {
	db       *sql.DB
	disabled bool
}

// New creates a cache over an open database handle.
func New(db *sql.DB, disabled bool) *Cache {
	return &Cache{db: db, disabled: disabled}
}

// Fingerprint derives the cache key from the model id and both prompts.
func Fingerprint(model, system, user string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(user))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for a fingerprint and whether it was found.
func (c *Cache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	if c == nil || c.disabled {
		return "", false, nil
	}
	row := c.db.QueryRowContext(ctx, `SELECT response FROM llm_cache WHERE fingerprint=?`, fingerprint)
	var response string
	if err := row.Scan(&response); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read cache entry: %w", err)
	}
	log.Debug().Str("fingerprint", fingerprint[:12]).Msg("cache hit")
	return response, true, nil
}

// Put stores a response under a fingerprint. Writes are last-writer-wins so
// concurrent traces stay idempotent.
func (c *Cache) Put(ctx context.Context, fingerprint, model, response string) error {
	if c == nil || c.disabled {
		return nil
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := c.db.ExecContext(ctx, `INSERT INTO llm_cache(fingerprint, model, response, created_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET model=excluded.model, response=excluded.response, created_at=excluded.created_at`,
		fingerprint, model, response, createdAt); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
