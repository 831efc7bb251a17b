package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/common"
	"github.com/spotterapp/spotter-go/internal/dbx"
)

// SQLiteCache persists the snapshot under a single fixed key as a JSON
// {data, timestamp} document, mirroring what the mobile clients store.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Option configures a SQLiteCache.
type Option func(*SQLiteCache)

// WithTTL overrides the default TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *SQLiteCache) { c.ttl = ttl }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *SQLiteCache) { c.now = now }
}

func NewSQLiteCache(db *sql.DB, opts ...Option) *SQLiteCache {
	c := &SQLiteCache{db: db, ttl: common.SnapshotCacheTTL, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get reads the cached entry, enforcing the TTL. An entry past its TTL is
// deleted and reported as absent. The read and the expiry delete run in one
// transaction so a concurrent Set cannot lose a freshly written row to the
// delete of a stale one.
func (c *SQLiteCache) Get(ctx context.Context) (*models.CacheEntry, error) {
	var entry *models.CacheEntry
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var payload string
		var ts int64
		err := tx.QueryRowContext(ctx,
			`SELECT payload, timestamp FROM snapshot_cache WHERE key = ?`,
			common.SnapshotCacheKey).Scan(&payload, &ts)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read snapshot cache: %w", err)
		}

		e := &models.CacheEntry{Timestamp: ts}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			// Unreadable payload is as good as absent; drop it.
			return c.clear(ctx, tx)
		}

		if e.Age(c.now()) > c.ttl {
			return c.clear(ctx, tx)
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Set overwrites the cached snapshot, stamping it with the current time.
func (c *SQLiteCache) Set(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO snapshot_cache (key, payload, timestamp) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, timestamp = excluded.timestamp
	`, common.SnapshotCacheKey, string(payload), c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}
	return nil
}

// Clear removes the cached snapshot.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	return c.clear(ctx, c.db)
}

func (c *SQLiteCache) clear(ctx context.Context, db dbx.DBTX) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM snapshot_cache WHERE key = ?`, common.SnapshotCacheKey)
	if err != nil {
		return fmt.Errorf("failed to clear snapshot cache: %w", err)
	}
	return nil
}
