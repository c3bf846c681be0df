package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

const createCollectionCacheTable = `CREATE TABLE IF NOT EXISTS collection_cache (
	cache_key TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// SQLCacheRepository keeps one row per collection. It works with both the
// embedded SQLite driver and PostgreSQL.
type SQLCacheRepository struct {
	db       *sqlx.DB
	observer queryObserver
	now      func() time.Time
}

// NewSQLCacheRepository creates a new instance of SQLCacheRepository.
func NewSQLCacheRepository(db *sqlx.DB) *SQLCacheRepository {
	return &SQLCacheRepository{db: db, now: time.Now}
}

// WithQueryObserver reports query timings, typically to the metrics service.
func (r *SQLCacheRepository) WithQueryObserver(o queryObserver) *SQLCacheRepository {
	r.observer = o
	return r
}

// Migrate creates the cache table when missing.
func (r *SQLCacheRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCollectionCacheTable); err != nil {
		return fmt.Errorf("migrate collection_cache: %w", err)
	}
	return nil
}

// Get returns the payload stored for key.
func (r *SQLCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	defer r.observe("cache_get", time.Now())

	query := r.db.Rebind(`SELECT payload FROM collection_cache WHERE cache_key = ?`)
	var payload string
	if err := r.db.GetContext(ctx, &payload, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("get cached collection %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Set upserts the payload for key.
func (r *SQLCacheRepository) Set(ctx context.Context, key string, payload []byte) error {
	defer r.observe("cache_set", time.Now())

	query := r.db.Rebind(`INSERT INTO collection_cache (cache_key, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, key, string(payload), r.now().UnixMilli()); err != nil {
		return fmt.Errorf("set cached collection %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLCacheRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the underlying database handle.
func (r *SQLCacheRepository) Close() error {
	return r.db.Close()
}

func (r *SQLCacheRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}
