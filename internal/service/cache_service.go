package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

// CacheRepository abstracts persistence for serialised collections.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
}

// LocalCacheStore holds the last known copy of every collection, one JSON array per key.
type LocalCacheStore struct {
	repo    CacheRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLocalCacheStore constructs a cache store.
func NewLocalCacheStore(repo CacheRepository, metrics *MetricsService, logger *zap.Logger) *LocalCacheStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalCacheStore{repo: repo, metrics: metrics, logger: logger}
}

// Read returns the cached rows. Absent or unparseable entries read as empty;
// only storage failures are returned as errors.
func (s *LocalCacheStore) Read(ctx context.Context, collection models.Collection) ([]models.Record, error) {
	key := collection.CacheKey()
	start := time.Now()
	payload, err := s.repo.Get(ctx, key)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return []models.Record{}, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read local cache")
	}
	s.metrics.RecordCacheOperation(true, duration)

	var records []models.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		s.logger.Warn("cached collection unparseable", zap.String("key", key), zap.Error(err))
		return []models.Record{}, nil
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// Write replaces the cached rows for collection.
func (s *LocalCacheStore) Write(ctx context.Context, collection models.Collection, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	key := collection.CacheKey()
	payload, err := json.Marshal(records)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode collection")
	}

	start := time.Now()
	err = s.repo.Set(ctx, key, payload)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write local cache")
	}
	return nil
}
