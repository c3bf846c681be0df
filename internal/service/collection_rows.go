package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

// row pairs a decoded entity with the sheet row it came from.
type row[T any] struct {
	raw   models.Record
	value T
}

func decodeRows[T any](records []models.Record, normalize func(T) T, logger *zap.Logger, collection models.Collection) []row[T] {
	rows := make([]row[T], 0, len(records))
	for i, record := range records {
		value, err := decodeRecord[T](record)
		if err != nil {
			logger.Debug("record partially decoded",
				zap.String("collection", string(collection)),
				zap.Int("index", i),
				zap.Error(err),
			)
		}
		rows = append(rows, row[T]{raw: record, value: normalize(value)})
	}
	return rows
}

func encodeRows[T any](rows []row[T]) ([]models.Record, error) {
	records := make([]models.Record, 0, len(rows))
	for _, r := range rows {
		record, err := mergeRecord(r.raw, r.value)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode record")
		}
		records = append(records, record)
	}
	return records, nil
}

// upsertRow replaces the first row whose key matches, or appends.
func upsertRow[T any](rows []row[T], value T, key func(T) string) []row[T] {
	k := key(value)
	for i := range rows {
		if key(rows[i].value) == k {
			rows[i].value = value
			return rows
		}
	}
	return append(rows, row[T]{value: value})
}

func removeRows[T any](rows []row[T], match func(T) bool) []row[T] {
	kept := rows[:0]
	for _, r := range rows {
		if !match(r.value) {
			kept = append(kept, r)
		}
	}
	return kept
}

func rowValues[T any](rows []row[T]) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.value)
	}
	return out
}
