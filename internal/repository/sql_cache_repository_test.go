package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/senja-literasi-api/pkg/database"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

type recordingObserver struct {
	labels []string
}

func (o *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func TestSQLCacheRepositoryGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	observer := &recordingObserver{}
	repo := NewSQLCacheRepository(db).WithQueryObserver(observer)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM collection_cache WHERE cache_key = ?")).
		WithArgs("senja_users").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`[{"id":"u1"}]`))

	payload, err := repo.Get(context.Background(), "senja_users")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"u1"}]`, string(payload))
	assert.Equal(t, []string{"cache_get"}, observer.labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCacheRepositoryGetMiss(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSQLCacheRepository(db)

	mock.ExpectQuery("SELECT payload FROM collection_cache").
		WithArgs("senja_students").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := repo.Get(context.Background(), "senja_students")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCacheRepositorySet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSQLCacheRepository(db)
	repo.now = func() time.Time { return time.UnixMilli(1700000000000) }

	mock.ExpectExec("INSERT INTO collection_cache").
		WithArgs("senja_materials", `[]`, int64(1700000000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Set(context.Background(), "senja_materials", []byte(`[]`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCacheRepositoryMigrate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSQLCacheRepository(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS collection_cache").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCacheRepositoryWithSQLite(t *testing.T) {
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "cache.sqlite"))
	require.NoError(t, err)
	repo := NewSQLCacheRepository(db)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))

	_, err = repo.Get(ctx, "senja_settings")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, repo.Set(ctx, "senja_settings", []byte(`[{"key":"a","value":"1"}]`)))
	require.NoError(t, repo.Set(ctx, "senja_settings", []byte(`[{"key":"a","value":"2"}]`)))

	payload, err := repo.Get(ctx, "senja_settings")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"a","value":"2"}]`, string(payload))
}
