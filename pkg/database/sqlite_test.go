package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.sqlite")

	db, err := NewSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.Get(&one, "SELECT 1"))
	assert.Equal(t, 1, one)
	assert.FileExists(t, path)
}

func TestNewSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}
