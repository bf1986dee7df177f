package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_SQLiteMemory(t *testing.T) {
	ctx := context.Background()

	db, err := NewDatabase(ctx, "sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.True(t, db.IsSQLite())
	assert.False(t, db.IsPostgres())

	require.NoError(t, db.Session(ctx).Exec(`CREATE TABLE probe (id INTEGER PRIMARY KEY)`).Error)
	require.NoError(t, db.Session(ctx).Exec(`INSERT INTO probe (id) VALUES (1)`).Error)

	var count int64
	require.NoError(t, db.Session(ctx).Raw(`SELECT COUNT(*) FROM probe`).Scan(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(context.Background(), "mysql://root@localhost/db")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestDatabase_ConfigurePool(t *testing.T) {
	db, err := NewDatabase(context.Background(), "sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.ConfigurePool(4, 2, 0))
}
