package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type counter struct {
	ID    int64 `gorm:"primaryKey"`
	Value int
}

func newTestDB(t *testing.T, retries int) *Database {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := NewSQLite(dsn, Options{MaxRetries: retries})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(&counter{}))
	return db
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryable(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestTransactionRetriesConflicts(t *testing.T) {
	db := newTestDB(t, 2)
	calls := 0

	err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return tx.Create(&counter{ID: 1, Value: calls}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	var c counter
	require.NoError(t, db.GetDB().First(&c, 1).Error)
	assert.Equal(t, 3, c.Value)
}

func TestTransactionGivesUpAfterMaxRetries(t *testing.T) {
	db := newTestDB(t, 1)
	calls := 0

	err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db := newTestDB(t, 3)
	boom := errors.New("boom")

	err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&counter{ID: 7, Value: 1}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.GetDB().Model(&counter{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, "sqlite", db.Dialect())
}

func TestSnapshotTransaction(t *testing.T) {
	db := newTestDB(t, 0)
	require.NoError(t, db.GetDB().Create(&counter{ID: 1, Value: 5}).Error)

	assert.Nil(t, db.SnapshotOptions())

	var c counter
	err := db.Transaction(context.Background(), func(tx *gorm.DB) error {
		return tx.First(&c, 1).Error
	}, db.SnapshotOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, c.Value)
}
