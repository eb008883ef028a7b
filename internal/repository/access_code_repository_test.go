package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// The redemption guard is an UPDATE conditioned on used_at IS NULL; the
// sqlite-backed service tests cannot show the statement shape, so it is
// pinned here.
func TestMarkUsedUpdatesOnlyUnusedRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAccessCodeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "voting_access_codes" SET .+ WHERE id = \$\d+ AND used_at IS NULL`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	userID := uint64(42)
	won, err := repo.MarkUsed(7, &userID, time.Now())
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUsedLosesWhenRowAlreadyStamped(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAccessCodeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "voting_access_codes" SET .+ WHERE id = \$\d+ AND used_at IS NULL`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	won, err := repo.MarkUsed(7, nil, time.Now())
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}
