package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockPostgres(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewPostgresBackend(db), mock
}

func TestPostgresBackend_Get(t *testing.T) {
	b, mock := newMockPostgres(t)

	rows := sqlmock.NewRows([]string{"key", "value", "updated_at"}).
		AddRow("messages", []byte(`{"v":1,"data":[]}`), time.Now())
	mock.ExpectQuery(`SELECT \* FROM "kv_records" WHERE key = \$1`).
		WillReturnRows(rows)

	v, err := b.Get(context.Background(), "messages")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"data":[]}`, string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_GetMissing(t *testing.T) {
	b, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT \* FROM "kv_records" WHERE key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}))

	_, err := b.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_Delete(t *testing.T) {
	b, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "kv_records" WHERE key = \$1`).
		WithArgs("draft").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, b.Delete(context.Background(), "draft"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_Usage(t *testing.T) {
	b, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(octet_length\(key\) \+ octet_length\(value\)\), 0\) FROM "kv_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(1234)))

	n, err := b.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
