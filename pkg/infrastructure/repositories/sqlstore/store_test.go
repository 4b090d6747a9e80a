package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/requisition/pkg/domain/repositories"
)

func newMockStore(t *testing.T, dialect Dialect, prefix string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS kv_store")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := New(context.Background(), db, dialect, prefix)
	require.NoError(t, err)
	return store, mock
}

func TestStore_PostgresQueries(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t, Postgres, "profile-a:")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_store (store_key, store_value, updated_at) VALUES ($1, $2, $3)")).
		WithArgs("profile-a:authToken", []byte("tok"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Set(ctx, repositories.TokenKey, []byte("tok")))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT store_value FROM kv_store WHERE store_key = $1")).
		WithArgs("profile-a:authToken").
		WillReturnRows(sqlmock.NewRows([]string{"store_value"}).AddRow([]byte("tok")))
	value, err := store.Get(ctx, repositories.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), value)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_store WHERE store_key = $1")).
		WithArgs("profile-a:authToken").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Delete(ctx, repositories.TokenKey))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SQLiteGetMissing(t *testing.T) {
	store, mock := newMockStore(t, SQLite, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT store_value FROM kv_store WHERE store_key = ?")).
		WithArgs("shoppingCart").
		WillReturnRows(sqlmock.NewRows([]string{"store_value"}))

	_, err := store.Get(context.Background(), repositories.CartKey)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WriteFailure(t *testing.T) {
	store, mock := newMockStore(t, SQLite, "")
	store.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_store")).
		WithArgs("shoppingCart", []byte("[]"), "2025-03-01T08:00:00Z").
		WillReturnError(errors.New("database is locked"))

	err := store.Set(context.Background(), repositories.CartKey, []byte("[]"))
	assert.EqualError(t, err, "failed to write shoppingCart: database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_MigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(sql.ErrConnDone)

	_, err = New(context.Background(), db, Postgres, "")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestOpen_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := Open(ctx, SQLite, path, "")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, repositories.CartKey, []byte(`[{"variant":{"id":1},"quantity":2}]`)))
	require.NoError(t, store.Set(ctx, repositories.CartKey, []byte(`[]`)))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, SQLite, path, "")
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, repositories.CartKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(value))

	require.NoError(t, reopened.Delete(ctx, repositories.CartKey))
	_, err = reopened.Get(ctx, repositories.CartKey)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("postgresql")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)
	assert.Equal(t, "sqlite", SQLite.String())

	_, err = ParseDialect("mysql")
	assert.EqualError(t, err, `unsupported sql driver "mysql"`)
}
