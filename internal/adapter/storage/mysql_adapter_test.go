package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMock(t *testing.T) (*MySQLAdapter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLAdapter(db), mock
}

func TestMySQLAdapter_GetNotFound(t *testing.T) {
	adapter, mock := newSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	cart, err := adapter.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAdapter_GetWithLines(t *testing.T) {
	adapter, mock := newSQLMock(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_price", "total_items", "created_at", "updated_at"}).
			AddRow("u1", []byte("24.00"), 2, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items WHERE user_id = ? ORDER BY position")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "product_name", "unit_price", "quantity", "image_url", "added_at"}).
			AddRow("p1", "Mug", []byte("10.00"), 2, "https://img/p1", now).
			AddRow("p2", "Cup", []byte("4.00"), 1, "", now))

	cart, err := adapter.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cart)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "p1", cart.Lines[0].ProductID)
	assert.True(t, decimal.RequireFromString("10").Equal(cart.Lines[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("24").Equal(cart.TotalPrice))
	assert.Equal(t, 2, cart.TotalItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAdapter_GetQueryError(t *testing.T) {
	adapter, mock := newSQLMock(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts")).WillReturnError(boom)

	_, err := adapter.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
}

func TestMySQLAdapter_PutReplacesLines(t *testing.T) {
	adapter, mock := newSQLMock(t)
	cart := sampleCart("u1")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO carts")).
		WithArgs("u1", "24", 2, cart.CreatedAt, cart.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cart_items")).
		WithArgs(
			"u1", "p1", "Mug", "10.5", 2, "https://img/p1", 0, cart.Lines[0].AddedAt,
			"u1", "p2", "Cup", "3", 1, "", 1, cart.Lines[1].AddedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, adapter.Put(context.Background(), cart))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAdapter_PutEmptyCartSkipsInsert(t *testing.T) {
	adapter, mock := newSQLMock(t)
	cart := sampleCart("u1")
	cart.Lines = nil
	cart.Recalculate()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO carts")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, adapter.Put(context.Background(), cart))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAdapter_PutRollsBackOnFailure(t *testing.T) {
	adapter, mock := newSQLMock(t)
	boom := errors.New("lock wait timeout")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO carts")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cart_items")).WillReturnError(boom)
	mock.ExpectRollback()

	err := adapter.Put(context.Background(), sampleCart("u1"))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAdapter_Delete(t *testing.T) {
	adapter, mock := newSQLMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = ?")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM carts WHERE user_id = ?")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, adapter.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertItemsQuery_Placeholders(t *testing.T) {
	cart := sampleCart("u1")

	q, args := insertItemsQuery(cart, postgresPlaceholder)
	assert.Contains(t, q, "($1, $2, $3, $4::text::numeric, $5, $6, $7, $8), ($9, $10, $11, $12::text::numeric")
	assert.Len(t, args, 16)

	q, _ = insertItemsQuery(cart, mysqlPlaceholder)
	assert.Contains(t, q, "(?, ?, ?, ?, ?, ?, ?, ?), (?, ?")
}

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/carts?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func TestMySQLAdapter_Live(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	require.NoError(t, adapter.EnsureSchema(ctx))
	require.NoError(t, adapter.Delete(ctx, "live-user"))

	cart := sampleCart("live-user")
	require.NoError(t, adapter.Put(ctx, cart))

	got, err := adapter.Get(ctx, "live-user")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "p1", got.Lines[0].ProductID)
	assert.True(t, cart.TotalPrice.Equal(got.TotalPrice))

	// second put replaces, not appends
	cart.Remove("p2", time.Now())
	require.NoError(t, adapter.Put(ctx, cart))
	got, err = adapter.Get(ctx, "live-user")
	require.NoError(t, err)
	assert.Len(t, got.Lines, 1)

	require.NoError(t, adapter.Delete(ctx, "live-user"))
	got, err = adapter.Get(ctx, "live-user")
	require.NoError(t, err)
	assert.Nil(t, got)
}
