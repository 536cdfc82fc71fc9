package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winery_backend/internal/models"
)

var ledgerCols = []string{"id", "product_id", "direction", "quantity", "reference_type", "reference_id",
	"notes", "account_id", "balance_after", "created_at", "product_name", "account_name", "total_count"}

func TestLedgerRepository_ListCombinesFilters(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewLedgerRepository(db)

	dir := models.DirectionOut
	productID := int64(4)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE le.direction = $1 AND le.product_id = $2 AND le.created_at >= $3 AND le.created_at < $4 ORDER BY le.created_at DESC, le.id DESC LIMIT $5 OFFSET $6`)).
		WithArgs("out", 4, from, to, 10, 10).
		WillReturnRows(sqlmock.NewRows(ledgerCols).
			AddRow(31, 4, "out", 6, "production", nil, "bottling", 2, 14, created, "Cork", "Cellar Master", 11))

	entries, total, err := repo.List(context.Background(), models.LedgerFilters{
		Direction: &dir,
		ProductID: &productID,
		DateFrom:  &from,
		DateTo:    &to,
		Page:      2,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, entries, 1)
	assert.Equal(t, models.DirectionOut, entries[0].Direction)
	assert.Equal(t, 14, entries[0].BalanceAfter)
	assert.Equal(t, "Cellar Master", entries[0].AccountName)
	assert.Nil(t, entries[0].ReferenceID)
}

func TestLedgerRepository_ListWithoutFiltersReturnsAll(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(`JOIN accounts a ON a.id = le.account_id ORDER BY le.created_at DESC, le.id DESC$`).
		WithArgs().
		WillReturnRows(sqlmock.NewRows(ledgerCols))

	entries, total, err := repo.List(context.Background(), models.LedgerFilters{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
	assert.Equal(t, 0, total)
}

func TestLedgerRepository_Create(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ledger_entries`)).
		WithArgs(4, "in", 25, "adjustment", nil, nil, 1, 25, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))

	entry := &models.LedgerEntry{
		ProductID:     4,
		Direction:     models.DirectionIn,
		Quantity:      25,
		ReferenceType: models.ReferenceAdjustment,
		AccountID:     1,
		BalanceAfter:  25,
	}
	id, err := repo.Create(context.Background(), nil, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestLedgerRepository_SumForProduct(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ledger_entries WHERE product_id = $1`)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(14, 3))

	sum, count, err := repo.SumForProduct(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 14, sum)
	assert.Equal(t, 3, count)
}
