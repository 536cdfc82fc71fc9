package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winery_backend/internal/models"
)

var accountCols = []string{"id", "username", "password_hash", "display_name", "email", "role", "is_active", "created_at", "updated_at"}

func TestAccountRepository_CreateCaseVariantUsername(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs("Cellar", "hash", "Cellar Master", nil, models.RoleWarehouseManager, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{
			Code:       "23505",
			Message:    `duplicate key value violates unique constraint "accounts_username_lower_key"`,
			Constraint: "accounts_username_lower_key",
		})

	account := &models.Account{Username: "Cellar", PasswordHash: "hash", DisplayName: "Cellar Master", Role: models.RoleWarehouseManager}
	_, err := repo.Create(context.Background(), nil, account)
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Contains(t, err.Error(), "accounts_username_lower_key")
	assert.Zero(t, account.ID)
}

func TestAccountRepository_GetByUsernameIgnoresCase(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewAccountRepository(db)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE LOWER(username) = LOWER($1)`)).
		WithArgs("CELLAR").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(4, "cellar", "hash", "Cellar Master", nil, "warehouse_manager", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE LOWER(username) = LOWER($1)`)).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(accountCols))

	account, err := repo.GetByUsername(context.Background(), "CELLAR")
	require.NoError(t, err)
	assert.Equal(t, int64(4), account.ID)
	assert.Equal(t, "cellar", account.Username)

	_, err = repo.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
