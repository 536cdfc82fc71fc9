package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"winery_backend/internal/models"
	"winery_backend/pkg/utils"
)

// AccountRepository defines the interface for account-related database operations.
type AccountRepository interface {
	Create(ctx context.Context, executor SQLExecutor, account *models.Account) (int64, error)
	GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	List(ctx context.Context, filters models.AccountFilters) ([]models.Account, int, error)
	Update(ctx context.Context, executor SQLExecutor, account *models.Account) error
	UpdateRole(ctx context.Context, executor SQLExecutor, id int64, role models.Role) error
	SetActive(ctx context.Context, executor SQLExecutor, id int64, active bool) error
	UpdatePassword(ctx context.Context, executor SQLExecutor, id int64, passwordHash string) error
	Count(ctx context.Context, activeOnly bool) (int, error)
}

type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, username, password_hash, display_name, email, role, is_active, created_at, updated_at`

func scanAccount(s scanner, a *models.Account) error {
	return s.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.DisplayName, &a.Email, &a.Role,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
}

// Create inserts an active account. PasswordHash must already be hashed.
func (r *accountRepository) Create(ctx context.Context, executor SQLExecutor, account *models.Account) (int64, error) {
	executor = executorOr(executor, r.db)
	query := `INSERT INTO accounts (username, password_hash, display_name, email, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		account.Username, account.PasswordHash, account.DisplayName, account.Email, account.Role, now,
	).Scan(&account.ID)
	if err != nil {
		return 0, wrapWriteError("creating account", err)
	}
	account.IsActive = true
	account.CreatedAt = now
	account.UpdatedAt = now
	return account.ID, nil
}

func (r *accountRepository) GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.Account, error) {
	executor = executorOr(executor, r.db)
	account := &models.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if err := scanAccount(executor.QueryRowContext(ctx, query, id), account); err != nil {
		return nil, wrapReadError("getting account by id", err)
	}
	return account, nil
}

// GetByUsername matches usernames case-insensitively.
func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account := &models.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(username) = LOWER($1)`
	if err := scanAccount(r.db.QueryRowContext(ctx, query, username), account); err != nil {
		return nil, wrapReadError("getting account by username", err)
	}
	return account, nil
}

func (r *accountRepository) List(ctx context.Context, filters models.AccountFilters) ([]models.Account, int, error) {
	accounts := []models.Account{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + accountColumns + `, COUNT(*) OVER() AS total_count FROM accounts`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argCount))
		args = append(args, *filters.Role)
		argCount++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argCount))
		args = append(args, *filters.IsActive)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(username ILIKE $%d ESCAPE '\' OR display_name ILIKE $%d ESCAPE '\')`, argCount, argCount))
		args = append(args, "%"+utils.EscapeLike(*filters.Search)+"%")
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY username ASC")
	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		args = append(args, filters.PageSize, offset(filters.Page, filters.PageSize))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing accounts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.DisplayName, &a.Email, &a.Role,
			&a.IsActive, &a.CreatedAt, &a.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning account: %v", ErrDatabaseError, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating accounts: %v", ErrDatabaseError, err)
	}
	return accounts, totalCount, nil
}

// Update changes the profile fields of an account. Role, activity flag and
// password have dedicated methods.
func (r *accountRepository) Update(ctx context.Context, executor SQLExecutor, account *models.Account) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE accounts SET display_name = $1, email = $2, updated_at = $3 WHERE id = $4`
	account.UpdatedAt = time.Now()
	return execOne(ctx, executor, "updating account", query,
		account.DisplayName, account.Email, account.UpdatedAt, account.ID)
}

func (r *accountRepository) UpdateRole(ctx context.Context, executor SQLExecutor, id int64, role models.Role) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE accounts SET role = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, executor, "updating account role", query, role, time.Now(), id)
}

func (r *accountRepository) SetActive(ctx context.Context, executor SQLExecutor, id int64, active bool) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE accounts SET is_active = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, executor, "setting account active flag", query, active, time.Now(), id)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, executor SQLExecutor, id int64, passwordHash string) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, executor, "updating account password", query, passwordHash, time.Now(), id)
}

func (r *accountRepository) Count(ctx context.Context, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting accounts: %v", ErrDatabaseError, err)
	}
	return count, nil
}

// execOne runs an UPDATE expected to touch exactly one row.
func execOne(ctx context.Context, executor SQLExecutor, op, query string, args ...interface{}) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapWriteError(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s: checking rows affected: %v", ErrDatabaseError, op, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
