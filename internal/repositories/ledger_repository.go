package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"winery_backend/internal/models"
)

// LedgerRepository defines the interface for ledger entry database operations.
// Entries are append-only; there is no update or delete.
type LedgerRepository interface {
	Create(ctx context.Context, executor SQLExecutor, entry *models.LedgerEntry) (int64, error)
	List(ctx context.Context, filters models.LedgerFilters) ([]models.LedgerEntry, int, error)
	SumForProduct(ctx context.Context, productID int64) (sum int, count int, err error)
	TopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error)
	DailyActivity(ctx context.Context, since time.Time) ([]models.DailyMovement, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a new instance of LedgerRepository.
func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, executor SQLExecutor, entry *models.LedgerEntry) (int64, error) {
	executor = executorOr(executor, r.db)
	query := `INSERT INTO ledger_entries
	          (product_id, direction, quantity, reference_type, reference_id, notes, account_id, balance_after, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := executor.QueryRowContext(ctx, query,
		entry.ProductID, entry.Direction, entry.Quantity, entry.ReferenceType, entry.ReferenceID,
		entry.Notes, entry.AccountID, entry.BalanceAfter, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, wrapWriteError("creating ledger entry", err)
	}
	return entry.ID, nil
}

// List returns entries newest first. DateTo is exclusive.
func (r *ledgerRepository) List(ctx context.Context, filters models.LedgerFilters) ([]models.LedgerEntry, int, error) {
	entries := []models.LedgerEntry{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    le.id, le.product_id, le.direction, le.quantity, le.reference_type, le.reference_id,
	    le.notes, le.account_id, le.balance_after, le.created_at,
	    p.name AS product_name, a.display_name AS account_name,
	    COUNT(*) OVER() AS total_count
	  FROM ledger_entries le
	  JOIN products p ON p.id = le.product_id
	  JOIN accounts a ON a.id = le.account_id`)

	var conditions []string
	var args []interface{}
	argCount := 1
	add := func(cond string, arg interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argCount))
		args = append(args, arg)
		argCount++
	}

	if filters.Direction != nil {
		add("le.direction = $%d", *filters.Direction)
	}
	if filters.ProductID != nil {
		add("le.product_id = $%d", *filters.ProductID)
	}
	if filters.DateFrom != nil {
		add("le.created_at >= $%d", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		add("le.created_at < $%d", *filters.DateTo)
	}
	if filters.AccountID != nil {
		add("le.account_id = $%d", *filters.AccountID)
	}
	if filters.ReferenceType != nil {
		add("le.reference_type = $%d", *filters.ReferenceType)
	}
	if filters.ReferenceID != nil {
		add("le.reference_id = $%d", *filters.ReferenceID)
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY le.created_at DESC, le.id DESC")
	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		args = append(args, filters.PageSize, offset(filters.Page, filters.PageSize))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing ledger entries: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.ProductID, &e.Direction, &e.Quantity, &e.ReferenceType, &e.ReferenceID,
			&e.Notes, &e.AccountID, &e.BalanceAfter, &e.CreatedAt,
			&e.ProductName, &e.AccountName, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning ledger entry: %v", ErrDatabaseError, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating ledger entries: %v", ErrDatabaseError, err)
	}
	return entries, totalCount, nil
}

// SumForProduct returns Σ(in) − Σ(out) and the number of entries for a product.
func (r *ledgerRepository) SumForProduct(ctx context.Context, productID int64) (int, int, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN direction = 'in' THEN quantity ELSE -quantity END), 0), COUNT(*)
	          FROM ledger_entries WHERE product_id = $1`
	var sum, count int
	if err := r.db.QueryRowContext(ctx, query, productID).Scan(&sum, &count); err != nil {
		return 0, 0, fmt.Errorf("%w: summing ledger for product %d: %v", ErrDatabaseError, productID, err)
	}
	return sum, count, nil
}

// TopMoving ranks products by entry count, ties broken by product id.
func (r *ledgerRepository) TopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error) {
	var args []interface{}
	where := ""
	if since != nil {
		where = "WHERE le.created_at >= $1"
		args = append(args, *since)
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT p.id, p.name, p.category, COUNT(*) AS tx_count,
	                 COALESCE(SUM(le.quantity) FILTER (WHERE le.direction = 'in'), 0),
	                 COALESCE(SUM(le.quantity) FILTER (WHERE le.direction = 'out'), 0)
	          FROM ledger_entries le
	          JOIN products p ON p.id = le.product_id
	          %s
	          GROUP BY p.id, p.name, p.category
	          ORDER BY tx_count DESC, p.id ASC
	          LIMIT $%d`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: top moving products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.TopMovingItem{}
	for rows.Next() {
		var it models.TopMovingItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Category, &it.TransactionCount,
			&it.QuantityIn, &it.QuantityOut); err != nil {
			return nil, fmt.Errorf("%w: scanning top moving item: %v", ErrDatabaseError, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating top moving: %v", ErrDatabaseError, err)
	}
	return items, nil
}

// DailyActivity returns only days that have entries; callers zero-fill.
func (r *ledgerRepository) DailyActivity(ctx context.Context, since time.Time) ([]models.DailyMovement, error) {
	query := `SELECT TO_CHAR(DATE_TRUNC('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
	                 COUNT(*) FILTER (WHERE direction = 'in'),
	                 COUNT(*) FILTER (WHERE direction = 'out'),
	                 COALESCE(SUM(quantity) FILTER (WHERE direction = 'in'), 0),
	                 COALESCE(SUM(quantity) FILTER (WHERE direction = 'out'), 0)
	          FROM ledger_entries
	          WHERE created_at >= $1
	          GROUP BY day
	          ORDER BY day`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("%w: daily ledger activity: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	days := []models.DailyMovement{}
	for rows.Next() {
		var d models.DailyMovement
		if err := rows.Scan(&d.Day, &d.EntriesIn, &d.EntriesOut, &d.QuantityIn, &d.QuantityOut); err != nil {
			return nil, fmt.Errorf("%w: scanning daily activity: %v", ErrDatabaseError, err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating daily activity: %v", ErrDatabaseError, err)
	}
	return days, nil
}

func (r *ledgerRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting ledger entries: %v", ErrDatabaseError, err)
	}
	return count, nil
}
