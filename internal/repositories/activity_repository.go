package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"winery_backend/internal/models"
)

// ActivityRepository records and ranks per-account actions.
type ActivityRepository interface {
	Record(ctx context.Context, executor SQLExecutor, accountID int64, action string) error
	MostActive(ctx context.Context, limit int, since *time.Time) ([]models.ActiveUser, error)
}

type activityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Record(ctx context.Context, executor SQLExecutor, accountID int64, action string) error {
	executor = executorOr(executor, r.db)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO account_activity (account_id, action, created_at) VALUES ($1, $2, $3)`,
		accountID, action, time.Now())
	if err != nil {
		return wrapWriteError("recording account activity", err)
	}
	return nil
}

func (r *activityRepository) MostActive(ctx context.Context, limit int, since *time.Time) ([]models.ActiveUser, error) {
	var args []interface{}
	where := ""
	if since != nil {
		where = "WHERE aa.created_at >= $1"
		args = append(args, *since)
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT a.id, a.username, a.display_name, a.role, COUNT(*) AS actions
	          FROM account_activity aa
	          JOIN accounts a ON a.id = aa.account_id
	          %s
	          GROUP BY a.id, a.username, a.display_name, a.role
	          ORDER BY actions DESC, a.id ASC
	          LIMIT $%d`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: most active accounts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	users := []models.ActiveUser{}
	for rows.Next() {
		var u models.ActiveUser
		if err := rows.Scan(&u.AccountID, &u.Username, &u.DisplayName, &u.Role, &u.Actions); err != nil {
			return nil, fmt.Errorf("%w: scanning active account: %v", ErrDatabaseError, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating active accounts: %v", ErrDatabaseError, err)
	}
	return users, nil
}
