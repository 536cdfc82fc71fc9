package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"winery_backend/internal/models"
)

// SensorRepository stores and aggregates temperature readings.
type SensorRepository interface {
	Create(ctx context.Context, executor SQLExecutor, reading *models.SensorReading) (int64, error)
	List(ctx context.Context, filters models.SensorFilters) ([]models.SensorReading, error)
	Summary(ctx context.Context, label string, from, to *time.Time, bandMin, bandMax float64) (*models.SensorSummary, error)
	Labels(ctx context.Context) ([]string, error)
}

type sensorRepository struct {
	db *sql.DB
}

func NewSensorRepository(db *sql.DB) SensorRepository {
	return &sensorRepository{db: db}
}

func (r *sensorRepository) Create(ctx context.Context, executor SQLExecutor, reading *models.SensorReading) (int64, error) {
	executor = executorOr(executor, r.db)
	query := `INSERT INTO sensor_readings (label, value, recorded_at, created_at)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	reading.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query, reading.Label, reading.Value, reading.RecordedAt, reading.CreatedAt).Scan(&reading.ID)
	if err != nil {
		return 0, wrapWriteError("creating sensor reading", err)
	}
	return reading.ID, nil
}

// List returns readings newest first.
func (r *sensorRepository) List(ctx context.Context, filters models.SensorFilters) ([]models.SensorReading, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, label, value, recorded_at, created_at FROM sensor_readings`)

	conditions, args := sensorConditions(filters.Label, filters.From, filters.To)
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY recorded_at DESC, id DESC")
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sensor readings: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	readings := []models.SensorReading{}
	for rows.Next() {
		var sr models.SensorReading
		if err := rows.Scan(&sr.ID, &sr.Label, &sr.Value, &sr.RecordedAt, &sr.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning sensor reading: %v", ErrDatabaseError, err)
		}
		readings = append(readings, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating sensor readings: %v", ErrDatabaseError, err)
	}
	return readings, nil
}

func (r *sensorRepository) Summary(ctx context.Context, label string, from, to *time.Time, bandMin, bandMax float64) (*models.SensorSummary, error) {
	conditions, args := sensorConditions(&label, from, to)
	args = append(args, bandMin, bandMax)
	where := "TRUE"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf(`SELECT COUNT(*), MIN(value)::float8, MAX(value)::float8, AVG(value)::float8,
	                 COUNT(*) FILTER (WHERE value < $%d OR value > $%d)
	          FROM sensor_readings
	          WHERE %s`, len(args)-1, len(args), where)

	summary := &models.SensorSummary{Label: label, BandMin: bandMin, BandMax: bandMax}
	var minV, maxV, avgV sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&summary.Count, &minV, &maxV, &avgV, &summary.OutOfRange); err != nil {
		return nil, fmt.Errorf("%w: summarizing sensor %q: %v", ErrDatabaseError, label, err)
	}
	if minV.Valid {
		summary.Min = &minV.Float64
	}
	if maxV.Valid {
		summary.Max = &maxV.Float64
	}
	if avgV.Valid {
		summary.Avg = &avgV.Float64
	}
	return summary, nil
}

func (r *sensorRepository) Labels(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT label FROM sensor_readings ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sensor labels: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("%w: scanning sensor label: %v", ErrDatabaseError, err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// sensorConditions builds the shared WHERE clause. To is exclusive.
func sensorConditions(label *string, from, to *time.Time) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	if label != nil && *label != "" {
		args = append(args, *label)
		conditions = append(conditions, fmt.Sprintf("label = $%d", len(args)))
	}
	if from != nil {
		args = append(args, *from)
		conditions = append(conditions, fmt.Sprintf("recorded_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conditions = append(conditions, fmt.Sprintf("recorded_at < $%d", len(args)))
	}
	return conditions, args
}
