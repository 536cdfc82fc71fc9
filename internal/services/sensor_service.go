package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"winery_backend/internal/config"
	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
)

const (
	defaultReadingLimit = 100
	maxReadingLimit     = 1000
)

// RecordReadingRequest DTO. RecordedAt defaults to the time of the request.
type RecordReadingRequest struct {
	Label      string     `json:"label" binding:"required"`
	Value      *float64   `json:"value" binding:"required"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type SensorService interface {
	RecordReading(ctx context.Context, req RecordReadingRequest, actorID int64) (*models.SensorReading, error)
	ListReadings(ctx context.Context, filters models.SensorFilters) ([]models.SensorReading, error)
	Summary(ctx context.Context, label string, from, to *time.Time) (*models.SensorSummary, error)
	Labels(ctx context.Context) ([]string, error)
}

type sensorService struct {
	db         *sql.DB
	sensorRepo repositories.SensorRepository
	activity   repositories.ActivityRepository
	band       config.SensorConfig
	now        func() time.Time
}

func NewSensorService(db *sql.DB, sr repositories.SensorRepository, ar repositories.ActivityRepository, band config.SensorConfig) SensorService {
	return &sensorService{db: db, sensorRepo: sr, activity: ar, band: band, now: time.Now}
}

func (s *sensorService) RecordReading(ctx context.Context, req RecordReadingRequest, actorID int64) (*models.SensorReading, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrValidation)
	}
	if req.Value == nil {
		return nil, fmt.Errorf("%w: value is required", ErrValidation)
	}
	recordedAt := s.now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}
	if recordedAt.After(s.now().Add(time.Minute)) {
		return nil, fmt.Errorf("%w: recorded_at is in the future", ErrValidation)
	}

	reading := &models.SensorReading{Label: label, Value: *req.Value, RecordedAt: recordedAt}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.sensorRepo.Create(ctx, tx, reading); err != nil {
		return nil, fmt.Errorf("failed to store sensor reading: %w", err)
	}
	if err := s.activity.Record(ctx, tx, actorID, ActionSensorRecord); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sensor reading: %w", err)
	}
	reading.OutOfRange = s.outOfRange(reading.Value)
	return reading, nil
}

func (s *sensorService) ListReadings(ctx context.Context, filters models.SensorFilters) ([]models.SensorReading, error) {
	if err := validateWindow(filters.From, filters.To); err != nil {
		return nil, err
	}
	switch {
	case filters.Limit <= 0:
		filters.Limit = defaultReadingLimit
	case filters.Limit > maxReadingLimit:
		filters.Limit = maxReadingLimit
	}
	readings, err := s.sensorRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensor readings: %w", err)
	}
	for i := range readings {
		readings[i].OutOfRange = s.outOfRange(readings[i].Value)
	}
	return readings, nil
}

func (s *sensorService) Summary(ctx context.Context, label string, from, to *time.Time) (*models.SensorSummary, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrValidation)
	}
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	summary, err := s.sensorRepo.Summary(ctx, label, from, to, s.band.BandMin, s.band.BandMax)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize sensor %q: %w", label, err)
	}
	return summary, nil
}

func (s *sensorService) Labels(ctx context.Context) ([]string, error) {
	labels, err := s.sensorRepo.Labels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensor labels: %w", err)
	}
	return labels, nil
}

func (s *sensorService) outOfRange(v float64) bool {
	return v < s.band.BandMin || v > s.band.BandMax
}

func validateWindow(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return fmt.Errorf("%w: from must be before to", ErrValidation)
	}
	return nil
}
