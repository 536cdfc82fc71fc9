package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"winery_backend/internal/config"
	"winery_backend/internal/models"
)

func newSensorService(db *sql.DB, repo *mockSensorRepo, activity *mockActivityRepo, now time.Time) *sensorService {
	svc := NewSensorService(db, repo, activity, config.SensorConfig{BandMin: 10, BandMax: 18}).(*sensorService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestRecordReading(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("flags out-of-band value", func(t *testing.T) {
		db, sm := newTxDB(t)
		repo, activity := &mockSensorRepo{}, &mockActivityRepo{}
		svc := newSensorService(db, repo, activity, now)
		sm.ExpectBegin()
		sm.ExpectCommit()
		repo.On("Create", ctx, mock.AnythingOfType("*sql.Tx"), mock.MatchedBy(func(r *models.SensorReading) bool {
			return r.Label == "cellar-1" && r.RecordedAt.Equal(now)
		})).Return(int64(1), nil)
		activity.On("Record", ctx, mock.AnythingOfType("*sql.Tx"), int64(4), ActionSensorRecord).Return(nil)

		value := 21.5
		reading, err := svc.RecordReading(ctx, RecordReadingRequest{Label: " cellar-1 ", Value: &value}, 4)
		require.NoError(t, err)
		assert.True(t, reading.OutOfRange)
	})

	t.Run("rolls back the reading when the activity row fails", func(t *testing.T) {
		db, sm := newTxDB(t)
		repo, activity := &mockSensorRepo{}, &mockActivityRepo{}
		svc := newSensorService(db, repo, activity, now)
		sm.ExpectBegin()
		sm.ExpectRollback()
		repo.On("Create", ctx, mock.AnythingOfType("*sql.Tx"), mock.Anything).Return(int64(2), nil)
		activity.On("Record", ctx, mock.AnythingOfType("*sql.Tx"), int64(4), ActionSensorRecord).
			Return(errors.New("connection reset"))

		value := 13.0
		_, err := svc.RecordReading(ctx, RecordReadingRequest{Label: "cellar-1", Value: &value}, 4)
		require.Error(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects future timestamp", func(t *testing.T) {
		svc := newSensorService(nil, &mockSensorRepo{}, &mockActivityRepo{}, now)
		value := 12.0
		future := now.Add(time.Hour)
		_, err := svc.RecordReading(ctx, RecordReadingRequest{Label: "cellar-1", Value: &value, RecordedAt: &future}, 4)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("requires value", func(t *testing.T) {
		svc := newSensorService(nil, &mockSensorRepo{}, &mockActivityRepo{}, now)
		_, err := svc.RecordReading(ctx, RecordReadingRequest{Label: "cellar-1"}, 4)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestListReadings_ClampsLimitAndFlags(t *testing.T) {
	ctx := context.Background()
	repo := &mockSensorRepo{}
	svc := newSensorService(nil, repo, &mockActivityRepo{}, time.Now())
	repo.On("List", ctx, mock.MatchedBy(func(f models.SensorFilters) bool { return f.Limit == maxReadingLimit })).
		Return([]models.SensorReading{{Value: 9.5}, {Value: 14}, {Value: 18}}, nil)

	readings, err := svc.ListReadings(ctx, models.SensorFilters{Limit: 5000})
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.True(t, readings[0].OutOfRange)
	assert.False(t, readings[1].OutOfRange)
	assert.False(t, readings[2].OutOfRange, "band edges are in range")
}
