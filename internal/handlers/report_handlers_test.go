package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
)

type mockReportService struct{ mock.Mock }

func (m *mockReportService) LowStock(ctx context.Context) ([]models.LowStockItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.LowStockItem), args.Error(1)
}

func (m *mockReportService) TopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error) {
	args := m.Called(ctx, limit, since)
	return args.Get(0).([]models.TopMovingItem), args.Error(1)
}

func (m *mockReportService) CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.CategoryTotal), args.Error(1)
}

func (m *mockReportService) LedgerActivity(ctx context.Context, days int) ([]models.DailyMovement, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]models.DailyMovement), args.Error(1)
}

func (m *mockReportService) OrdersCountByMonth(ctx context.Context, monthsBack int) ([]models.MonthlyCount, error) {
	args := m.Called(ctx, monthsBack)
	return args.Get(0).([]models.MonthlyCount), args.Error(1)
}

func (m *mockReportService) Spending(ctx context.Context, from, to time.Time) (*models.SpendingSummary, error) {
	args := m.Called(ctx, from, to)
	if s := args.Get(0); s != nil {
		return s.(*models.SpendingSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReportService) MostActiveUsers(ctx context.Context, limit int, since *time.Time) ([]models.ActiveUser, error) {
	args := m.Called(ctx, limit, since)
	return args.Get(0).([]models.ActiveUser), args.Error(1)
}

func (m *mockReportService) Dashboard(ctx context.Context, session *models.Session) (*models.DashboardSummary, error) {
	args := m.Called(ctx, session)
	if d := args.Get(0); d != nil {
		return d.(*models.DashboardSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func newReportRouter(reports *mockReportService, session *models.Session) *gin.Engine {
	r := newTestRouter(session)
	h := NewReportHandler(reports)
	r.GET("/reports/dashboard", h.Dashboard)
	r.GET("/reports/low-stock", h.LowStock)
	r.GET("/reports/top-moving", h.TopMoving)
	r.GET("/reports/orders-by-month", h.OrdersByMonth)
	r.GET("/reports/spending", h.Spending)
	r.GET("/reports/active-users", h.MostActiveUsers)
	return r
}

func TestTopMovingQuery(t *testing.T) {
	reports := new(mockReportService)
	r := newReportRouter(reports, &models.Session{AccountID: 1, Role: models.RoleAdmin})

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	reports.On("TopMoving", mock.Anything, 10, (*time.Time)(nil)).
		Return([]models.TopMovingItem{{ProductID: 2, TransactionCount: 9}}, nil).Once()
	reports.On("TopMoving", mock.Anything, 3, &since).
		Return([]models.TopMovingItem{}, nil).Once()

	w := doJSON(r, http.MethodGet, "/reports/top-moving", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.TopMovingItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 9, items[0].TransactionCount)

	w = doJSON(r, http.MethodGet, "/reports/top-moving?limit=3&since=2024-03-01", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, bad := range []string{"?limit=many", "?since=03/01/2024"} {
		w = doJSON(r, http.MethodGet, "/reports/top-moving"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
	reports.AssertExpectations(t)
}

func TestTopMovingServiceValidation(t *testing.T) {
	reports := new(mockReportService)
	r := newReportRouter(reports, &models.Session{AccountID: 1, Role: models.RoleAdmin})
	reports.On("TopMoving", mock.Anything, -1, (*time.Time)(nil)).
		Return([]models.TopMovingItem(nil), fmt.Errorf("%w: limit must be positive", services.ErrValidation))

	w := doJSON(r, http.MethodGet, "/reports/top-moving?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(w).Error.Code)
}

func TestSpendingRange(t *testing.T) {
	reports := new(mockReportService)
	r := newReportRouter(reports, &models.Session{AccountID: 1, Role: models.RolePurchasingManager})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	reports.On("Spending", mock.Anything, from, to).
		Return(&models.SpendingSummary{From: from, To: to, Total: decimal.RequireFromString("1250.40"), OrderCount: 3}, nil).Once()

	w := doJSON(r, http.MethodGet, "/reports/spending?from=2024-01-01&to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary models.SpendingSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, decimal.RequireFromString("1250.40").Equal(summary.Total))
	assert.Equal(t, 3, summary.OrderCount)
	reports.AssertExpectations(t)
}

func TestSpendingDefaultsToCurrentMonth(t *testing.T) {
	reports := new(mockReportService)
	r := newReportRouter(reports, &models.Session{AccountID: 1, Role: models.RolePurchasingManager})

	monthStart := mock.MatchedBy(func(ts time.Time) bool {
		return ts.Day() == 1 && ts.Hour() == 0 && ts.Location() == time.UTC
	})
	reports.On("Spending", mock.Anything, monthStart, monthStart).
		Return(&models.SpendingSummary{Total: decimal.Zero}, nil).
		Run(func(args mock.Arguments) {
			from, to := args.Get(1).(time.Time), args.Get(2).(time.Time)
			assert.Equal(t, from.AddDate(0, 1, 0), to)
		})

	w := doJSON(r, http.MethodGet, "/reports/spending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reports.AssertExpectations(t)
}

func TestOrdersByMonthDefault(t *testing.T) {
	reports := new(mockReportService)
	r := newReportRouter(reports, &models.Session{AccountID: 1, Role: models.RoleAdmin})
	reports.On("OrdersCountByMonth", mock.Anything, services.DefaultMonthsBack).
		Return([]models.MonthlyCount{{Month: "2024-03", Count: 2}}, nil)

	w := doJSON(r, http.MethodGet, "/reports/orders-by-month", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var counts []models.MonthlyCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, []models.MonthlyCount{{Month: "2024-03", Count: 2}}, counts)
}

func TestDashboardUsesCallerSession(t *testing.T) {
	session := &models.Session{AccountID: 12, Role: models.RoleSupplier}
	reports := new(mockReportService)
	r := newReportRouter(reports, session)
	reports.On("Dashboard", mock.Anything, session).
		Return(&models.DashboardSummary{Role: models.RoleSupplier, OwnOrders: &models.SupplierSection{}}, nil)

	w := doJSON(r, http.MethodGet, "/reports/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "own_orders")
	assert.NotContains(t, body, "inventory")
	assert.NotContains(t, body, "purchasing")
}

func TestDashboardWithoutSession(t *testing.T) {
	reports := new(mockReportService)
	r := newReportRouter(reports, nil)

	w := doJSON(r, http.MethodGet, "/reports/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	reports.AssertNotCalled(t, "Dashboard", mock.Anything, mock.Anything)
}
