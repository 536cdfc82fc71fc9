package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"winery_backend/internal/cache"
	"winery_backend/internal/models"
)

type reportFixture struct {
	svc       *reportService
	products  *mockProductRepo
	ledger    *mockLedgerRepo
	orders    *mockOrderRepo
	suppliers *mockSupplierRepo
	accounts  *mockAccountRepo
	activity  *mockActivityRepo
	reports   *recordingCache
}

// newReportFixture wires the report service over real ledger and order
// services; only read paths are exercised, so no database is needed.
func newReportFixture() *reportFixture {
	f := &reportFixture{
		products:  &mockProductRepo{},
		ledger:    &mockLedgerRepo{},
		orders:    &mockOrderRepo{},
		suppliers: &mockSupplierRepo{},
		accounts:  &mockAccountRepo{},
		activity:  &mockActivityRepo{},
		reports:   newRecordingCache(),
	}
	ledgerSvc := NewLedgerService(nil, f.products, f.ledger, f.activity, f.reports)
	orderSvc := NewOrderService(nil, f.orders, f.products, f.suppliers, f.ledger, f.activity, f.reports)
	f.svc = NewReportService(ledgerSvc, orderSvc, f.products, f.ledger, f.accounts, f.activity, f.reports).(*reportService)
	return f
}

func TestLedgerActivity_ZeroFillsDays(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture()
	f.svc.now = func() time.Time { return time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC) }

	start := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	f.ledger.On("DailyActivity", ctx, start).Return([]models.DailyMovement{
		{Day: "2024-03-04", EntriesIn: 2, QuantityIn: 40},
	}, nil)

	days, err := f.svc.LedgerActivity(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyMovement{
		{Day: "2024-03-03"},
		{Day: "2024-03-04", EntriesIn: 2, QuantityIn: 40},
		{Day: "2024-03-05"},
	}, days)

	_, err = f.svc.LedgerActivity(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCategoryTotals_UsesCache(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture()
	totals := []models.CategoryTotal{{Category: models.CategoryRawMaterial, ProductCount: 1, TotalOnHand: 500}}
	f.products.On("CategoryTotals", ctx).Return(totals, nil).Once()

	first, err := f.svc.CategoryTotals(ctx)
	require.NoError(t, err)
	second, err := f.svc.CategoryTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	f.products.AssertNumberOfCalls(t, "CategoryTotals", 1)

	require.NoError(t, f.reports.Invalidate(ctx, cache.KeyCategoryTotals))
	f.products.On("CategoryTotals", ctx).Return(totals, nil).Once()
	_, err = f.svc.CategoryTotals(ctx)
	require.NoError(t, err)
	f.products.AssertNumberOfCalls(t, "CategoryTotals", 2)
}

func TestDashboard_SupplierSeesOnlyOwnOrders(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture()
	session := &models.Session{AccountID: 30, Role: models.RoleSupplier}
	supplierID := int64(2)
	f.suppliers.On("GetByAccountID", ctx, int64(30)).Return(&models.SupplierProfile{ID: supplierID}, nil)
	f.orders.On("CountByStatus", ctx, &supplierID).Return(map[models.OrderStatus]int{models.OrderPending: 1}, nil)

	summary, err := f.svc.Dashboard(ctx, session)
	require.NoError(t, err)
	assert.Nil(t, summary.Inventory)
	assert.Nil(t, summary.Purchasing)
	assert.Nil(t, summary.Accounts)
	require.NotNil(t, summary.OwnOrders)
	assert.Equal(t, 1, summary.OwnOrders.ByStatus[models.OrderPending])
}

func TestDashboard_WarehouseManager(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture()
	session := &models.Session{AccountID: 4, Role: models.RoleWarehouseManager}

	f.products.On("List", ctx, models.ProductFilters{}).Return([]models.Product{{ID: 1}, {ID: 2}, {ID: 3}}, nil)
	f.products.On("ListLowStock", ctx).Return([]models.LowStockItem{{Product: models.Product{ID: 2}, Deficit: 4}}, nil)
	f.ledger.On("TopMoving", ctx, dashboardTopMoving, (*time.Time)(nil)).Return([]models.TopMovingItem{{ProductID: 1, TransactionCount: 9}}, nil)
	f.ledger.On("CountSince", ctx, mock.AnythingOfType("time.Time")).Return(6, nil)
	f.orders.On("CountByStatus", ctx, (*int64)(nil)).Return(map[models.OrderStatus]int{
		models.OrderPending: 2, models.OrderApproved: 1, models.OrderRejected: 0, models.OrderReceived: 4,
	}, nil)
	f.orders.On("Spending", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return(decimal.RequireFromString("99.90"), 1, nil)
	f.orders.On("CountByMonth", ctx, mock.AnythingOfType("time.Time")).Return(map[string]int{}, nil)

	summary, err := f.svc.Dashboard(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, summary.Inventory)
	assert.Equal(t, 3, summary.Inventory.ProductCount)
	assert.Equal(t, 1, summary.Inventory.LowStockCount)
	assert.Equal(t, 6, summary.Inventory.EntriesToday)
	require.NotNil(t, summary.Purchasing)
	assert.Equal(t, 2, summary.Purchasing.PendingOrders)
	assert.Len(t, summary.Purchasing.OrdersByMonth, DefaultMonthsBack)
	assert.True(t, decimal.RequireFromString("99.90").Equal(summary.Purchasing.SpendingThisMonth))
	assert.Nil(t, summary.Accounts)
	assert.Nil(t, summary.OwnOrders)
}

func TestMostActiveUsers_RequiresPositiveLimit(t *testing.T) {
	f := newReportFixture()
	_, err := f.svc.MostActiveUsers(context.Background(), 0, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
