package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

// newTxDB returns a sqlmock-backed *sql.DB; repositories are mocked so only
// Begin/Commit/Rollback reach it.
func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, sm.ExpectationsWereMet())
		db.Close()
	})
	return db, sm
}

type mockProductRepo struct{ mock.Mock }

func (m *mockProductRepo) Create(ctx context.Context, ex repositories.SQLExecutor, p *models.Product) (int64, error) {
	args := m.Called(ctx, ex, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProductRepo) Update(ctx context.Context, ex repositories.SQLExecutor, p *models.Product) error {
	return m.Called(ctx, ex, p).Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, f models.ProductFilters) ([]models.Product, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *mockProductRepo) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[int64]bool), args.Error(1)
}

func (m *mockProductRepo) LockOnHand(ctx context.Context, ex repositories.SQLExecutor, id int64) (int, error) {
	args := m.Called(ctx, ex, id)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepo) LockProducts(ctx context.Context, ex repositories.SQLExecutor, ids []int64) (map[int64]int, error) {
	args := m.Called(ctx, ex, ids)
	if v := args.Get(0); v != nil {
		return v.(map[int64]int), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductRepo) SetOnHand(ctx context.Context, ex repositories.SQLExecutor, id int64, onHand int) error {
	return m.Called(ctx, ex, id, onHand).Error(0)
}

func (m *mockProductRepo) ListLowStock(ctx context.Context) ([]models.LowStockItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.LowStockItem), args.Error(1)
}

func (m *mockProductRepo) CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.CategoryTotal), args.Error(1)
}

type mockLedgerRepo struct{ mock.Mock }

func (m *mockLedgerRepo) Create(ctx context.Context, ex repositories.SQLExecutor, e *models.LedgerEntry) (int64, error) {
	args := m.Called(ctx, ex, e)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedgerRepo) List(ctx context.Context, f models.LedgerFilters) ([]models.LedgerEntry, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.LedgerEntry), args.Int(1), args.Error(2)
}

func (m *mockLedgerRepo) SumForProduct(ctx context.Context, productID int64) (int, int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *mockLedgerRepo) TopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error) {
	args := m.Called(ctx, limit, since)
	return args.Get(0).([]models.TopMovingItem), args.Error(1)
}

func (m *mockLedgerRepo) DailyActivity(ctx context.Context, since time.Time) ([]models.DailyMovement, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]models.DailyMovement), args.Error(1)
}

func (m *mockLedgerRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) Create(ctx context.Context, ex repositories.SQLExecutor, o *models.PurchaseOrder) (int64, error) {
	args := m.Called(ctx, ex, o)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOrderRepo) CreateLineItem(ctx context.Context, ex repositories.SQLExecutor, li *models.OrderLineItem) (int64, error) {
	args := m.Called(ctx, ex, li)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, ex repositories.SQLExecutor, id int64) (*models.PurchaseOrder, error) {
	args := m.Called(ctx, ex, id)
	if o := args.Get(0); o != nil {
		return o.(*models.PurchaseOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) GetLineItems(ctx context.Context, ex repositories.SQLExecutor, orderID int64) ([]models.OrderLineItem, error) {
	args := m.Called(ctx, ex, orderID)
	return args.Get(0).([]models.OrderLineItem), args.Error(1)
}

func (m *mockOrderRepo) LockStatus(ctx context.Context, ex repositories.SQLExecutor, id int64) (models.OrderStatus, error) {
	args := m.Called(ctx, ex, id)
	return args.Get(0).(models.OrderStatus), args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, ex repositories.SQLExecutor, id int64, status models.OrderStatus) error {
	return m.Called(ctx, ex, id, status).Error(0)
}

func (m *mockOrderRepo) MarkReceived(ctx context.Context, ex repositories.SQLExecutor, id, receivedBy int64, at time.Time) error {
	return m.Called(ctx, ex, id, receivedBy, at).Error(0)
}

func (m *mockOrderRepo) List(ctx context.Context, f models.OrderFilters) ([]models.PurchaseOrder, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.PurchaseOrder), args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) CountByStatus(ctx context.Context, supplierID *int64) (map[models.OrderStatus]int, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).(map[models.OrderStatus]int), args.Error(1)
}

func (m *mockOrderRepo) CountByMonth(ctx context.Context, since time.Time) (map[string]int, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *mockOrderRepo) Spending(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(decimal.Decimal), args.Int(1), args.Error(2)
}

type mockSupplierRepo struct{ mock.Mock }

func (m *mockSupplierRepo) Create(ctx context.Context, ex repositories.SQLExecutor, p *models.SupplierProfile) (int64, error) {
	args := m.Called(ctx, ex, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSupplierRepo) GetByID(ctx context.Context, id int64) (*models.SupplierProfile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.SupplierProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSupplierRepo) GetByAccountID(ctx context.Context, accountID int64) (*models.SupplierProfile, error) {
	args := m.Called(ctx, accountID)
	if p := args.Get(0); p != nil {
		return p.(*models.SupplierProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSupplierRepo) Update(ctx context.Context, ex repositories.SQLExecutor, p *models.SupplierProfile) error {
	return m.Called(ctx, ex, p).Error(0)
}

func (m *mockSupplierRepo) List(ctx context.Context, activeOnly bool) ([]models.SupplierProfile, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]models.SupplierProfile), args.Error(1)
}

type mockAccountRepo struct{ mock.Mock }

func (m *mockAccountRepo) Create(ctx context.Context, ex repositories.SQLExecutor, a *models.Account) (int64, error) {
	args := m.Called(ctx, ex, a)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, ex repositories.SQLExecutor, id int64) (*models.Account, error) {
	args := m.Called(ctx, ex, id)
	if a := args.Get(0); a != nil {
		return a.(*models.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if a := args.Get(0); a != nil {
		return a.(*models.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) List(ctx context.Context, f models.AccountFilters) ([]models.Account, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Account), args.Int(1), args.Error(2)
}

func (m *mockAccountRepo) Update(ctx context.Context, ex repositories.SQLExecutor, a *models.Account) error {
	return m.Called(ctx, ex, a).Error(0)
}

func (m *mockAccountRepo) UpdateRole(ctx context.Context, ex repositories.SQLExecutor, id int64, role models.Role) error {
	return m.Called(ctx, ex, id, role).Error(0)
}

func (m *mockAccountRepo) SetActive(ctx context.Context, ex repositories.SQLExecutor, id int64, active bool) error {
	return m.Called(ctx, ex, id, active).Error(0)
}

func (m *mockAccountRepo) UpdatePassword(ctx context.Context, ex repositories.SQLExecutor, id int64, hash string) error {
	return m.Called(ctx, ex, id, hash).Error(0)
}

func (m *mockAccountRepo) Count(ctx context.Context, activeOnly bool) (int, error) {
	args := m.Called(ctx, activeOnly)
	return args.Int(0), args.Error(1)
}

type mockActivityRepo struct{ mock.Mock }

func (m *mockActivityRepo) Record(ctx context.Context, ex repositories.SQLExecutor, accountID int64, action string) error {
	return m.Called(ctx, ex, accountID, action).Error(0)
}

func (m *mockActivityRepo) MostActive(ctx context.Context, limit int, since *time.Time) ([]models.ActiveUser, error) {
	args := m.Called(ctx, limit, since)
	return args.Get(0).([]models.ActiveUser), args.Error(1)
}

type mockSensorRepo struct{ mock.Mock }

func (m *mockSensorRepo) Create(ctx context.Context, ex repositories.SQLExecutor, r *models.SensorReading) (int64, error) {
	args := m.Called(ctx, ex, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSensorRepo) List(ctx context.Context, f models.SensorFilters) ([]models.SensorReading, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.SensorReading), args.Error(1)
}

func (m *mockSensorRepo) Summary(ctx context.Context, label string, from, to *time.Time, bandMin, bandMax float64) (*models.SensorSummary, error) {
	args := m.Called(ctx, label, from, to, bandMin, bandMax)
	if s := args.Get(0); s != nil {
		return s.(*models.SensorSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSensorRepo) Labels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

// recordingCache is an in-memory ReportCache that remembers invalidations.
type recordingCache struct {
	values      map[string]interface{}
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: map[string]interface{}{}}
}

func (c *recordingCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *[]models.MonthlyCount:
		*d = v.([]models.MonthlyCount)
	case *[]models.CategoryTotal:
		*d = v.([]models.CategoryTotal)
	}
	return true, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value interface{}) error {
	c.values[key] = value
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	c.invalidated = append(c.invalidated, keys...)
	return nil
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
