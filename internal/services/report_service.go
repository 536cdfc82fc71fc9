package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"winery_backend/internal/cache"
	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
)

const (
	dashboardTopMoving   = 5
	dashboardActiveUsers = 5
	maxActivityDays      = 366
)

// ReportService is read-only; it never writes and never locks.
type ReportService interface {
	LowStock(ctx context.Context) ([]models.LowStockItem, error)
	TopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error)
	CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error)
	LedgerActivity(ctx context.Context, days int) ([]models.DailyMovement, error)
	OrdersCountByMonth(ctx context.Context, monthsBack int) ([]models.MonthlyCount, error)
	Spending(ctx context.Context, from, to time.Time) (*models.SpendingSummary, error)
	MostActiveUsers(ctx context.Context, limit int, since *time.Time) ([]models.ActiveUser, error)
	Dashboard(ctx context.Context, session *models.Session) (*models.DashboardSummary, error)
}

type reportService struct {
	ledger      LedgerService
	orders      OrderService
	productRepo repositories.ProductRepository
	ledgerRepo  repositories.LedgerRepository
	accountRepo repositories.AccountRepository
	activity    repositories.ActivityRepository
	reports     cache.ReportCache
	now         func() time.Time
}

func NewReportService(
	ledger LedgerService,
	orders OrderService,
	pr repositories.ProductRepository,
	lr repositories.LedgerRepository,
	ar repositories.AccountRepository,
	act repositories.ActivityRepository,
	rc cache.ReportCache,
) ReportService {
	return &reportService{
		ledger:      ledger,
		orders:      orders,
		productRepo: pr,
		ledgerRepo:  lr,
		accountRepo: ar,
		activity:    act,
		reports:     rc,
		now:         time.Now,
	}
}

func (s *reportService) LowStock(ctx context.Context) ([]models.LowStockItem, error) {
	return s.ledger.ListLowStock(ctx)
}

func (s *reportService) TopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error) {
	return s.ledger.ListTopMoving(ctx, limit, since)
}

func (s *reportService) CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error) {
	var cached []models.CategoryTotal
	if hit, err := s.reports.Get(ctx, cache.KeyCategoryTotals, &cached); err != nil {
		log.Warn().Err(err).Msg("Report cache read failed")
	} else if hit {
		return cached, nil
	}

	totals, err := s.productRepo.CategoryTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute category totals: %w", err)
	}
	if err := s.reports.Set(ctx, cache.KeyCategoryTotals, totals); err != nil {
		log.Warn().Err(err).Msg("Report cache write failed")
	}
	return totals, nil
}

// LedgerActivity returns one bucket per UTC day for the last days days,
// oldest first, including days without entries.
func (s *reportService) LedgerActivity(ctx context.Context, days int) ([]models.DailyMovement, error) {
	if days < 1 || days > maxActivityDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrValidation, maxActivityDays)
	}
	start := startOfDay(s.now()).AddDate(0, 0, -(days - 1))
	rows, err := s.ledgerRepo.DailyActivity(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger activity: %w", err)
	}
	byDay := make(map[string]models.DailyMovement, len(rows))
	for _, r := range rows {
		byDay[r.Day] = r
	}
	result := make([]models.DailyMovement, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = models.DailyMovement{Day: day}
		}
		result = append(result, d)
	}
	return result, nil
}

func (s *reportService) OrdersCountByMonth(ctx context.Context, monthsBack int) ([]models.MonthlyCount, error) {
	return s.orders.OrdersCountByMonth(ctx, monthsBack)
}

func (s *reportService) Spending(ctx context.Context, from, to time.Time) (*models.SpendingSummary, error) {
	return s.orders.SpendingForPeriod(ctx, from, to)
}

func (s *reportService) MostActiveUsers(ctx context.Context, limit int, since *time.Time) ([]models.ActiveUser, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}
	users, err := s.activity.MostActive(ctx, limit, since)
	if err != nil {
		return nil, fmt.Errorf("failed to rank accounts by activity: %w", err)
	}
	return users, nil
}

// Dashboard assembles the sections the session's role may see.
func (s *reportService) Dashboard(ctx context.Context, session *models.Session) (*models.DashboardSummary, error) {
	if session == nil {
		return nil, ErrForbidden
	}
	summary := &models.DashboardSummary{Role: session.Role}
	now := s.now()

	if session.Can(models.CapViewInventory) {
		section, err := s.inventorySection(ctx, now)
		if err != nil {
			return nil, err
		}
		summary.Inventory = section
	}
	if session.Can(models.CapViewPurchasing) {
		section, err := s.purchasingSection(ctx, session, now)
		if err != nil {
			return nil, err
		}
		summary.Purchasing = section
	}
	if session.Can(models.CapManageAccounts) {
		active, err := s.accountRepo.Count(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("failed to count active accounts: %w", err)
		}
		since := now.AddDate(0, 0, -30)
		users, err := s.MostActiveUsers(ctx, dashboardActiveUsers, &since)
		if err != nil {
			return nil, err
		}
		summary.Accounts = &models.AccountsSection{ActiveAccounts: active, MostActiveUsers: users}
	}
	if session.Can(models.CapViewOwnOrders) {
		counts, err := s.orders.CountByStatus(ctx, session)
		if err != nil {
			return nil, err
		}
		summary.OwnOrders = &models.SupplierSection{ByStatus: counts}
	}
	return summary, nil
}

func (s *reportService) inventorySection(ctx context.Context, now time.Time) (*models.InventorySection, error) {
	products, err := s.productRepo.List(ctx, models.ProductFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	low, err := s.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.TopMoving(ctx, dashboardTopMoving, nil)
	if err != nil {
		return nil, err
	}
	today, err := s.ledgerRepo.CountSince(ctx, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to count today's entries: %w", err)
	}
	return &models.InventorySection{
		ProductCount:  len(products),
		LowStockCount: len(low),
		EntriesToday:  today,
		LowStock:      low,
		TopMoving:     top,
	}, nil
}

func (s *reportService) purchasingSection(ctx context.Context, session *models.Session, now time.Time) (*models.PurchasingSection, error) {
	counts, err := s.orders.CountByStatus(ctx, session)
	if err != nil {
		return nil, err
	}
	monthStart := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	spending, err := s.orders.SpendingForPeriod(ctx, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	byMonth, err := s.orders.OrdersCountByMonth(ctx, DefaultMonthsBack)
	if err != nil {
		return nil, err
	}
	return &models.PurchasingSection{
		PendingOrders:     counts[models.OrderPending],
		ApprovedOrders:    counts[models.OrderApproved],
		SpendingThisMonth: spending.Total,
		OrdersByMonth:     byMonth,
	}, nil
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
