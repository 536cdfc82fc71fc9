package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"winery_backend/internal/cache"
	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
)

// DefaultMonthsBack is the chart window used by the dashboard; only this window is cached.
const DefaultMonthsBack = 12

const maxMonthsBack = 120

// Money columns are NUMERIC(12,2) for unit prices and NUMERIC(14,2) for totals.
// Prices must already be whole cents so the stored total equals the stored lines.
const priceScale = 2

var (
	maxUnitPrice  = decimal.New(1, 10)
	maxOrderTotal = decimal.New(1, 12)
)

// CreateLineItemRequest is one product line of a new order.
type CreateLineItemRequest struct {
	ProductID int64           `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest is used for creating a new purchase order.
type CreateOrderRequest struct {
	SupplierID int64                   `json:"supplier_id" binding:"required"`
	LineItems  []CreateLineItemRequest `json:"line_items" binding:"dive"`
}

// UpdateOrderStatusRequest is used for approving or rejecting an order.
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,order_status"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest, actorID int64) (*models.PurchaseOrder, error)
	SetStatus(ctx context.Context, orderID int64, status models.OrderStatus, actorID int64) (*models.PurchaseOrder, error)
	Receive(ctx context.Context, orderID int64, actorID int64) (*models.ReceiptResult, error)
	GetOrder(ctx context.Context, session *models.Session, orderID int64) (*models.PurchaseOrder, error)
	ListOrders(ctx context.Context, session *models.Session, filters models.OrderFilters) ([]models.PurchaseOrder, int, error)
	OrdersByStatus(ctx context.Context, session *models.Session, status models.OrderStatus) ([]models.PurchaseOrder, error)
	OrdersCountByMonth(ctx context.Context, monthsBack int) ([]models.MonthlyCount, error)
	SpendingForPeriod(ctx context.Context, from, to time.Time) (*models.SpendingSummary, error)
	CountByStatus(ctx context.Context, session *models.Session) (map[models.OrderStatus]int, error)
}

type orderService struct {
	db           *sql.DB
	orderRepo    repositories.OrderRepository
	productRepo  repositories.ProductRepository
	supplierRepo repositories.SupplierRepository
	activity     repositories.ActivityRepository
	reports      cache.ReportCache
	writer       stockWriter
	now          func() time.Time
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	db *sql.DB,
	or repositories.OrderRepository,
	pr repositories.ProductRepository,
	sr repositories.SupplierRepository,
	lr repositories.LedgerRepository,
	ar repositories.ActivityRepository,
	rc cache.ReportCache,
) OrderService {
	return &orderService{
		db:           db,
		orderRepo:    or,
		productRepo:  pr,
		supplierRepo: sr,
		activity:     ar,
		reports:      rc,
		writer:       stockWriter{products: pr, ledger: lr},
		now:          time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest, actorID int64) (*models.PurchaseOrder, error) {
	if len(req.LineItems) == 0 {
		return nil, ErrEmptyOrder
	}
	items := make([]models.OrderLineItem, 0, len(req.LineItems))
	productIDs := make([]int64, 0, len(req.LineItems))
	for i, li := range req.LineItems {
		if li.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidLineItem, i+1)
		}
		if li.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: line %d quantity must not exceed %d", ErrInvalidLineItem, i+1, MaxQuantity)
		}
		if li.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: line %d unit price must not be negative", ErrInvalidLineItem, i+1)
		}
		if !li.UnitPrice.Equal(li.UnitPrice.Round(priceScale)) {
			return nil, fmt.Errorf("%w: line %d unit price has more than %d decimal places", ErrInvalidLineItem, i+1, priceScale)
		}
		if li.UnitPrice.GreaterThanOrEqual(maxUnitPrice) {
			return nil, fmt.Errorf("%w: line %d unit price must be below %s", ErrInvalidLineItem, i+1, maxUnitPrice)
		}
		items = append(items, models.OrderLineItem{
			LineNo:    i + 1,
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		})
		productIDs = append(productIDs, li.ProductID)
	}

	supplier, err := s.supplierRepo.GetByID(ctx, req.SupplierID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrSupplierNotFound, req.SupplierID)
		}
		return nil, fmt.Errorf("failed to get supplier %d: %w", req.SupplierID, err)
	}
	if !supplier.IsActive {
		return nil, fmt.Errorf("%w: supplier %d is inactive", ErrValidation, supplier.ID)
	}

	existing, err := s.productRepo.ExistingIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check products: %w", err)
	}
	for _, id := range productIDs {
		if !existing[id] {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
	}

	total := models.OrderTotal(items)
	if total.GreaterThanOrEqual(maxOrderTotal) {
		return nil, fmt.Errorf("%w: order total %s must be below %s", ErrValidation, total.StringFixed(priceScale), maxOrderTotal)
	}

	order := &models.PurchaseOrder{
		SupplierID:   supplier.ID,
		TotalAmount:  total,
		CreatedBy:    actorID,
		SupplierName: supplier.CompanyName,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create purchase order: %w", err)
	}
	for i := range items {
		items[i].OrderID = order.ID
		if _, err := s.orderRepo.CreateLineItem(ctx, tx, &items[i]); err != nil {
			return nil, fmt.Errorf("failed to create line %d: %w", items[i].LineNo, err)
		}
	}
	if err := s.activity.Record(ctx, tx, actorID, ActionOrderCreate); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase order: %w", err)
	}
	order.LineItems = items

	invalidateReports(ctx, s.reports)
	log.Info().Int64("order_id", order.ID).Int64("supplier_id", order.SupplierID).
		Str("total", order.TotalAmount.StringFixed(2)).Int("lines", len(items)).
		Msg("Purchase order created")
	return order, nil
}

// SetStatus approves or rejects a pending order.
func (s *orderService) SetStatus(ctx context.Context, orderID int64, status models.OrderStatus, actorID int64) (*models.PurchaseOrder, error) {
	var action string
	switch status {
	case models.OrderApproved:
		action = ActionOrderApprove
	case models.OrderRejected:
		action = ActionOrderReject
	case models.OrderReceived:
		return nil, fmt.Errorf("%w: orders are marked received by receiving them", ErrValidation)
	default:
		return nil, fmt.Errorf("%w: cannot set status %q", ErrValidation, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.orderRepo.LockStatus(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	if !current.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, status); err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	if err := s.activity.Record(ctx, tx, actorID, action); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	invalidateReports(ctx, s.reports)
	log.Info().Int64("order_id", orderID).Str("from", string(current)).Str("to", string(status)).
		Int64("account_id", actorID).Msg("Purchase order status changed")
	return s.orderRepo.GetByID(ctx, nil, orderID)
}

// Receive books an approved order into stock. The order row lock makes a
// second concurrent receipt wait and then fail with ErrAlreadyReceived.
func (s *orderService) Receive(ctx context.Context, orderID int64, actorID int64) (*models.ReceiptResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := s.orderRepo.LockStatus(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	if status == models.OrderReceived {
		return nil, fmt.Errorf("%w: id %d", ErrAlreadyReceived, orderID)
	}
	if !status.CanTransitionTo(models.OrderReceived) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, models.OrderReceived)
	}

	items, err := s.orderRepo.GetLineItems(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items for order %d: %w", orderID, err)
	}
	onHand, err := s.productRepo.LockProducts(ctx, tx, distinctProductIDs(items))
	if err != nil {
		return nil, fmt.Errorf("failed to lock products for order %d: %w", orderID, err)
	}

	ref := orderID
	entries := make([]models.LedgerEntry, 0, len(items))
	for _, li := range items {
		current, ok := onHand[li.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, li.ProductID)
		}
		entry := models.LedgerEntry{
			ProductID:     li.ProductID,
			Direction:     models.DirectionIn,
			Quantity:      li.Quantity,
			ReferenceType: models.ReferenceOrder,
			ReferenceID:   &ref,
			AccountID:     actorID,
			ProductName:   li.ProductName,
		}
		next, err := s.writer.post(ctx, tx, &entry, current)
		if err != nil {
			return nil, err
		}
		onHand[li.ProductID] = next
		entries = append(entries, entry)
	}

	if err := s.orderRepo.MarkReceived(ctx, tx, orderID, actorID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to mark order %d received: %w", orderID, err)
	}
	if err := s.activity.Record(ctx, tx, actorID, ActionOrderReceive); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit receipt: %w", err)
	}

	invalidateReports(ctx, s.reports)
	log.Info().Int64("order_id", orderID).Int("entries", len(entries)).Int64("account_id", actorID).
		Msg("Purchase order received")

	order, err := s.orderRepo.GetByID(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order %d: %w", orderID, err)
	}
	return &models.ReceiptResult{Order: order, Entries: entries}, nil
}

// GetOrder hides other suppliers' orders from supplier sessions.
func (s *orderService) GetOrder(ctx context.Context, session *models.Session, orderID int64) (*models.PurchaseOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	supplierID, err := s.scopedSupplier(ctx, session)
	if err != nil {
		return nil, err
	}
	if supplierID != nil && order.SupplierID != *supplierID {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, session *models.Session, filters models.OrderFilters) ([]models.PurchaseOrder, int, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, *filters.Status)
	}
	supplierID, err := s.scopedSupplier(ctx, session)
	if err != nil {
		return nil, 0, err
	}
	if supplierID != nil {
		filters.SupplierID = supplierID
	}
	orders, total, err := s.orderRepo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (s *orderService) OrdersByStatus(ctx context.Context, session *models.Session, status models.OrderStatus) ([]models.PurchaseOrder, error) {
	orders, _, err := s.ListOrders(ctx, session, models.OrderFilters{Status: &status})
	return orders, err
}

func (s *orderService) CountByStatus(ctx context.Context, session *models.Session) (map[models.OrderStatus]int, error) {
	supplierID, err := s.scopedSupplier(ctx, session)
	if err != nil {
		return nil, err
	}
	counts, err := s.orderRepo.CountByStatus(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	return counts, nil
}

// OrdersCountByMonth returns one bucket per calendar month (UTC), oldest first,
// including months without orders.
func (s *orderService) OrdersCountByMonth(ctx context.Context, monthsBack int) ([]models.MonthlyCount, error) {
	if monthsBack < 1 || monthsBack > maxMonthsBack {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", ErrValidation, maxMonthsBack)
	}
	cacheable := monthsBack == DefaultMonthsBack && s.reports != nil
	if cacheable {
		var cached []models.MonthlyCount
		hit, err := s.reports.Get(ctx, cache.KeyOrdersByMonth, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("Report cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthsBack - 1), 0)
	counts, err := s.orderRepo.CountByMonth(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by month: %w", err)
	}
	result := make([]models.MonthlyCount, 0, monthsBack)
	for i := 0; i < monthsBack; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		result = append(result, models.MonthlyCount{Month: month, Count: counts[month]})
	}

	if cacheable {
		if err := s.reports.Set(ctx, cache.KeyOrdersByMonth, result); err != nil {
			log.Warn().Err(err).Msg("Report cache write failed")
		}
	}
	return result, nil
}

// SpendingForPeriod sums approved and received orders created in [from, to).
func (s *orderService) SpendingForPeriod(ctx context.Context, from, to time.Time) (*models.SpendingSummary, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrValidation)
	}
	total, count, err := s.orderRepo.Spending(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spending: %w", err)
	}
	return &models.SpendingSummary{From: from, To: to, Total: total, OrderCount: count}, nil
}

// scopedSupplier returns the supplier id a session is restricted to, or nil
// for staff sessions.
func (s *orderService) scopedSupplier(ctx context.Context, session *models.Session) (*int64, error) {
	if session == nil || session.Role != models.RoleSupplier {
		return nil, nil
	}
	profile, err := s.supplierRepo.GetByAccountID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: no supplier profile for account %d", ErrForbidden, session.AccountID)
		}
		return nil, fmt.Errorf("failed to resolve supplier for account %d: %w", session.AccountID, err)
	}
	return &profile.ID, nil
}

// distinctProductIDs returns the product ids of items in ascending order.
func distinctProductIDs(items []models.OrderLineItem) []int64 {
	seen := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	for _, li := range items {
		if !seen[li.ProductID] {
			seen[li.ProductID] = true
			ids = append(ids, li.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
