package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"winery_backend/internal/cache"
	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
)

// PostEntryRequest is a manual stock movement. Receipts against purchase
// orders are posted by the order workflow, never through this request.
type PostEntryRequest struct {
	ProductID     int64                `json:"product_id" binding:"required"`
	Quantity      int                  `json:"quantity"`
	Direction     models.Direction     `json:"direction" binding:"required,direction"`
	ReferenceType models.ReferenceType `json:"reference_type" binding:"required,reference_type"`
	ReferenceID   *int64               `json:"reference_id"`
	Notes         *string              `json:"notes"`
	AccountID     int64                `json:"-"`
}

// LedgerService is the only writer of stock levels.
type LedgerService interface {
	PostEntry(ctx context.Context, req PostEntryRequest) (*models.LedgerEntry, error)
	GetOnHand(ctx context.Context, productID int64) (int, error)
	Reconcile(ctx context.Context, productID int64) (*models.Reconciliation, error)
	FilteredHistory(ctx context.Context, filters models.LedgerFilters) ([]models.LedgerEntry, int, error)
	ListLowStock(ctx context.Context) ([]models.LowStockItem, error)
	ListTopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error)
}

type ledgerService struct {
	db          *sql.DB
	productRepo repositories.ProductRepository
	ledgerRepo  repositories.LedgerRepository
	activity    repositories.ActivityRepository
	reports     cache.ReportCache
	writer      stockWriter
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	db *sql.DB,
	pr repositories.ProductRepository,
	lr repositories.LedgerRepository,
	ar repositories.ActivityRepository,
	rc cache.ReportCache,
) LedgerService {
	return &ledgerService{
		db:          db,
		productRepo: pr,
		ledgerRepo:  lr,
		activity:    ar,
		reports:     rc,
		writer:      stockWriter{products: pr, ledger: lr},
	}
}

func (s *ledgerService) PostEntry(ctx context.Context, req PostEntryRequest) (*models.LedgerEntry, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, req.Quantity)
	}
	if req.Quantity > MaxQuantity {
		return nil, fmt.Errorf("%w: got %d", ErrQuantityTooLarge, req.Quantity)
	}
	if !req.Direction.IsValid() {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrValidation, req.Direction)
	}
	if !req.ReferenceType.IsValid() {
		return nil, fmt.Errorf("%w: unknown reference type %q", ErrValidation, req.ReferenceType)
	}
	if req.ReferenceType == models.ReferenceOrder {
		return nil, fmt.Errorf("%w: order receipts are posted by receiving the purchase order", ErrValidation)
	}
	if req.ReferenceID != nil {
		return nil, fmt.Errorf("%w: reference id is only allowed for order entries", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	onHand, err := s.productRepo.LockOnHand(ctx, tx, req.ProductID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, req.ProductID)
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", req.ProductID, err)
	}

	entry := &models.LedgerEntry{
		ProductID:     req.ProductID,
		Direction:     req.Direction,
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		Notes:         req.Notes,
		AccountID:     req.AccountID,
	}
	if _, err := s.writer.post(ctx, tx, entry, onHand); err != nil {
		return nil, err
	}
	if err := s.activity.Record(ctx, tx, req.AccountID, ActionLedgerPost); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger entry: %w", err)
	}

	invalidateReports(ctx, s.reports)
	log.Info().
		Int64("entry_id", entry.ID).
		Int64("product_id", entry.ProductID).
		Str("direction", string(entry.Direction)).
		Int("quantity", entry.Quantity).
		Int("balance_after", entry.BalanceAfter).
		Int64("account_id", entry.AccountID).
		Msg("Ledger entry posted")
	return entry, nil
}

func (s *ledgerService) GetOnHand(ctx context.Context, productID int64) (int, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return 0, fmt.Errorf("failed to get product %d: %w", productID, err)
	}
	return product.OnHand, nil
}

// Reconcile compares the cached on-hand with Σ(in) − Σ(out) over the ledger.
func (s *ledgerService) Reconcile(ctx context.Context, productID int64) (*models.Reconciliation, error) {
	onHand, err := s.GetOnHand(ctx, productID)
	if err != nil {
		return nil, err
	}
	sum, count, err := s.ledgerRepo.SumForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger for product %d: %w", productID, err)
	}
	rec := &models.Reconciliation{
		ProductID:  productID,
		OnHand:     onHand,
		LedgerSum:  sum,
		EntryCount: count,
		Consistent: onHand == sum,
	}
	if !rec.Consistent {
		log.Warn().Int64("product_id", productID).Int("on_hand", onHand).Int("ledger_sum", sum).
			Msg("On-hand does not match ledger sum")
	}
	return rec, nil
}

func (s *ledgerService) FilteredHistory(ctx context.Context, filters models.LedgerFilters) ([]models.LedgerEntry, int, error) {
	if filters.Direction != nil && !filters.Direction.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown direction %q", ErrValidation, *filters.Direction)
	}
	if filters.ReferenceType != nil && !filters.ReferenceType.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown reference type %q", ErrValidation, *filters.ReferenceType)
	}
	if filters.DateFrom != nil && filters.DateTo != nil && !filters.DateFrom.Before(*filters.DateTo) {
		return nil, 0, fmt.Errorf("%w: date_from must be before date_to", ErrValidation)
	}
	if filters.PageSize < 0 {
		return nil, 0, fmt.Errorf("%w: page size must not be negative", ErrValidation)
	}
	entries, total, err := s.ledgerRepo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, total, nil
}

func (s *ledgerService) ListLowStock(ctx context.Context) ([]models.LowStockItem, error) {
	items, err := s.productRepo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return items, nil
}

func (s *ledgerService) ListTopMoving(ctx context.Context, limit int, since *time.Time) ([]models.TopMovingItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}
	items, err := s.ledgerRepo.TopMoving(ctx, limit, since)
	if err != nil {
		return nil, fmt.Errorf("failed to rank products by movement: %w", err)
	}
	return items, nil
}

// stockWriter appends a ledger entry and moves the product's on-hand with it.
// The caller must hold the product row lock in tx and pass the locked on-hand.
type stockWriter struct {
	products repositories.ProductRepository
	ledger   repositories.LedgerRepository
}

func (w stockWriter) post(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry, onHand int) (int, error) {
	next := entry.Direction.Apply(onHand, entry.Quantity)
	if next < 0 {
		return onHand, fmt.Errorf("%w: product %d has %d on hand, %d requested",
			ErrInsufficientStock, entry.ProductID, onHand, entry.Quantity)
	}
	if next > MaxQuantity {
		return onHand, fmt.Errorf("%w: product %d has %d on hand, %d incoming",
			ErrStockLimit, entry.ProductID, onHand, entry.Quantity)
	}
	entry.BalanceAfter = next
	if _, err := w.ledger.Create(ctx, tx, entry); err != nil {
		return onHand, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	if err := w.products.SetOnHand(ctx, tx, entry.ProductID, next); err != nil {
		return onHand, fmt.Errorf("failed to update on-hand for product %d: %w", entry.ProductID, err)
	}
	return next, nil
}

// invalidateReports drops cached chart projections. Failures are logged only;
// the cache entries expire on their own.
func invalidateReports(ctx context.Context, rc cache.ReportCache) {
	if rc == nil {
		return
	}
	if err := rc.Invalidate(ctx, cache.KeyOrdersByMonth, cache.KeyCategoryTotals); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate report cache")
	}
}
