package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"winery_backend/internal/cache"
	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
)

// CreateProductRequest defines the structure for creating a new product.
type CreateProductRequest struct {
	Name            string                 `json:"name" binding:"required"`
	Category        models.ProductCategory `json:"category" binding:"required,product_category"`
	Unit            string                 `json:"unit" binding:"required"`
	MinStock        int                    `json:"min_stock" binding:"gte=0"`
	InitialQuantity int                    `json:"initial_quantity" binding:"gte=0"`
	Description     *string                `json:"description"`
}

// UpdateProductRequest changes catalog fields only; stock moves through the ledger.
type UpdateProductRequest struct {
	Name        *string                 `json:"name"`
	Category    *models.ProductCategory `json:"category" binding:"omitempty,product_category"`
	Unit        *string                 `json:"unit"`
	MinStock    *int                    `json:"min_stock" binding:"omitempty,gte=0"`
	Description *string                 `json:"description"`
}

type CatalogService interface {
	AddProduct(ctx context.Context, req CreateProductRequest, actorID int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest, actorID int64) (*models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	ListByCategory(ctx context.Context, category models.ProductCategory) ([]models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
	List(ctx context.Context, filters models.ProductFilters) ([]models.Product, error)
}

type catalogService struct {
	db          *sql.DB
	productRepo repositories.ProductRepository
	activity    repositories.ActivityRepository
	reports     cache.ReportCache
	writer      stockWriter
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(
	db *sql.DB,
	pr repositories.ProductRepository,
	lr repositories.LedgerRepository,
	ar repositories.ActivityRepository,
	rc cache.ReportCache,
) CatalogService {
	return &catalogService{
		db:          db,
		productRepo: pr,
		activity:    ar,
		reports:     rc,
		writer:      stockWriter{products: pr, ledger: lr},
	}
}

const initialStockNote = "initial stock"

// AddProduct creates the product with zero stock and, for a positive initial
// quantity, posts an inbound adjustment in the same transaction.
func (s *catalogService) AddProduct(ctx context.Context, req CreateProductRequest, actorID int64) (*models.Product, error) {
	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Unit:        strings.TrimSpace(req.Unit),
		MinStock:    req.MinStock,
		Description: req.Description,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if req.InitialQuantity < 0 {
		return nil, fmt.Errorf("%w: initial quantity must not be negative", ErrValidation)
	}
	if req.InitialQuantity > MaxQuantity {
		return nil, fmt.Errorf("%w: initial quantity %d", ErrQuantityTooLarge, req.InitialQuantity)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.productRepo.Create(ctx, tx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if req.InitialQuantity > 0 {
		note := initialStockNote
		entry := &models.LedgerEntry{
			ProductID:     product.ID,
			Direction:     models.DirectionIn,
			Quantity:      req.InitialQuantity,
			ReferenceType: models.ReferenceAdjustment,
			Notes:         &note,
			AccountID:     actorID,
		}
		onHand, err := s.writer.post(ctx, tx, entry, 0)
		if err != nil {
			return nil, err
		}
		product.OnHand = onHand
	}
	if err := s.activity.Record(ctx, tx, actorID, ActionProductCreate); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit product creation: %w", err)
	}

	invalidateReports(ctx, s.reports)
	log.Info().Int64("product_id", product.ID).Str("name", product.Name).Int("on_hand", product.OnHand).
		Msg("Product created")
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest, actorID int64) (*models.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Unit != nil {
		product.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.productRepo.Update(ctx, tx, product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if err := s.activity.Record(ctx, tx, actorID, ActionProductUpdate); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit product update: %w", err)
	}
	invalidateReports(ctx, s.reports)
	return product, nil
}

func (s *catalogService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return product, nil
}

func (s *catalogService) ListByCategory(ctx context.Context, category models.ProductCategory) ([]models.Product, error) {
	return s.List(ctx, models.ProductFilters{Category: &category})
}

// Search matches names case-insensitively; % and _ in the query match literally.
func (s *catalogService) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", ErrValidation)
	}
	return s.List(ctx, models.ProductFilters{Search: &query})
}

func (s *catalogService) List(ctx context.Context, filters models.ProductFilters) ([]models.Product, error) {
	if filters.Category != nil && !filters.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, *filters.Category)
	}
	products, err := s.productRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func validateProduct(p *models.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.Unit == "" {
		return fmt.Errorf("%w: unit is required", ErrValidation)
	}
	if !p.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, p.Category)
	}
	if p.MinStock < 0 {
		return fmt.Errorf("%w: min stock must not be negative", ErrValidation)
	}
	if p.MinStock > MaxQuantity {
		return fmt.Errorf("%w: min stock %d", ErrQuantityTooLarge, p.MinStock)
	}
	return nil
}
