package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"winery_backend/internal/models"
	"winery_backend/pkg/utils"
)

// ProductRepository defines the interface for product database operations.
// On-hand is written only through SetOnHand, which callers invoke after
// locking the row with LockOnHand or LockProducts in the same transaction.
type ProductRepository interface {
	Create(ctx context.Context, executor SQLExecutor, product *models.Product) (int64, error)
	Update(ctx context.Context, executor SQLExecutor, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, filters models.ProductFilters) ([]models.Product, error)
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	LockOnHand(ctx context.Context, executor SQLExecutor, id int64) (int, error)
	LockProducts(ctx context.Context, executor SQLExecutor, ids []int64) (map[int64]int, error)
	SetOnHand(ctx context.Context, executor SQLExecutor, id int64, onHand int) error
	ListLowStock(ctx context.Context) ([]models.LowStockItem, error)
	CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, category, unit, min_stock, description, on_hand, created_at, updated_at`

func scanProduct(s scanner, p *models.Product) error {
	return s.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.MinStock, &p.Description, &p.OnHand,
		&p.CreatedAt, &p.UpdatedAt)
}

// Create inserts the product with on_hand 0; initial stock is posted as a ledger entry.
func (r *productRepository) Create(ctx context.Context, executor SQLExecutor, product *models.Product) (int64, error) {
	executor = executorOr(executor, r.db)
	query := `INSERT INTO products (name, category, unit, min_stock, description, on_hand, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, 0, $6, $6)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		product.Name, product.Category, product.Unit, product.MinStock, product.Description, now,
	).Scan(&product.ID)
	if err != nil {
		return 0, wrapWriteError("creating product", err)
	}
	product.OnHand = 0
	product.CreatedAt = now
	product.UpdatedAt = now
	return product.ID, nil
}

// Update never touches on_hand.
func (r *productRepository) Update(ctx context.Context, executor SQLExecutor, product *models.Product) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE products
	          SET name = $1, category = $2, unit = $3, min_stock = $4, description = $5, updated_at = $6
	          WHERE id = $7`
	product.UpdatedAt = time.Now()
	return execOne(ctx, executor, "updating product", query,
		product.Name, product.Category, product.Unit, product.MinStock, product.Description, product.UpdatedAt, product.ID)
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := scanProduct(r.db.QueryRowContext(ctx, query, id), product); err != nil {
		return nil, wrapReadError("getting product by id", err)
	}
	return product, nil
}

// List returns products ordered by name. Search is a case-insensitive substring
// match with LIKE wildcards taken literally.
func (r *productRepository) List(ctx context.Context, filters models.ProductFilters) ([]models.Product, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + productColumns + ` FROM products`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCount))
		args = append(args, *filters.Category)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, argCount))
		args = append(args, "%"+utils.EscapeLike(*filters.Search)+"%")
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY name ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating products: %v", ErrDatabaseError, err)
	}
	return products, nil
}

// ExistingIDs reports which of ids exist.
func (r *productRepository) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: checking product ids: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning product id: %v", ErrDatabaseError, err)
		}
		found[id] = true
	}
	return found, rows.Err()
}

// LockOnHand takes a row lock on the product and returns its current on-hand.
// The lock is held until the surrounding transaction ends.
func (r *productRepository) LockOnHand(ctx context.Context, executor SQLExecutor, id int64) (int, error) {
	executor = executorOr(executor, r.db)
	var onHand int
	err := executor.QueryRowContext(ctx, `SELECT on_hand FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&onHand)
	if err != nil {
		return 0, wrapReadError("locking product", err)
	}
	return onHand, nil
}

// LockProducts locks several product rows in ascending id order so that two
// transactions touching overlapping sets cannot deadlock.
func (r *productRepository) LockProducts(ctx context.Context, executor SQLExecutor, ids []int64) (map[int64]int, error) {
	executor = executorOr(executor, r.db)
	rows, err := executor.QueryContext(ctx,
		`SELECT id, on_hand FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: locking products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	onHand := make(map[int64]int, len(ids))
	for rows.Next() {
		var id int64
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("%w: scanning locked product: %v", ErrDatabaseError, err)
		}
		onHand[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating locked products: %v", ErrDatabaseError, err)
	}
	return onHand, nil
}

func (r *productRepository) SetOnHand(ctx context.Context, executor SQLExecutor, id int64, onHand int) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE products SET on_hand = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, executor, "setting product on-hand", query, onHand, time.Now(), id)
}

// ListLowStock returns products with on_hand <= min_stock, largest deficit first.
func (r *productRepository) ListLowStock(ctx context.Context) ([]models.LowStockItem, error) {
	query := `SELECT ` + productColumns + `, min_stock - on_hand AS deficit
	          FROM products
	          WHERE on_hand <= min_stock
	          ORDER BY deficit DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing low stock: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.LowStockItem{}
	for rows.Next() {
		var item models.LowStockItem
		p := &item.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.MinStock, &p.Description, &p.OnHand,
			&p.CreatedAt, &p.UpdatedAt, &item.Deficit); err != nil {
			return nil, fmt.Errorf("%w: scanning low stock item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating low stock: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *productRepository) CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error) {
	query := `SELECT category, COUNT(*), COALESCE(SUM(on_hand), 0),
	                 COUNT(*) FILTER (WHERE on_hand <= min_stock)
	          FROM products
	          GROUP BY category
	          ORDER BY category`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: category totals: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	byCategory := make(map[models.ProductCategory]models.CategoryTotal)
	for rows.Next() {
		var t models.CategoryTotal
		if err := rows.Scan(&t.Category, &t.ProductCount, &t.TotalOnHand, &t.LowStock); err != nil {
			return nil, fmt.Errorf("%w: scanning category total: %v", ErrDatabaseError, err)
		}
		byCategory[t.Category] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating category totals: %v", ErrDatabaseError, err)
	}

	// every category is reported, empty ones with zeroes
	totals := make([]models.CategoryTotal, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		t, ok := byCategory[c]
		if !ok {
			t = models.CategoryTotal{Category: c}
		}
		totals = append(totals, t)
	}
	return totals, nil
}
