package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"winery_backend/internal/models"
)

// OrderRepository defines the interface for purchase order database operations.
type OrderRepository interface {
	Create(ctx context.Context, executor SQLExecutor, order *models.PurchaseOrder) (int64, error)
	CreateLineItem(ctx context.Context, executor SQLExecutor, item *models.OrderLineItem) (int64, error)
	GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.PurchaseOrder, error)
	GetLineItems(ctx context.Context, executor SQLExecutor, orderID int64) ([]models.OrderLineItem, error)
	LockStatus(ctx context.Context, executor SQLExecutor, id int64) (models.OrderStatus, error)
	UpdateStatus(ctx context.Context, executor SQLExecutor, id int64, status models.OrderStatus) error
	MarkReceived(ctx context.Context, executor SQLExecutor, id, receivedBy int64, receivedAt time.Time) error
	List(ctx context.Context, filters models.OrderFilters) ([]models.PurchaseOrder, int, error)
	CountByStatus(ctx context.Context, supplierID *int64) (map[models.OrderStatus]int, error)
	CountByMonth(ctx context.Context, since time.Time) (map[string]int, error)
	Spending(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderSelect = `SELECT po.id, po.supplier_id, po.status, po.total_amount, po.created_by,
	       po.received_by, po.received_at, po.created_at, po.updated_at, sp.company_name
	  FROM purchase_orders po
	  JOIN supplier_profiles sp ON sp.id = po.supplier_id`

func scanOrder(s scanner, o *models.PurchaseOrder, extra ...interface{}) error {
	dest := []interface{}{&o.ID, &o.SupplierID, &o.Status, &o.TotalAmount, &o.CreatedBy,
		&o.ReceivedBy, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt, &o.SupplierName}
	return s.Scan(append(dest, extra...)...)
}

// Create inserts the order header in pending status.
func (r *orderRepository) Create(ctx context.Context, executor SQLExecutor, order *models.PurchaseOrder) (int64, error) {
	executor = executorOr(executor, r.db)
	query := `INSERT INTO purchase_orders (supplier_id, status, total_amount, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $5)
	          RETURNING id`
	now := time.Now()
	order.Status = models.OrderPending
	err := executor.QueryRowContext(ctx, query,
		order.SupplierID, order.Status, order.TotalAmount, order.CreatedBy, now,
	).Scan(&order.ID)
	if err != nil {
		return 0, wrapWriteError("creating purchase order", err)
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	return order.ID, nil
}

func (r *orderRepository) CreateLineItem(ctx context.Context, executor SQLExecutor, item *models.OrderLineItem) (int64, error) {
	executor = executorOr(executor, r.db)
	query := `INSERT INTO order_line_items (order_id, line_no, product_id, quantity, unit_price)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	err := executor.QueryRowContext(ctx, query,
		item.OrderID, item.LineNo, item.ProductID, item.Quantity, item.UnitPrice,
	).Scan(&item.ID)
	if err != nil {
		return 0, wrapWriteError("creating order line item", err)
	}
	return item.ID, nil
}

// GetByID loads the order header and its line items.
func (r *orderRepository) GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.PurchaseOrder, error) {
	executor = executorOr(executor, r.db)
	order := &models.PurchaseOrder{}
	if err := scanOrder(executor.QueryRowContext(ctx, orderSelect+` WHERE po.id = $1`, id), order); err != nil {
		return nil, wrapReadError("getting purchase order", err)
	}
	items, err := r.GetLineItems(ctx, executor, id)
	if err != nil {
		return nil, err
	}
	order.LineItems = items
	return order, nil
}

func (r *orderRepository) GetLineItems(ctx context.Context, executor SQLExecutor, orderID int64) ([]models.OrderLineItem, error) {
	executor = executorOr(executor, r.db)
	query := `SELECT li.id, li.order_id, li.line_no, li.product_id, li.quantity, li.unit_price, p.name
	          FROM order_line_items li
	          JOIN products p ON p.id = li.product_id
	          WHERE li.order_id = $1
	          ORDER BY li.line_no`
	rows, err := executor.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting line items for order %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	items := []models.OrderLineItem{}
	for rows.Next() {
		var li models.OrderLineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.LineNo, &li.ProductID, &li.Quantity, &li.UnitPrice, &li.ProductName); err != nil {
			return nil, fmt.Errorf("%w: scanning line item: %v", ErrDatabaseError, err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating line items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

// LockStatus row-locks the order and returns its status.
func (r *orderRepository) LockStatus(ctx context.Context, executor SQLExecutor, id int64) (models.OrderStatus, error) {
	executor = executorOr(executor, r.db)
	var status models.OrderStatus
	err := executor.QueryRowContext(ctx, `SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		return "", wrapReadError("locking purchase order", err)
	}
	return status, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, executor SQLExecutor, id int64, status models.OrderStatus) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE purchase_orders SET status = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, executor, "updating order status", query, status, time.Now(), id)
}

func (r *orderRepository) MarkReceived(ctx context.Context, executor SQLExecutor, id, receivedBy int64, receivedAt time.Time) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE purchase_orders
	          SET status = $1, received_by = $2, received_at = $3, updated_at = $3
	          WHERE id = $4`
	return execOne(ctx, executor, "marking order received", query, models.OrderReceived, receivedBy, receivedAt, id)
}

// List returns order headers newest first; line items are not loaded.
func (r *orderRepository) List(ctx context.Context, filters models.OrderFilters) ([]models.PurchaseOrder, int, error) {
	orders := []models.PurchaseOrder{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(strings.Replace(orderSelect, "sp.company_name", "sp.company_name, COUNT(*) OVER() AS total_count", 1))

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("po.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.SupplierID != nil {
		conditions = append(conditions, fmt.Sprintf("po.supplier_id = $%d", argCount))
		args = append(args, *filters.SupplierID)
		argCount++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY po.created_at DESC, po.id DESC")
	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		args = append(args, filters.PageSize, offset(filters.Page, filters.PageSize))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing purchase orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.PurchaseOrder
		if err := scanOrder(rows, &o, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning purchase order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating purchase orders: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

// CountByStatus returns a count for every status, zero where no orders exist.
func (r *orderRepository) CountByStatus(ctx context.Context, supplierID *int64) (map[models.OrderStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM purchase_orders`
	var args []interface{}
	if supplierID != nil {
		query += ` WHERE supplier_id = $1`
		args = append(args, *supplierID)
	}
	query += ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: counting orders by status: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	counts := map[models.OrderStatus]int{
		models.OrderPending: 0, models.OrderApproved: 0, models.OrderRejected: 0, models.OrderReceived: 0,
	}
	for rows.Next() {
		var status models.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: scanning status count: %v", ErrDatabaseError, err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountByMonth counts orders created since the given instant, keyed by YYYY-MM.
func (r *orderRepository) CountByMonth(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `SELECT TO_CHAR(DATE_TRUNC('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month, COUNT(*)
	          FROM purchase_orders
	          WHERE created_at >= $1
	          GROUP BY month`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("%w: counting orders by month: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var month string
		var n int
		if err := rows.Scan(&month, &n); err != nil {
			return nil, fmt.Errorf("%w: scanning month count: %v", ErrDatabaseError, err)
		}
		counts[month] = n
	}
	return counts, rows.Err()
}

// Spending sums approved and received orders created in [from, to).
func (r *orderRepository) Spending(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error) {
	query := `SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
	          FROM purchase_orders
	          WHERE status IN ('approved', 'received') AND created_at >= $1 AND created_at < $2`
	var total decimal.Decimal
	var count int
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&total, &count); err != nil {
		return decimal.Zero, 0, fmt.Errorf("%w: summing spending: %v", ErrDatabaseError, err)
	}
	return total, count, nil
}
