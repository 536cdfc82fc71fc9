package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the purchase order workflow state.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderRejected OrderStatus = "rejected"
	OrderReceived OrderStatus = "received"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderRejected, OrderReceived:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderRejected || s == OrderReceived
}

// CanTransitionTo encodes pending -> approved|rejected and approved -> received.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderPending:
		return target == OrderApproved || target == OrderRejected
	case OrderApproved:
		return target == OrderReceived
	}
	return false
}

// PurchaseOrder is a supplier order. Line items are fixed at creation.
type PurchaseOrder struct {
	ID           int64           `json:"id"`
	SupplierID   int64           `json:"supplier_id"`
	Status       OrderStatus     `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	CreatedBy    int64           `json:"created_by"`
	ReceivedBy   *int64          `json:"received_by,omitempty"`
	ReceivedAt   *time.Time      `json:"received_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	SupplierName string          `json:"supplier_name,omitempty"`
	LineItems    []OrderLineItem `json:"line_items,omitempty"`
}

// OrderLineItem is one product line of a purchase order.
type OrderLineItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	LineNo      int             `json:"line_no"`
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ProductName string          `json:"product_name,omitempty"`
}

// LineTotal is quantity × unit price.
func (li OrderLineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// OrderTotal sums the line totals.
func OrderTotal(items []OrderLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.LineTotal())
	}
	return total
}

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	Status     *OrderStatus
	SupplierID *int64
	Page       int
	PageSize   int
}

// ReceiptResult is returned by a successful receipt.
type ReceiptResult struct {
	Order   *PurchaseOrder `json:"order"`
	Entries []LedgerEntry  `json:"entries"`
}
