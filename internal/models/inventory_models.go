package models

import "time"

// ProductCategory classifies a stock-keeping unit.
type ProductCategory string

const (
	CategoryRawMaterial     ProductCategory = "raw_material"
	CategoryPackaging       ProductCategory = "packaging"
	CategoryFinishedProduct ProductCategory = "finished_product"
)

// AllCategories lists every category in display order.
var AllCategories = []ProductCategory{CategoryRawMaterial, CategoryPackaging, CategoryFinishedProduct}

func (c ProductCategory) IsValid() bool {
	switch c {
	case CategoryRawMaterial, CategoryPackaging, CategoryFinishedProduct:
		return true
	}
	return false
}

// Product is a stock-keeping unit. OnHand is a cache of the ledger sum and is
// only ever changed by ledger postings.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    ProductCategory `json:"category"`
	Unit        string          `json:"unit"`
	MinStock    int             `json:"min_stock"`
	Description *string         `json:"description,omitempty"`
	OnHand      int             `json:"on_hand"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsLowStock reports whether on-hand is at or below the minimum threshold.
func (p *Product) IsLowStock() bool {
	return p.OnHand <= p.MinStock
}

// Deficit is how far on-hand sits below the threshold (zero or negative when not short).
func (p *Product) Deficit() int {
	return p.MinStock - p.OnHand
}

// Direction is the sign of a stock movement.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Apply returns onHand after moving quantity in this direction.
func (d Direction) Apply(onHand, quantity int) int {
	if d == DirectionOut {
		return onHand - quantity
	}
	return onHand + quantity
}

// ReferenceType is the business reason for a ledger entry.
type ReferenceType string

const (
	ReferenceOrder      ReferenceType = "order"
	ReferenceProduction ReferenceType = "production"
	ReferenceAdjustment ReferenceType = "adjustment"
)

func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceOrder, ReferenceProduction, ReferenceAdjustment:
		return true
	}
	return false
}

// LedgerEntry is an immutable stock movement.
type LedgerEntry struct {
	ID            int64         `json:"id"`
	ProductID     int64         `json:"product_id"`
	Direction     Direction     `json:"direction"`
	Quantity      int           `json:"quantity"`
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   *int64        `json:"reference_id,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
	AccountID     int64         `json:"account_id"`
	BalanceAfter  int           `json:"balance_after"`
	CreatedAt     time.Time     `json:"created_at"`
	ProductName   string        `json:"product_name,omitempty"`
	AccountName   string        `json:"account_name,omitempty"`
}

// SignedQuantity is +quantity for inbound entries and -quantity for outbound ones.
func (e *LedgerEntry) SignedQuantity() int {
	if e.Direction == DirectionOut {
		return -e.Quantity
	}
	return e.Quantity
}

// LedgerFilters are conjunctive; nil fields do not filter. PageSize 0 returns everything.
type LedgerFilters struct {
	Direction     *Direction
	ProductID     *int64
	DateFrom      *time.Time
	DateTo        *time.Time
	AccountID     *int64
	ReferenceType *ReferenceType
	ReferenceID   *int64
	Page          int
	PageSize      int
}

// ProductFilters narrows product listings.
type ProductFilters struct {
	Category *ProductCategory
	Search   *string
}

// Reconciliation compares the cached on-hand value with the ledger sum.
type Reconciliation struct {
	ProductID  int64 `json:"product_id"`
	OnHand     int   `json:"on_hand"`
	LedgerSum  int   `json:"ledger_sum"`
	EntryCount int   `json:"entry_count"`
	Consistent bool  `json:"consistent"`
}
