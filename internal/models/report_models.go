package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockItem is a product at or below its minimum threshold.
type LowStockItem struct {
	Product
	Deficit int `json:"deficit"`
}

// TopMovingItem is a product ranked by ledger entry count.
type TopMovingItem struct {
	ProductID        int64           `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Category         ProductCategory `json:"category"`
	TransactionCount int             `json:"transaction_count"`
	QuantityIn       int             `json:"quantity_in"`
	QuantityOut      int             `json:"quantity_out"`
}

// CategoryTotal aggregates products per category.
type CategoryTotal struct {
	Category     ProductCategory `json:"category"`
	ProductCount int             `json:"product_count"`
	TotalOnHand  int             `json:"total_on_hand"`
	LowStock     int             `json:"low_stock_count"`
}

// MonthlyCount is a month bucket (YYYY-MM) with a count.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// DailyMovement is one day of ledger activity.
type DailyMovement struct {
	Day         string `json:"day"`
	EntriesIn   int    `json:"entries_in"`
	EntriesOut  int    `json:"entries_out"`
	QuantityIn  int    `json:"quantity_in"`
	QuantityOut int    `json:"quantity_out"`
}

// ActiveUser is an account ranked by activity record count.
type ActiveUser struct {
	AccountID   int64  `json:"account_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Actions     int    `json:"actions"`
}

// SpendingSummary is the committed purchase spend for a period.
type SpendingSummary struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Total      decimal.Decimal `json:"total"`
	OrderCount int             `json:"order_count"`
}

// DashboardSummary is the role-parameterized landing page data. Sections the
// role cannot see are left nil.
type DashboardSummary struct {
	Role       Role               `json:"role"`
	Inventory  *InventorySection  `json:"inventory,omitempty"`
	Purchasing *PurchasingSection `json:"purchasing,omitempty"`
	Accounts   *AccountsSection   `json:"accounts,omitempty"`
	OwnOrders  *SupplierSection   `json:"own_orders,omitempty"`
}

type InventorySection struct {
	ProductCount  int             `json:"product_count"`
	LowStockCount int             `json:"low_stock_count"`
	EntriesToday  int             `json:"entries_today"`
	LowStock      []LowStockItem  `json:"low_stock"`
	TopMoving     []TopMovingItem `json:"top_moving"`
}

type PurchasingSection struct {
	PendingOrders     int             `json:"pending_orders"`
	ApprovedOrders    int             `json:"approved_orders"`
	SpendingThisMonth decimal.Decimal `json:"spending_this_month"`
	OrdersByMonth     []MonthlyCount  `json:"orders_by_month"`
}

type AccountsSection struct {
	ActiveAccounts  int          `json:"active_accounts"`
	MostActiveUsers []ActiveUser `json:"most_active_users"`
}

type SupplierSection struct {
	ByStatus map[OrderStatus]int `json:"by_status"`
}
