package models

import (
	"strings"
	"time"
)

// Role is the access role assigned to an account.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleWarehouseManager  Role = "warehouse_manager"
	RolePurchasingManager Role = "purchasing_manager"
	RoleSupplier          Role = "supplier"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleAdmin, RoleWarehouseManager, RolePurchasingManager, RoleSupplier}

// StaffRoles are the internal (non-supplier) roles.
var StaffRoles = []Role{RoleAdmin, RoleWarehouseManager, RolePurchasingManager}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleWarehouseManager, RolePurchasingManager, RoleSupplier:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Capability is a coarse permission derived from a role.
type Capability string

const (
	CapManageAccounts   Capability = "manage_accounts"
	CapViewInventory    Capability = "view_inventory"
	CapManageInventory  Capability = "manage_inventory"
	CapViewPurchasing   Capability = "view_purchasing"
	CapManagePurchasing Capability = "manage_purchasing"
	CapReceiveGoods     Capability = "receive_goods"
	CapViewOwnOrders    Capability = "view_own_orders"
	CapViewSensors      Capability = "view_sensors"
	CapRecordSensors    Capability = "record_sensors"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapManageAccounts, CapViewInventory, CapManageInventory, CapViewPurchasing,
		CapManagePurchasing, CapReceiveGoods, CapViewSensors, CapRecordSensors,
	},
	RoleWarehouseManager: {
		CapViewInventory, CapManageInventory, CapViewPurchasing, CapReceiveGoods,
		CapViewSensors, CapRecordSensors,
	},
	RolePurchasingManager: {
		CapViewInventory, CapViewPurchasing, CapManagePurchasing,
	},
	RoleSupplier: {
		CapViewOwnOrders,
	},
}

// Can reports whether the role carries the capability.
func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// RolesWith lists the roles carrying any of the capabilities, in AllRoles order.
func RolesWith(caps ...Capability) []Role {
	var roles []Role
	for _, r := range AllRoles {
		for _, c := range caps {
			if r.Can(c) {
				roles = append(roles, r)
				break
			}
		}
	}
	return roles
}

// Account is a login identity. Accounts are deactivated, never deleted, so that
// ledger and order history keep their attribution.
type Account struct {
	ID              int64            `json:"id"`
	Username        string           `json:"username"`
	PasswordHash    string           `json:"-"`
	DisplayName     string           `json:"display_name"`
	Email           *string          `json:"email,omitempty"`
	Role            Role             `json:"role"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	SupplierProfile *SupplierProfile `json:"supplier_profile,omitempty"`
}

// SupplierProfile holds the company details owned by a supplier account.
type SupplierProfile struct {
	ID            int64     `json:"id"`
	AccountID     int64     `json:"account_id"`
	CompanyName   string    `json:"company_name"`
	ContactPerson *string   `json:"contact_person,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Address       *string   `json:"address,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Credentials for login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is the resolved identity of the caller for one request.
type Session struct {
	AccountID int64     `json:"account_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasRole reports whether the session role is one of roles.
func (s *Session) HasRole(roles ...Role) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Can reports whether the session role carries the capability.
func (s *Session) Can(c Capability) bool {
	return s != nil && s.Role.Can(c)
}

// ActivityRecord is one audited action performed by an account.
type ActivityRecord struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFilters narrows account listings.
type AccountFilters struct {
	Role     *Role
	IsActive *bool
	Search   *string
	Page     int
	PageSize int
}
