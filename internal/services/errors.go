package services

import (
	"errors"
	"fmt"
	"math"
)

// Error families. Specific errors wrap one of these so callers can map a whole
// family to a response with a single errors.Is check.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be positive", ErrValidation)
	ErrEmptyOrder        = fmt.Errorf("%w: order must contain at least one line item", ErrValidation)
	ErrInvalidLineItem   = fmt.Errorf("%w: invalid line item", ErrValidation)
	ErrQuantityTooLarge  = fmt.Errorf("%w: quantity must not exceed %d", ErrValidation, MaxQuantity)
	ErrStockLimit        = fmt.Errorf("%w: on-hand quantity would exceed %d", ErrValidation, MaxQuantity)
	ErrWeakPassword      = fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid order status transition", ErrConflict)
	ErrAlreadyReceived   = fmt.Errorf("%w: order has already been received", ErrConflict)
	ErrUsernameTaken     = fmt.Errorf("%w: username already exists", ErrConflict)

	ErrProductNotFound  = fmt.Errorf("%w: product", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("%w: purchase order", ErrNotFound)
	ErrSupplierNotFound = fmt.Errorf("%w: supplier", ErrNotFound)
	ErrAccountNotFound  = fmt.Errorf("%w: account", ErrNotFound)

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrForbidden          = errors.New("operation not permitted for this role")
)

// MaxQuantity is the largest quantity, stock level or threshold the INTEGER
// columns can hold.
const MaxQuantity = math.MaxInt32

// MinPasswordLength applies to created accounts and password changes.
const MinPasswordLength = 8

// Actions written to the account activity log.
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionPasswordChange = "password.change"
	ActionLedgerPost     = "ledger.post"
	ActionProductCreate  = "product.create"
	ActionProductUpdate  = "product.update"
	ActionOrderCreate    = "order.create"
	ActionOrderApprove   = "order.approve"
	ActionOrderReject    = "order.reject"
	ActionOrderReceive   = "order.receive"
	ActionAccountCreate  = "account.create"
	ActionAccountUpdate  = "account.update"
	ActionAccountRole    = "account.role"
	ActionAccountActive  = "account.active"
	ActionSupplierUpdate = "supplier.update"
	ActionSensorRecord   = "sensor.record"
)
