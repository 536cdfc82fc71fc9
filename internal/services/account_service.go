package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
	"winery_backend/pkg/utils"
)

// SupplierProfileRequest carries the company data of a supplier account.
type SupplierProfileRequest struct {
	CompanyName   string  `json:"company_name" binding:"required"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
}

// CreateAccountRequest DTO
type CreateAccountRequest struct {
	Username    string                  `json:"username" binding:"required"`
	Password    string                  `json:"password" binding:"required"`
	DisplayName string                  `json:"display_name" binding:"required"`
	Email       *string                 `json:"email" binding:"omitempty,email"`
	Role        models.Role             `json:"role" binding:"required,role"`
	Supplier    *SupplierProfileRequest `json:"supplier"`
}

// UpdateAccountRequest DTO
type UpdateAccountRequest struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email" binding:"omitempty,email"`
}

type AccountService interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest, actorID int64) (*models.Account, error)
	ListAccounts(ctx context.Context, filters models.AccountFilters) ([]models.Account, int, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	UpdateAccount(ctx context.Context, id int64, req UpdateAccountRequest, actorID int64) (*models.Account, error)
	ChangeRole(ctx context.Context, id int64, role models.Role, actorID int64) (*models.Account, error)
	SetActive(ctx context.Context, id int64, active bool, actorID int64) (*models.Account, error)
	UpdateSupplierProfile(ctx context.Context, accountID int64, req SupplierProfileRequest, actorID int64) (*models.SupplierProfile, error)
	ListSuppliers(ctx context.Context, activeOnly bool) ([]models.SupplierProfile, error)
}

type accountService struct {
	db           *sql.DB
	accountRepo  repositories.AccountRepository
	supplierRepo repositories.SupplierRepository
	activity     repositories.ActivityRepository
}

// NewAccountService creates a new instance of AccountService.
func NewAccountService(
	db *sql.DB,
	ar repositories.AccountRepository,
	sr repositories.SupplierRepository,
	act repositories.ActivityRepository,
) AccountService {
	return &accountService{db: db, accountRepo: ar, supplierRepo: sr, activity: act}
}

// CreateAccount creates the account and, for suppliers, its profile in one transaction.
func (s *accountService) CreateAccount(ctx context.Context, req CreateAccountRequest, actorID int64) (*models.Account, error) {
	username := strings.TrimSpace(req.Username)
	displayName := strings.TrimSpace(req.DisplayName)
	if username == "" || displayName == "" {
		return nil, fmt.Errorf("%w: username and display name are required", ErrValidation)
	}
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}
	if !utils.IsValidPasswordLength(req.Password, MinPasswordLength) {
		return nil, ErrWeakPassword
	}
	if req.Email != nil && !utils.IsValidEmail(*req.Email) {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if req.Role == models.RoleSupplier {
		if req.Supplier == nil || utils.IsEmpty(req.Supplier.CompanyName) {
			return nil, fmt.Errorf("%w: supplier accounts require a company name", ErrValidation)
		}
	} else if req.Supplier != nil {
		return nil, fmt.Errorf("%w: supplier profile is only allowed for supplier accounts", ErrValidation)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Email:        req.Email,
		Role:         req.Role,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.accountRepo.Create(ctx, tx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if req.Role == models.RoleSupplier {
		profile := &models.SupplierProfile{
			AccountID:     account.ID,
			CompanyName:   strings.TrimSpace(req.Supplier.CompanyName),
			ContactPerson: utils.NewNullString(deref(req.Supplier.ContactPerson)),
			Phone:         utils.NewNullString(deref(req.Supplier.Phone)),
			Address:       utils.NewNullString(deref(req.Supplier.Address)),
		}
		if _, err := s.supplierRepo.Create(ctx, tx, profile); err != nil {
			return nil, fmt.Errorf("failed to create supplier profile: %w", err)
		}
		account.SupplierProfile = profile
	}
	if err := s.activity.Record(ctx, tx, actorID, ActionAccountCreate); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account creation: %w", err)
	}

	log.Info().Int64("account_id", account.ID).Str("role", account.Role.String()).Int64("created_by", actorID).
		Msg("Account created")
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, filters models.AccountFilters) ([]models.Account, int, error) {
	if filters.Role != nil && !filters.Role.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown role %q", ErrValidation, *filters.Role)
	}
	accounts, total, err := s.accountRepo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, total, nil
}

func (s *accountService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
		}
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	if account.Role == models.RoleSupplier {
		profile, err := s.supplierRepo.GetByAccountID(ctx, id)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to get supplier profile: %w", err)
		}
		account.SupplierProfile = profile
	}
	return account, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, id int64, req UpdateAccountRequest, actorID int64) (*models.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, fmt.Errorf("%w: display name must not be empty", ErrValidation)
		}
		account.DisplayName = name
	}
	if req.Email != nil {
		account.Email = utils.NewNullString(*req.Email)
		if account.Email != nil && !utils.IsValidEmail(*account.Email) {
			return nil, fmt.Errorf("%w: invalid email", ErrValidation)
		}
	}
	err = s.inTx(ctx, actorID, ActionAccountUpdate, func(tx *sql.Tx) error {
		return s.accountRepo.Update(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ChangeRole moves an account between staff roles. The supplier role is fixed
// at creation because it owns a supplier profile and purchase orders.
func (s *accountService) ChangeRole(ctx context.Context, id int64, role models.Role, actorID int64) (*models.Account, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Role == role {
		return account, nil
	}
	if account.Role == models.RoleSupplier || role == models.RoleSupplier {
		return nil, fmt.Errorf("%w: the supplier role cannot be assigned or removed", ErrValidation)
	}
	if id == actorID {
		return nil, fmt.Errorf("%w: admins cannot change their own role", ErrValidation)
	}
	err = s.inTx(ctx, actorID, ActionAccountRole, func(tx *sql.Tx) error {
		return s.accountRepo.UpdateRole(ctx, tx, id, role)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("account_id", id).Str("from", account.Role.String()).Str("to", role.String()).
		Int64("changed_by", actorID).Msg("Account role changed")
	account.Role = role
	return account, nil
}

// SetActive activates or deactivates an account. Deactivated accounts keep
// their history and cannot log in.
func (s *accountService) SetActive(ctx context.Context, id int64, active bool, actorID int64) (*models.Account, error) {
	if id == actorID && !active {
		return nil, fmt.Errorf("%w: admins cannot deactivate themselves", ErrValidation)
	}
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.inTx(ctx, actorID, ActionAccountActive, func(tx *sql.Tx) error {
		return s.accountRepo.SetActive(ctx, tx, id, active)
	})
	if err != nil {
		return nil, err
	}
	account.IsActive = active
	if account.SupplierProfile != nil {
		account.SupplierProfile.IsActive = active
	}
	log.Info().Int64("account_id", id).Bool("active", active).Int64("changed_by", actorID).Msg("Account activity flag changed")
	return account, nil
}

func (s *accountService) UpdateSupplierProfile(ctx context.Context, accountID int64, req SupplierProfileRequest, actorID int64) (*models.SupplierProfile, error) {
	profile, err := s.supplierRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %d", ErrSupplierNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to get supplier profile: %w", err)
	}
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}
	profile.CompanyName = name
	profile.ContactPerson = utils.NewNullString(deref(req.ContactPerson))
	profile.Phone = utils.NewNullString(deref(req.Phone))
	profile.Address = utils.NewNullString(deref(req.Address))

	err = s.inTx(ctx, actorID, ActionSupplierUpdate, func(tx *sql.Tx) error {
		return s.supplierRepo.Update(ctx, tx, profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *accountService) ListSuppliers(ctx context.Context, activeOnly bool) ([]models.SupplierProfile, error) {
	suppliers, err := s.supplierRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

// inTx runs a single write together with its activity record.
func (s *accountService) inTx(ctx context.Context, actorID int64, action string, write func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := write(tx); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to apply %s: %w", action, err)
	}
	if err := s.activity.Record(ctx, tx, actorID, action); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", action, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
