package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"winery_backend/internal/models"
)

// SupplierRepository defines the interface for supplier profile database operations.
// IsActive on a profile mirrors the owning account.
type SupplierRepository interface {
	Create(ctx context.Context, executor SQLExecutor, profile *models.SupplierProfile) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SupplierProfile, error)
	GetByAccountID(ctx context.Context, accountID int64) (*models.SupplierProfile, error)
	Update(ctx context.Context, executor SQLExecutor, profile *models.SupplierProfile) error
	List(ctx context.Context, activeOnly bool) ([]models.SupplierProfile, error)
}

type supplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository creates a new instance of SupplierRepository.
func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

const supplierSelect = `SELECT sp.id, sp.account_id, sp.company_name, sp.contact_person, sp.phone, sp.address,
	       a.is_active, sp.created_at, sp.updated_at
	  FROM supplier_profiles sp
	  JOIN accounts a ON a.id = sp.account_id`

func scanSupplier(s scanner, p *models.SupplierProfile) error {
	return s.Scan(&p.ID, &p.AccountID, &p.CompanyName, &p.ContactPerson, &p.Phone, &p.Address,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

func (r *supplierRepository) Create(ctx context.Context, executor SQLExecutor, profile *models.SupplierProfile) (int64, error) {
	executor = executorOr(executor, r.db)
	query := `INSERT INTO supplier_profiles (account_id, company_name, contact_person, phone, address, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		profile.AccountID, profile.CompanyName, profile.ContactPerson, profile.Phone, profile.Address, now,
	).Scan(&profile.ID)
	if err != nil {
		return 0, wrapWriteError("creating supplier profile", err)
	}
	profile.IsActive = true
	profile.CreatedAt = now
	profile.UpdatedAt = now
	return profile.ID, nil
}

func (r *supplierRepository) GetByID(ctx context.Context, id int64) (*models.SupplierProfile, error) {
	profile := &models.SupplierProfile{}
	if err := scanSupplier(r.db.QueryRowContext(ctx, supplierSelect+` WHERE sp.id = $1`, id), profile); err != nil {
		return nil, wrapReadError("getting supplier by id", err)
	}
	return profile, nil
}

func (r *supplierRepository) GetByAccountID(ctx context.Context, accountID int64) (*models.SupplierProfile, error) {
	profile := &models.SupplierProfile{}
	if err := scanSupplier(r.db.QueryRowContext(ctx, supplierSelect+` WHERE sp.account_id = $1`, accountID), profile); err != nil {
		return nil, wrapReadError("getting supplier by account", err)
	}
	return profile, nil
}

func (r *supplierRepository) Update(ctx context.Context, executor SQLExecutor, profile *models.SupplierProfile) error {
	executor = executorOr(executor, r.db)
	query := `UPDATE supplier_profiles
	          SET company_name = $1, contact_person = $2, phone = $3, address = $4, updated_at = $5
	          WHERE id = $6`
	profile.UpdatedAt = time.Now()
	return execOne(ctx, executor, "updating supplier profile", query,
		profile.CompanyName, profile.ContactPerson, profile.Phone, profile.Address, profile.UpdatedAt, profile.ID)
}

func (r *supplierRepository) List(ctx context.Context, activeOnly bool) ([]models.SupplierProfile, error) {
	query := supplierSelect
	if activeOnly {
		query += ` WHERE a.is_active`
	}
	query += ` ORDER BY sp.company_name ASC, sp.id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing suppliers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	suppliers := []models.SupplierProfile{}
	for rows.Next() {
		var p models.SupplierProfile
		if err := scanSupplier(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning supplier: %v", ErrDatabaseError, err)
		}
		suppliers = append(suppliers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating suppliers: %v", ErrDatabaseError, err)
	}
	return suppliers, nil
}
