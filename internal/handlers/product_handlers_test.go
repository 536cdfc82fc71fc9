package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
)

type mockCatalogService struct{ mock.Mock }

func (m *mockCatalogService) AddProduct(ctx context.Context, req services.CreateProductRequest, actorID int64) (*models.Product, error) {
	args := m.Called(ctx, req, actorID)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogService) UpdateProduct(ctx context.Context, id int64, req services.UpdateProductRequest, actorID int64) (*models.Product, error) {
	args := m.Called(ctx, id, req, actorID)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogService) ListByCategory(ctx context.Context, category models.ProductCategory) ([]models.Product, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *mockCatalogService) Search(ctx context.Context, query string) ([]models.Product, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *mockCatalogService) List(ctx context.Context, filters models.ProductFilters) ([]models.Product, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Product), args.Error(1)
}

func newProductRouter(catalog *mockCatalogService, ledger *mockLedgerService) *gin.Engine {
	r := newTestRouter(&models.Session{AccountID: 3, Role: models.RoleWarehouseManager})
	h := NewProductHandler(catalog, ledger)
	r.POST("/products", h.CreateProduct)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", h.UpdateProduct)
	r.GET("/products/:id/stock", h.GetOnHand)
	r.GET("/products/:id/reconcile", h.Reconcile)
	return r
}

func TestCreateProduct(t *testing.T) {
	catalog := new(mockCatalogService)
	r := newProductRouter(catalog, new(mockLedgerService))

	want := services.CreateProductRequest{
		Name:            "Oak Barrel",
		Category:        models.CategoryRawMaterial,
		Unit:            "pcs",
		MinStock:        5,
		InitialQuantity: 10,
	}
	catalog.On("AddProduct", mock.Anything, want, int64(3)).
		Return(&models.Product{ID: 1, Name: "Oak Barrel", Category: models.CategoryRawMaterial, Unit: "pcs", MinStock: 5, OnHand: 10}, nil)

	w := doJSON(r, http.MethodPost, "/products", gin.H{
		"name": "Oak Barrel", "category": "raw_material", "unit": "pcs", "min_stock": 5, "initial_quantity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 10, got.OnHand)
	catalog.AssertExpectations(t)
}

func TestCreateProductRejectsBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{"unknown category", gin.H{"name": "Rosé", "category": "wine", "unit": "btl"}},
		{"negative min stock", gin.H{"name": "Cork", "category": "packaging", "unit": "pcs", "min_stock": -1}},
		{"negative initial quantity", gin.H{"name": "Cork", "category": "packaging", "unit": "pcs", "initial_quantity": -4}},
		{"missing unit", gin.H{"name": "Cork", "category": "packaging"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(mockCatalogService)
			r := newProductRouter(catalog, new(mockLedgerService))

			w := doJSON(r, http.MethodPost, "/products", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_FAILED", decodeError(w).Error.Code)
			catalog.AssertNotCalled(t, "AddProduct", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestListProductsFilters(t *testing.T) {
	catalog := new(mockCatalogService)
	r := newProductRouter(catalog, new(mockLedgerService))

	cat := models.CategoryPackaging
	search := "cork"
	catalog.On("List", mock.Anything, models.ProductFilters{Category: &cat, Search: &search}).
		Return([]models.Product{{ID: 4, Name: "Natural Cork", Category: cat}}, nil)

	w := doJSON(r, http.MethodGet, "/products?category=packaging&search=cork", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Natural Cork", got[0].Name)

	w = doJSON(r, http.MethodGet, "/products?category=spirits", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	catalog.AssertNumberOfCalls(t, "List", 1)
}

func TestGetProductNotFound(t *testing.T) {
	catalog := new(mockCatalogService)
	r := newProductRouter(catalog, new(mockLedgerService))
	catalog.On("GetByID", mock.Anything, int64(99)).
		Return(nil, fmt.Errorf("%w: id 99", services.ErrProductNotFound))

	w := doJSON(r, http.MethodGet, "/products/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(w).Error.Code)

	w = doJSON(r, http.MethodGet, "/products/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProductNeverCarriesStock(t *testing.T) {
	catalog := new(mockCatalogService)
	r := newProductRouter(catalog, new(mockLedgerService))

	minStock := 8
	catalog.On("UpdateProduct", mock.Anything, int64(1), services.UpdateProductRequest{MinStock: &minStock}, int64(3)).
		Return(&models.Product{ID: 1, MinStock: 8, OnHand: 4}, nil)

	// on_hand is not part of the update payload and is dropped by binding
	w := doJSON(r, http.MethodPut, "/products/1", gin.H{"min_stock": 8, "on_hand": 500})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 4, got.OnHand)
	catalog.AssertExpectations(t)
}

func TestStockAndReconcile(t *testing.T) {
	ledger := new(mockLedgerService)
	r := newProductRouter(new(mockCatalogService), ledger)

	ledger.On("GetOnHand", mock.Anything, int64(7)).Return(42, nil)
	ledger.On("Reconcile", mock.Anything, int64(7)).
		Return(&models.Reconciliation{ProductID: 7, OnHand: 42, LedgerSum: 42, EntryCount: 6, Consistent: true}, nil)

	w := doJSON(r, http.MethodGet, "/products/7/stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stock struct {
		ProductID int64 `json:"product_id"`
		OnHand    int   `json:"on_hand"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.Equal(t, int64(7), stock.ProductID)
	assert.Equal(t, 42, stock.OnHand)

	w = doJSON(r, http.MethodGet, "/products/7/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec models.Reconciliation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.Consistent)
	assert.Equal(t, 6, rec.EntryCount)
}
