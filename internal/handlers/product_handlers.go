package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

// ProductHandler serves the product catalog.
type ProductHandler struct {
	catalogService services.CatalogService
	ledgerService  services.LedgerService
}

func NewProductHandler(cs services.CatalogService, ls services.LedgerService) *ProductHandler {
	return &ProductHandler{catalogService: cs, ledgerService: ls}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.CreateProductRequest
	if !bindJSON(c, &req, "CreateProduct") {
		return
	}
	product, err := h.catalogService.AddProduct(c.Request.Context(), req, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "CreateProduct: Error from catalogService.AddProduct", "Failed to create product.")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// ListProducts supports ?category= and ?search= filters.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var filters models.ProductFilters
	if category := c.Query("category"); category != "" {
		cat := models.ProductCategory(category)
		if !cat.IsValid() {
			utils.RespondValidationFailed(c, "unknown category "+category)
			return
		}
		filters.Category = &cat
	}
	filters.Search = utils.NewNullString(c.Query("search"))

	products, err := h.catalogService.List(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "ListProducts: Error from catalogService.List", "Failed to fetch products.")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.catalogService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "GetProduct: product "+c.Param("id"), "Failed to fetch product.")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateProductRequest
	if !bindJSON(c, &req, "UpdateProduct") {
		return
	}
	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, req, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "UpdateProduct: product "+c.Param("id"), "Failed to update product.")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetOnHand(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	onHand, err := h.ledgerService.GetOnHand(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "GetOnHand: product "+c.Param("id"), "Failed to fetch stock level.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "on_hand": onHand})
}

func (h *ProductHandler) Reconcile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.ledgerService.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Reconcile: product "+c.Param("id"), "Failed to reconcile product.")
		return
	}
	c.JSON(http.StatusOK, rec)
}
