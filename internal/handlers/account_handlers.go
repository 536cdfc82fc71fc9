package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

// AccountHandler serves the admin-only account management endpoints.
type AccountHandler struct {
	accountService services.AccountService
}

func NewAccountHandler(as services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: as}
}

type changeRoleRequest struct {
	Role models.Role `json:"role" binding:"required,role"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.CreateAccountRequest
	if !bindJSON(c, &req, "CreateAccount") {
		return
	}
	account, err := h.accountService.CreateAccount(c.Request.Context(), req, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "CreateAccount: Error from accountService.CreateAccount", "Failed to create account.")
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var filters models.AccountFilters
	if roleStr := c.Query("role"); roleStr != "" {
		role, valid := models.ParseRole(roleStr)
		if !valid {
			utils.RespondValidationFailed(c, "unknown role "+roleStr)
			return
		}
		filters.Role = &role
	}
	active, ok := queryBool(c, "is_active")
	if !ok {
		return
	}
	filters.IsActive = active
	filters.Search = utils.NewNullString(c.Query("search"))

	page, pageSize, ok := parsePagination(c)
	if !ok {
		return
	}
	filters.Page, filters.PageSize = page, pageSize

	accounts, total, err := h.accountService.ListAccounts(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "ListAccounts: Error from accountService.ListAccounts", "Failed to fetch accounts.")
		return
	}
	paginated(c, accounts, total, page, pageSize)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	account, err := h.accountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "GetAccount: account "+c.Param("id"), "Failed to fetch account.")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateAccountRequest
	if !bindJSON(c, &req, "UpdateAccount") {
		return
	}
	account, err := h.accountService.UpdateAccount(c.Request.Context(), id, req, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "UpdateAccount: account "+c.Param("id"), "Failed to update account.")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) ChangeRole(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req changeRoleRequest
	if !bindJSON(c, &req, "ChangeRole") {
		return
	}
	account, err := h.accountService.ChangeRole(c.Request.Context(), id, req.Role, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "ChangeRole: account "+c.Param("id"), "Failed to change role.")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) SetActive(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if !bindJSON(c, &req, "SetActive") {
		return
	}
	account, err := h.accountService.SetActive(c.Request.Context(), id, *req.IsActive, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "SetActive: account "+c.Param("id"), "Failed to update account status.")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) UpdateSupplierProfile(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.SupplierProfileRequest
	if !bindJSON(c, &req, "UpdateSupplierProfile") {
		return
	}
	profile, err := h.accountService.UpdateSupplierProfile(c.Request.Context(), id, req, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "UpdateSupplierProfile: account "+c.Param("id"), "Failed to update supplier profile.")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListSuppliers returns active suppliers unless include_inactive=true.
func (h *AccountHandler) ListSuppliers(c *gin.Context) {
	activeOnly := !strings.EqualFold(c.Query("include_inactive"), "true")
	suppliers, err := h.accountService.ListSuppliers(c.Request.Context(), activeOnly)
	if err != nil {
		respondServiceError(c, err, "ListSuppliers: Error from accountService.ListSuppliers", "Failed to fetch suppliers.")
		return
	}
	c.JSON(http.StatusOK, suppliers)
}
