package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

// OrderHandler holds the order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// CreateOrder handles the creation of a new purchase order with its line items.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.CreateOrderRequest
	if !bindJSON(c, &req, "CreateOrder") {
		return
	}
	order, err := h.orderService.CreateOrder(c.Request.Context(), req, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "CreateOrder: Error from orderService.CreateOrder", "Failed to create order.")
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders lists orders; supplier sessions only ever see their own.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var filters models.OrderFilters
	if status := c.Query("status"); status != "" {
		st := models.OrderStatus(status)
		if !st.IsValid() {
			utils.RespondValidationFailed(c, "unknown status "+status)
			return
		}
		filters.Status = &st
	}
	if filters.SupplierID, ok = queryInt64(c, "supplier_id"); !ok {
		return
	}
	if filters.Page, filters.PageSize, ok = parsePagination(c); !ok {
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), session, filters)
	if err != nil {
		respondServiceError(c, err, "GetOrders: Error from orderService.ListOrders", "Failed to fetch orders.")
		return
	}
	paginated(c, orders, total, filters.Page, filters.PageSize)
}

// GetOrderByID handles fetching a single order by ID with its line items.
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), session, id)
	if err != nil {
		respondServiceError(c, err, "GetOrderByID: order "+c.Param("id"), "Failed to fetch order.")
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus approves or rejects a pending order.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateOrderStatusRequest
	if !bindJSON(c, &req, "UpdateOrderStatus") {
		return
	}
	order, err := h.orderService.SetStatus(c.Request.Context(), id, req.Status, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "UpdateOrderStatus: order "+c.Param("id"), "Failed to update order status.")
		return
	}
	c.JSON(http.StatusOK, order)
}

// ReceiveOrder books an approved order into stock.
func (h *OrderHandler) ReceiveOrder(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.orderService.Receive(c.Request.Context(), id, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "ReceiveOrder: order "+c.Param("id"), "Failed to receive order.")
		return
	}
	c.JSON(http.StatusOK, result)
}
