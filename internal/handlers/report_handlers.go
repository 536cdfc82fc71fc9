package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

// ReportHandler serves read-only aggregations and the dashboard.
type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(rs services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	summary, err := h.reportService.Dashboard(c.Request.Context(), session)
	if err != nil {
		respondServiceError(c, err, "Dashboard: role "+session.Role.String(), "Failed to build dashboard.")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) LowStock(c *gin.Context) {
	items, err := h.reportService.LowStock(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "LowStock: Error from reportService.LowStock", "Failed to fetch low stock report.")
		return
	}
	c.JSON(http.StatusOK, items)
}

// TopMoving accepts ?limit= (default 10) and an optional ?since=YYYY-MM-DD.
func (h *ReportHandler) TopMoving(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}
	since, err := utils.OptionalDate(c.Query("since"), false)
	if err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	items, err := h.reportService.TopMoving(c.Request.Context(), limit, since)
	if err != nil {
		respondServiceError(c, err, "TopMoving: Error from reportService.TopMoving", "Failed to fetch top moving products.")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ReportHandler) CategoryTotals(c *gin.Context) {
	totals, err := h.reportService.CategoryTotals(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "CategoryTotals: Error from reportService.CategoryTotals", "Failed to fetch category totals.")
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (h *ReportHandler) LedgerActivity(c *gin.Context) {
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}
	activity, err := h.reportService.LedgerActivity(c.Request.Context(), days)
	if err != nil {
		respondServiceError(c, err, "LedgerActivity: Error from reportService.LedgerActivity", "Failed to fetch ledger activity.")
		return
	}
	c.JSON(http.StatusOK, activity)
}

func (h *ReportHandler) OrdersByMonth(c *gin.Context) {
	months, ok := queryInt(c, "months", services.DefaultMonthsBack)
	if !ok {
		return
	}
	counts, err := h.reportService.OrdersCountByMonth(c.Request.Context(), months)
	if err != nil {
		respondServiceError(c, err, "OrdersByMonth: Error from reportService.OrdersCountByMonth", "Failed to fetch order counts.")
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Spending takes ?from= and ?to= as inclusive dates; both default to the current month.
func (h *ReportHandler) Spending(c *gin.Context) {
	from, to, ok := queryDateRange(c, "from", "to")
	if !ok {
		return
	}
	now := time.Now().UTC()
	if from == nil {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		from = &start
	}
	if to == nil {
		end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		to = &end
	}
	summary, err := h.reportService.Spending(c.Request.Context(), *from, *to)
	if err != nil {
		respondServiceError(c, err, "Spending: Error from reportService.Spending", "Failed to compute spending.")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) MostActiveUsers(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}
	since, err := utils.OptionalDate(c.Query("since"), false)
	if err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	users, err := h.reportService.MostActiveUsers(c.Request.Context(), limit, since)
	if err != nil {
		respondServiceError(c, err, "MostActiveUsers: Error from reportService.MostActiveUsers", "Failed to fetch active users.")
		return
	}
	c.JSON(http.StatusOK, users)
}
