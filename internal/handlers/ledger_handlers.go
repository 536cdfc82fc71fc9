package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

// LedgerHandler exposes stock postings and the transaction history.
type LedgerHandler struct {
	ledgerService services.LedgerService
}

func NewLedgerHandler(ls services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ls}
}

// PostEntry records a manual stock movement for the calling account.
func (h *LedgerHandler) PostEntry(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.PostEntryRequest
	if !bindJSON(c, &req, "PostEntry") {
		return
	}
	req.AccountID = session.AccountID

	entry, err := h.ledgerService.PostEntry(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "PostEntry: Error from ledgerService.PostEntry", "Failed to post ledger entry.")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListEntries returns the filtered transaction history, newest first.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	var filters models.LedgerFilters
	if d := c.Query("direction"); d != "" {
		dir := models.Direction(d)
		if !dir.IsValid() {
			utils.RespondValidationFailed(c, "direction must be in or out")
			return
		}
		filters.Direction = &dir
	}
	if rt := c.Query("reference_type"); rt != "" {
		ref := models.ReferenceType(rt)
		if !ref.IsValid() {
			utils.RespondValidationFailed(c, "unknown reference_type "+rt)
			return
		}
		filters.ReferenceType = &ref
	}
	var ok bool
	if filters.ProductID, ok = queryInt64(c, "product_id"); !ok {
		return
	}
	if filters.AccountID, ok = queryInt64(c, "account_id"); !ok {
		return
	}
	if filters.ReferenceID, ok = queryInt64(c, "reference_id"); !ok {
		return
	}
	if filters.DateFrom, filters.DateTo, ok = queryDateRange(c, "date_from", "date_to"); !ok {
		return
	}
	if filters.Page, filters.PageSize, ok = parsePagination(c); !ok {
		return
	}

	entries, total, err := h.ledgerService.FilteredHistory(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "ListEntries: Error from ledgerService.FilteredHistory", "Failed to fetch ledger entries.")
		return
	}
	paginated(c, entries, total, filters.Page, filters.PageSize)
}
