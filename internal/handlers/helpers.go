package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/middleware"
	"winery_backend/internal/models"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// respondServiceError maps a service error to the API error envelope. Specific
// errors are checked before their families.
func respondServiceError(c *gin.Context, err error, op string, fallbackMessage string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrInsufficientStock):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInsufficientStock, "Insufficient stock.", err.Error()))
	case errors.Is(err, services.ErrAlreadyReceived):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeAlreadyReceived, "Order has already been received.", err.Error()))
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidTransition, "Order status transition not allowed.", err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid username or password.", ""))
	case errors.Is(err, services.ErrAccountInactive):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeAccountInactive, "Account is inactive.", ""))
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Operation not permitted.", err.Error()))
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed.", err.Error()))
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Resource not found.", err.Error()))
	case errors.Is(err, services.ErrConflict):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Request conflicts with current state.", err.Error()))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, fallbackMessage, "Internal error"))
	}
}

func bindJSON(c *gin.Context, req interface{}, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogError(err, op+": Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// parsePagination reads page and page_size, defaulting to page 1.
func parsePagination(c *gin.Context) (int, int, bool) {
	page, pageSize := 1, defaultPageSize
	if pageStr := c.Query("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page format.", "page must be a positive integer"))
			return 0, 0, false
		}
		page = p
	}
	if sizeStr := c.Query("page_size"); sizeStr != "" {
		s, err := strconv.Atoi(sizeStr)
		if err != nil || s <= 0 || s > maxPageSize {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page_size format.", "page_size must be between 1 and "+strconv.Itoa(maxPageSize)))
			return 0, 0, false
		}
		pageSize = s
	}
	return page, pageSize, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", err.Error()))
		return 0, false
	}
	return n, true
}

func queryInt64(c *gin.Context, name string) (*int64, bool) {
	v, err := utils.OptionalInt64(c.Query(name))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", err.Error()))
		return nil, false
	}
	return v, true
}

func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", err.Error()))
		return nil, false
	}
	return &b, true
}

// queryDateRange reads date_from and date_to (YYYY-MM-DD, both inclusive) as [from, to+1d).
func queryDateRange(c *gin.Context, fromName, toName string) (from, to *time.Time, ok bool) {
	from, err := utils.OptionalDate(c.Query(fromName), false)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+fromName+" format. Use YYYY-MM-DD.", err.Error()))
		return nil, nil, false
	}
	to, err = utils.OptionalDate(c.Query(toName), true)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+toName+" format. Use YYYY-MM-DD.", err.Error()))
		return nil, nil, false
	}
	return from, to, true
}

func currentSession(c *gin.Context) (*models.Session, bool) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "missing session"))
		return nil, false
	}
	return session, true
}

func paginated(c *gin.Context, data interface{}, total, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"data":      data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
