package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

type SensorHandler struct {
	sensorService services.SensorService
}

func NewSensorHandler(ss services.SensorService) *SensorHandler {
	return &SensorHandler{sensorService: ss}
}

func (h *SensorHandler) RecordReading(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.RecordReadingRequest
	if !bindJSON(c, &req, "RecordReading") {
		return
	}
	reading, err := h.sensorService.RecordReading(c.Request.Context(), req, session.AccountID)
	if err != nil {
		respondServiceError(c, err, "RecordReading: Error from sensorService.RecordReading", "Failed to record reading.")
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// ListReadings supports ?label=, ?from=, ?to= (inclusive dates) and ?limit=.
func (h *SensorHandler) ListReadings(c *gin.Context) {
	var filters models.SensorFilters
	filters.Label = utils.NewNullString(c.Query("label"))
	var ok bool
	if filters.From, filters.To, ok = queryDateRange(c, "from", "to"); !ok {
		return
	}
	if filters.Limit, ok = queryInt(c, "limit", 0); !ok {
		return
	}
	readings, err := h.sensorService.ListReadings(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "ListReadings: Error from sensorService.ListReadings", "Failed to fetch readings.")
		return
	}
	c.JSON(http.StatusOK, readings)
}

func (h *SensorHandler) Summary(c *gin.Context) {
	from, to, ok := queryDateRange(c, "from", "to")
	if !ok {
		return
	}
	summary, err := h.sensorService.Summary(c.Request.Context(), c.Param("label"), from, to)
	if err != nil {
		respondServiceError(c, err, "Summary: sensor "+c.Param("label"), "Failed to summarize readings.")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *SensorHandler) Labels(c *gin.Context) {
	labels, err := h.sensorService.Labels(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Labels: Error from sensorService.Labels", "Failed to fetch sensor labels.")
		return
	}
	c.JSON(http.StatusOK, labels)
}
