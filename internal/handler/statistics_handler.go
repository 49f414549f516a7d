package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/finscale/finscale-api/internal/middleware"
	"github.com/finscale/finscale-api/internal/service"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatisticsHandler serves earnings and hour summaries
type StatisticsHandler struct {
	statsService *service.StatisticsService
	loc          *time.Location
}

func NewStatisticsHandler(statsService *service.StatisticsService, loc *time.Location) *StatisticsHandler {
	return &StatisticsHandler{statsService: statsService, loc: loc}
}

// Mine godoc
// @Summary Statistics of the current user's shifts
// @Tags Statistics
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} model.ShiftStats
// @Router /api/v1/statistics [get]
func (h *StatisticsHandler) Mine(c *gin.Context) {
	from, to, err := dateRange(c.Query("from"), c.Query("to"), h.loc)
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.statsService.Mine(c.Request.Context(), middleware.CurrentUserID(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Overview godoc
// @Summary Platform-wide statistics
// @Tags Statistics
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} model.ShiftStats
// @Failure 403 {object} model.ErrorResponse
// @Router /api/v1/statistics/overview [get]
func (h *StatisticsHandler) Overview(c *gin.Context) {
	from, to, err := dateRange(c.Query("from"), c.Query("to"), h.loc)
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.statsService.Overview(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Export godoc
// @Summary Download the current user's statement as XLSX
// @Tags Statistics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param from query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /api/v1/statistics/export [get]
func (h *StatisticsHandler) Export(c *gin.Context) {
	from, to, err := dateRange(c.Query("from"), c.Query("to"), h.loc)
	if err != nil {
		respondError(c, err)
		return
	}

	// Render fully before writing so failures can still answer with JSON
	var buf bytes.Buffer
	if err := h.statsService.Export(c.Request.Context(), middleware.CurrentUserID(c), from, to, &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("plantoes-%s.xlsx", time.Now().In(h.loc).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
