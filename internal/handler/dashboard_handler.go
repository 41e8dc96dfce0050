package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, accountID string, refresh bool) (*models.DashboardSummary, bool, error)
}

// DashboardHandler serves the account landing page.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Account dashboard
// @Description Totals of active students, classes, active subjects and grades, with the latest students and grades.
// @Tags Dashboard
// @Produce json
// @Param refresh query bool false "Bypass the cached copy"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	refresh := false
	if v := queryBool(c, "refresh"); v != nil {
		refresh = *v
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), claims.AccountID, refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	})
}
