package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
	"github.com/titulapp/capstone-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, areaID, userID string) (*models.StateSummary, error)
}

// DashboardHandler serves aggregated deliverable state summaries.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Deliverable state summary for a dashboard
// @Tags Dashboard
// @Produce json
// @Param area query string false "Area ID; defaults to caller's scope"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), strings.TrimSpace(c.Query("area")), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
