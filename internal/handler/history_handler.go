package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/internal/service"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
	"github.com/titulapp/capstone-api/pkg/response"
)

type historyReader interface {
	Query(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error)
}

type historyExporter interface {
	Enabled() bool
	HistoryExport(ctx context.Context, entityID string, format service.ExportFormat) ([]byte, string, string, error)
}

// HistoryHandler exposes the audit trail of deliverables.
type HistoryHandler struct {
	history historyReader
	exports historyExporter
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(history historyReader, exports historyExporter) *HistoryHandler {
	return &HistoryHandler{history: history, exports: exports}
}

// List godoc
// @Summary Query a deliverable's audit trail
// @Tags History
// @Produce json
// @Param id path string true "Deliverable ID"
// @Param action query string false "Comma separated actions"
// @Param actor query string false "Actor ID"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	filter := models.HistoryFilter{
		EntityType: service.EntityDeliverable,
		EntityID:   c.Param("id"),
		ActorID:    strings.TrimSpace(c.Query("actor")),
	}
	if rawActions := c.Query("action"); rawActions != "" {
		parts := strings.Split(rawActions, ",")
		actions := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			actions = append(actions, part)
		}
		filter.Actions = actions
	}
	for _, bound := range []struct {
		raw  string
		dest **time.Time
	}{
		{c.Query("from"), &filter.From},
		{c.Query("to"), &filter.To},
	} {
		if bound.raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, bound.raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date bounds must be RFC3339"))
			return
		}
		*bound.dest = &ts
	}
	if rawLimit := c.Query("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	entries, err := h.history.Query(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Download a deliverable's audit trail
// @Tags History
// @Produce text/csv,application/pdf
// @Param id path string true "Deliverable ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /deliverables/{id}/history/export [get]
func (h *HistoryHandler) Export(c *gin.Context) {
	if h.exports == nil || !h.exports.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	payload, contentType, fileName, err := h.exports.HistoryExport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, contentType, payload)
}
