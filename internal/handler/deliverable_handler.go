package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/titulapp/capstone-api/internal/dto"
	"github.com/titulapp/capstone-api/internal/models"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
	"github.com/titulapp/capstone-api/pkg/response"
)

type workflowEngine interface {
	Submit(ctx context.Context, deliverableID, actorID string) (*models.Deliverable, error)
	BeginReview(ctx context.Context, deliverableID, actorID string) (*models.Deliverable, error)
	Decide(ctx context.Context, deliverableID, actorID string, decision models.Decision, observations string) (*models.Deliverable, error)
	Assign(ctx context.Context, deliverableID, userID, actorID string) (*models.Deliverable, error)
	AddComment(ctx context.Context, deliverableID, actorID, text string, commentType models.CommentType) (*models.Comment, error)
}

type deliverableCRUD interface {
	Create(ctx context.Context, actorID string, req dto.CreateDeliverableRequest) (*models.Deliverable, error)
	Get(ctx context.Context, deliverableID, actorID string) (*models.Deliverable, error)
	List(ctx context.Context, filter models.DeliverableFilter) ([]models.Deliverable, error)
	Attachments(ctx context.Context, deliverableID string) ([]models.Attachment, error)
}

type commentEditor interface {
	List(ctx context.Context, deliverableID string, filter models.CommentFilter) ([]models.Comment, error)
	Edit(ctx context.Context, commentID, actorID, body string) (*models.Comment, error)
	Delete(ctx context.Context, commentID, actorID string) error
}

// DeliverableHandler exposes the deliverable catalog and review workflow.
type DeliverableHandler struct {
	workflow     workflowEngine
	deliverables deliverableCRUD
	comments     commentEditor
}

// NewDeliverableHandler constructs the handler.
func NewDeliverableHandler(workflow workflowEngine, deliverables deliverableCRUD, comments commentEditor) *DeliverableHandler {
	return &DeliverableHandler{workflow: workflow, deliverables: deliverables, comments: comments}
}

// Create godoc
// @Summary Create a deliverable
// @Tags Deliverables
// @Accept json
// @Produce json
// @Param payload body dto.CreateDeliverableRequest true "Deliverable payload"
// @Success 201 {object} response.Envelope
// @Router /deliverables [post]
func (h *DeliverableHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deliverable payload"))
		return
	}
	d, err := h.deliverables.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, d)
}

// List godoc
// @Summary List deliverables
// @Tags Deliverables
// @Produce json
// @Param project query string false "Project ID"
// @Param phase query string false "Phase ID"
// @Param area query string false "Area ID"
// @Param assignee query string false "Assignee ID"
// @Param state query string false "Comma separated states"
// @Success 200 {object} response.Envelope
// @Router /deliverables [get]
func (h *DeliverableHandler) List(c *gin.Context) {
	filter := models.DeliverableFilter{
		ProjectID:  strings.TrimSpace(c.Query("project")),
		PhaseID:    strings.TrimSpace(c.Query("phase")),
		AreaID:     strings.TrimSpace(c.Query("area")),
		AssigneeID: strings.TrimSpace(c.Query("assignee")),
	}
	if rawState := c.Query("state"); rawState != "" {
		parts := strings.Split(rawState, ",")
		states := make([]models.DeliverableState, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			states = append(states, models.DeliverableState(part))
		}
		filter.States = states
	}
	rows, err := h.deliverables.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Get godoc
// @Summary Get deliverable detail
// @Tags Deliverables
// @Produce json
// @Param id path string true "Deliverable ID"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id} [get]
func (h *DeliverableHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	d, err := h.deliverables.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, d, nil)
}

// Attachments godoc
// @Summary List deliverable attachments
// @Tags Deliverables
// @Produce json
// @Param id path string true "Deliverable ID"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/attachments [get]
func (h *DeliverableHandler) Attachments(c *gin.Context) {
	attachments, err := h.deliverables.Attachments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attachments, nil)
}

// Submit godoc
// @Summary Submit a deliverable for review
// @Tags Workflow
// @Produce json
// @Param id path string true "Deliverable ID"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/submit [post]
func (h *DeliverableHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	d, err := h.workflow.Submit(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, d, nil)
}

// BeginReview godoc
// @Summary Start reviewing a submitted deliverable
// @Tags Workflow
// @Produce json
// @Param id path string true "Deliverable ID"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/review [post]
func (h *DeliverableHandler) BeginReview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	d, err := h.workflow.BeginReview(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, d, nil)
}

// Decide godoc
// @Summary Record a review decision
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Deliverable ID"
// @Param payload body dto.DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/decision [post]
func (h *DeliverableHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	d, err := h.workflow.Decide(c.Request.Context(), c.Param("id"), claims.UserID, req.Decision, req.Observations)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, d, nil)
}

// Assign godoc
// @Summary Assign a deliverable
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Deliverable ID"
// @Param payload body dto.AssignRequest true "Assignee payload"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/assignee [put]
func (h *DeliverableHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignee payload"))
		return
	}
	d, err := h.workflow.Assign(c.Request.Context(), c.Param("id"), req.UserID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, d, nil)
}

// AddComment godoc
// @Summary Add a comment to a deliverable
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Deliverable ID"
// @Param payload body dto.CommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /deliverables/{id}/comments [post]
func (h *DeliverableHandler) AddComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	comment, err := h.workflow.AddComment(c.Request.Context(), c.Param("id"), claims.UserID, req.Body, req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// ListComments godoc
// @Summary List deliverable comments
// @Tags Comments
// @Produce json
// @Param id path string true "Deliverable ID"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id}/comments [get]
func (h *DeliverableHandler) ListComments(c *gin.Context) {
	filter := models.CommentFilter{}
	if rawType := c.Query("type"); rawType != "" {
		filter.Type = models.CommentType(strings.ToUpper(strings.TrimSpace(rawType)))
	}
	comments, err := h.comments.List(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// EditComment godoc
// @Summary Edit an own comment
// @Tags Comments
// @Accept json
// @Produce json
// @Param commentId path string true "Comment ID"
// @Param payload body dto.EditCommentRequest true "New body"
// @Success 200 {object} response.Envelope
// @Router /comments/{commentId} [put]
func (h *DeliverableHandler) EditComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.EditCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	comment, err := h.comments.Edit(c.Request.Context(), c.Param("commentId"), claims.UserID, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comment, nil)
}

// DeleteComment godoc
// @Summary Delete an own comment
// @Tags Comments
// @Param commentId path string true "Comment ID"
// @Success 204
// @Router /comments/{commentId} [delete]
func (h *DeliverableHandler) DeleteComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.comments.Delete(c.Request.Context(), c.Param("commentId"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
