package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pm-hub/pmhub_backend/internal/apperrors"
	portssvc "github.com/pm-hub/pmhub_backend/internal/core/ports/services"
	"github.com/pm-hub/pmhub_backend/internal/dto"
	"github.com/pm-hub/pmhub_backend/internal/middleware"
)

// entityHandler serves the schema-driven CRUD surface. One handler covers
// every registered entity type; the :type path segment selects the schema.
type entityHandler struct {
	entityService  portssvc.EntitySvcFacade
	historyService portssvc.ChangeHistorySvc
}

func newEntityHandler(es portssvc.EntitySvcFacade, hs portssvc.ChangeHistorySvc) *entityHandler {
	return &entityHandler{
		entityService:  es,
		historyService: hs,
	}
}

// RegisterEntityRoutes registers the generic record routes.
func RegisterEntityRoutes(rg *gin.RouterGroup, es portssvc.EntitySvcFacade, hs portssvc.ChangeHistorySvc) {
	h := newEntityHandler(es, hs)

	entities := rg.Group("/entities/:type")
	{
		entities.GET("", h.listEntities)
		entities.POST("", h.createEntity)
		entities.GET("/:id", h.getEntity)
		entities.PUT("/:id", h.updateEntity)
		entities.DELETE("/:id", h.deleteEntity)
		entities.PUT("/:id/status", h.changeStatus)
		entities.POST("/:id/decision", h.decide)
		entities.GET("/:id/history", h.entityHistory)
	}
}

// statusForReason maps a failed MutationResult to an HTTP status.
func statusForReason(reason string) int {
	switch reason {
	case dto.ReasonValidation:
		return http.StatusBadRequest
	case dto.ReasonConflict:
		return http.StatusConflict
	case dto.ReasonForbidden:
		return http.StatusForbidden
	case dto.ReasonBlocked:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// respondMutation renders a MutationResult or a service error.
func respondMutation(c *gin.Context, result dto.MutationResult, err error, successStatus int) {
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Success {
		c.JSON(statusForReason(result.Reason), result)
		return
	}
	c.JSON(successStatus, result)
}

// respondError maps sentinel errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromContext(c)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrPolicyViolation):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown entity type"})
	default:
		logger.Error("Unhandled service error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// listEntities godoc
// @Summary List records of one entity type
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.ListEntitiesResponse
// @Failure 404 {object} map[string]string "Unknown entity type"
// @Security BearerAuth
// @Router /entities/{type} [get]
func (h *entityHandler) listEntities(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListEntitiesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	items, err := h.entityService.ListEntities(c.Request.Context(), actor, c.Param("type"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListEntitiesResponse{Items: items, Count: len(items)})
}

// getEntity godoc
// @Summary Get one record
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string "Record not found"
// @Security BearerAuth
// @Router /entities/{type}/{id} [get]
func (h *entityHandler) getEntity(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rec, err := h.entityService.GetEntity(c.Request.Context(), actor, c.Param("type"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// createEntity godoc
// @Summary Create a record
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param form body map[string]any true "Field values"
// @Success 201 {object} dto.MutationResult
// @Failure 400 {object} dto.MutationResult "Validation failed"
// @Failure 403 {object} dto.MutationResult "Role may not create this type"
// @Security BearerAuth
// @Router /entities/{type} [post]
func (h *entityHandler) createEntity(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var form map[string]any
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.entityService.CreateEntity(c.Request.Context(), actor, c.Param("type"), form)
	respondMutation(c, result, err, http.StatusCreated)
}

// updateEntity godoc
// @Summary Update a record
// @Description Applies a partial update guarded by the version token the
// @Description client last saw; a stale token yields 409.
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Param request body dto.UpdateEntityRequest true "Updates and version"
// @Success 200 {object} dto.MutationResult
// @Failure 409 {object} dto.MutationResult "Version conflict"
// @Security BearerAuth
// @Router /entities/{type}/{id} [put]
func (h *entityHandler) updateEntity(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.entityService.UpdateEntity(c.Request.Context(), actor, c.Param("type"), c.Param("id"), req.Updates, req.Version)
	respondMutation(c, result, err, http.StatusOK)
}

// deleteEntity godoc
// @Summary Soft-delete a record
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Success 200 {object} dto.MutationResult
// @Failure 403 {object} dto.MutationResult "Role may not delete this type"
// @Security BearerAuth
// @Router /entities/{type}/{id} [delete]
func (h *entityHandler) deleteEntity(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.entityService.DeleteEntity(c.Request.Context(), actor, c.Param("type"), c.Param("id"))
	respondMutation(c, result, err, http.StatusOK)
}

// changeStatus godoc
// @Summary Move a record to a new status
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Param request body dto.StatusChangeRequest true "Target status and version"
// @Success 200 {object} dto.MutationResult
// @Security BearerAuth
// @Router /entities/{type}/{id}/status [put]
func (h *entityHandler) changeStatus(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.entityService.ChangeStatus(c.Request.Context(), actor, c.Param("type"), c.Param("id"), req.Status, req.Version)
	respondMutation(c, result, err, http.StatusOK)
}

// decide godoc
// @Summary Approve or reject a record with an approval flow
// @Tags entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Param request body dto.DecisionRequest true "Decision"
// @Success 200 {object} dto.MutationResult
// @Failure 422 {object} dto.MutationResult "Record not in a decidable status"
// @Security BearerAuth
// @Router /entities/{type}/{id}/decision [post]
func (h *entityHandler) decide(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.entityService.Decide(c.Request.Context(), actor, c.Param("type"), c.Param("id"), req.Approve, req.Version, req.Notes)
	respondMutation(c, result, err, http.StatusOK)
}

// entityHistory godoc
// @Summary Change history for one record
// @Tags entities
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Record ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} dto.ListAuditResponse
// @Security BearerAuth
// @Router /entities/{type}/{id}/history [get]
func (h *entityHandler) entityHistory(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListEntitiesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	entries, err := h.historyService.EntityHistory(c.Request.Context(), actor, c.Param("type"), c.Param("id"), params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListAuditResponse(entries))
}
