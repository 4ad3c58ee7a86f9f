package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/pm-hub/pmhub_backend/internal/core/ports/services"
	"github.com/pm-hub/pmhub_backend/internal/dto"
	"github.com/pm-hub/pmhub_backend/internal/middleware"
)

// auditHandler serves the change history feeds.
type auditHandler struct {
	historyService portssvc.ChangeHistorySvc
}

func newAuditHandler(hs portssvc.ChangeHistorySvc) *auditHandler {
	return &auditHandler{historyService: hs}
}

// RegisterAuditRoutes registers the audit feed and task timeline routes.
func RegisterAuditRoutes(rg *gin.RouterGroup, hs portssvc.ChangeHistorySvc) {
	h := newAuditHandler(hs)

	audit := rg.Group("/audit")
	{
		audit.GET("/recent", h.recentActivity)
		audit.GET("/users/:email", h.userHistory)
	}
	rg.GET("/tasks/:id/transitions", h.taskTransitions)
}

type auditQuery struct {
	Limit int `form:"limit,default=50"`
}

// recentActivity godoc
// @Summary Recent changes across all records
// @Tags audit
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} dto.ListAuditResponse
// @Security BearerAuth
// @Router /audit/recent [get]
func (h *auditHandler) recentActivity(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	entries, err := h.historyService.RecentActivity(c.Request.Context(), actor, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListAuditResponse(entries))
}

// userHistory godoc
// @Summary Changes recorded by one user
// @Tags audit
// @Produce json
// @Param email path string true "User email"
// @Param limit query int false "Max entries"
// @Success 200 {object} dto.ListAuditResponse
// @Security BearerAuth
// @Router /audit/users/{email} [get]
func (h *auditHandler) userHistory(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	entries, err := h.historyService.UserHistory(c.Request.Context(), actor, c.Param("email"), q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListAuditResponse(entries))
}

// taskTransitions godoc
// @Summary Status timeline of one task
// @Tags audit
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {array} dto.StatusTransitionResponse
// @Security BearerAuth
// @Router /tasks/{id}/transitions [get]
func (h *auditHandler) taskTransitions(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transitions, err := h.historyService.TaskTransitions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.StatusTransitionResponse, len(transitions))
	for i, tr := range transitions {
		out[i] = dto.ToStatusTransitionResponse(tr)
	}
	c.JSON(http.StatusOK, out)
}
