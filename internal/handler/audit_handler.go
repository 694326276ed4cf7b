package handler

import (
	"net/http"

	"supplychain/internal/middleware"
	"supplychain/internal/repository"
	"supplychain/internal/service"
	"supplychain/pkg/pagination"
	"supplychain/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireRole("admin", "manager")) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves the organization's planning and costing history
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Action filter"
// @Param        entity_id  query     string  false  "Entity filter"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Router       /api/planning/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	filter := repository.AuditFilter{Action: c.Query("action"), EntityID: c.Query("entity_id")}
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), actor, filter, p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}
