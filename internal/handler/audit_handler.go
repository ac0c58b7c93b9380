package handler

import (
	"net/http"

	"ecofood/internal/middleware"
	"ecofood/internal/model"
	"ecofood/internal/service"
	"ecofood/pkg/pagination"
	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuditHandler struct {
	auditService service.AuditService
	guard        *middleware.Guard
	log          logrus.FieldLogger
}

func NewAuditHandler(auditService service.AuditService, guard *middleware.Guard, log logrus.FieldLogger) *AuditHandler {
	return &AuditHandler{auditService: auditService, guard: guard, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.guard.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records with the acting account preloaded
// @Summary      Get audit logs
// @Description  Lists account, product and request mutations, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Filter by action, e.g. APPROVE_REQUEST"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("action"), p.Page, p.Limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(logs, total, p)))
}
