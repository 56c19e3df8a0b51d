package handler

import (
	"net/http"

	"projectos/internal/middleware"
	"projectos/internal/service"
	"projectos/pkg/pagination"
	"projectos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuditHandler struct {
	auditService service.AuditService
	log          logrus.FieldLogger
}

func NewAuditHandler(auditService service.AuditService, log logrus.FieldLogger) *AuditHandler {
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:id/audit-logs", h.GetAuditLogs)
}

// GetAuditLogs returns a project's audit trail, newest first
// @Summary      Get project audit logs
// @Description  Paginated audit trail of a project owned by the caller
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Project ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.AuditLogResponse}}
// @Failure      401    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Router       /api/projects/{id}/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id", "Project not found.")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	logs, total, err := h.auditService.ListForProject(c.Request.Context(), middleware.CurrentSession(c), projectID, p.Page, p.Limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, total, p.Page, p.Limit))
}

// parseUUIDParam answers 404 for malformed ids, the same as for ids that do not exist.
func parseUUIDParam(c *gin.Context, name, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, notFound))
		return uuid.Nil, false
	}
	return id, true
}
