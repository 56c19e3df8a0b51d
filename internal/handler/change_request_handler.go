package handler

import (
	"net/http"

	"projectos/internal/middleware"
	"projectos/internal/service"
	"projectos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ChangeRequestHandler struct {
	changeRequestService service.ChangeRequestService
	log                  logrus.FieldLogger
}

func NewChangeRequestHandler(changeRequestService service.ChangeRequestService, log logrus.FieldLogger) *ChangeRequestHandler {
	return &ChangeRequestHandler{changeRequestService: changeRequestService, log: log}
}

func (h *ChangeRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	crs := router.Group("/projects/:id/change-requests")
	{
		crs.GET("", h.ListChangeRequests)
		crs.POST("", h.CreateChangeRequest)
		crs.GET("/:crId", h.GetChangeRequest)
		crs.POST("/:crId/send", h.SendChangeRequest)
	}
}

// CreateChangeRequest drafts a change request
// @Summary      Create a change request
// @Description  Stores a draft with a fresh client token. The delta may be given in cents or as an amount.
// @Tags         change-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                              true  "Project ID"
// @Param        payload  body      service.CreateChangeRequestRequest  true  "Change request"
// @Success      201      {object}  response.Response{data=service.ChangeRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/projects/{id}/change-requests [post]
func (h *ChangeRequestHandler) CreateChangeRequest(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id", "Project not found.")
	if !ok {
		return
	}
	var req service.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	cr, err := h.changeRequestService.Create(c.Request.Context(), middleware.CurrentSession(c), projectID, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cr))
}

// ListChangeRequests handles GET /api/projects/:id/change-requests
// @Summary      List change requests of a project
// @Tags         change-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=[]service.ChangeRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id}/change-requests [get]
func (h *ChangeRequestHandler) ListChangeRequests(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id", "Project not found.")
	if !ok {
		return
	}

	crs, err := h.changeRequestService.List(c.Request.Context(), middleware.CurrentSession(c), projectID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, crs))
}

// GetChangeRequest handles GET /api/projects/:id/change-requests/:crId
// @Summary      Get a change request
// @Tags         change-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Project ID"
// @Param        crId  path      string  true  "Change request ID"
// @Success      200   {object}  response.Response{data=service.ChangeRequestResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/projects/{id}/change-requests/{crId} [get]
func (h *ChangeRequestHandler) GetChangeRequest(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id", "Project not found.")
	if !ok {
		return
	}
	crID, ok := parseUUIDParam(c, "crId", "Change request not found.")
	if !ok {
		return
	}

	cr, err := h.changeRequestService.Get(c.Request.Context(), middleware.CurrentSession(c), projectID, crID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cr))
}

// SendChangeRequest moves a draft to pending and returns the approval link
// @Summary      Send a change request to the client
// @Description  Idempotent while pending. Finalized requests answer 409.
// @Tags         change-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Project ID"
// @Param        crId  path      string  true  "Change request ID"
// @Success      200   {object}  response.Response{data=service.ChangeRequestResponse}
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /api/projects/{id}/change-requests/{crId}/send [post]
func (h *ChangeRequestHandler) SendChangeRequest(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id", "Project not found.")
	if !ok {
		return
	}
	crID, ok := parseUUIDParam(c, "crId", "Change request not found.")
	if !ok {
		return
	}

	cr, err := h.changeRequestService.Send(c.Request.Context(), middleware.CurrentSession(c), projectID, crID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cr))
}
