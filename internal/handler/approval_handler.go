package handler

import (
	"net/http"

	"projectos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ApprovalHandler serves the public approval gateway. Its responses are flat JSON with
// {"message"} errors, as the approval page expects.
type ApprovalHandler struct {
	approvalService service.ApprovalService
	log             logrus.FieldLogger
}

func NewApprovalHandler(approvalService service.ApprovalService, log logrus.FieldLogger) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService, log: log}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/change-request", h.GetChangeRequest)
	router.POST("/approve", h.Decide)
}

// GetChangeRequest resolves a client token into the change request it addresses
// @Summary      View change request by client token
// @Description  Public lookup used by the client approval page
// @Tags         public
// @Produce      json
// @Param        token  query     string  true  "Client token"
// @Success      200    {object}  service.ChangeRequestView
// @Failure      400    {object}  handler.MessageResponse
// @Failure      404    {object}  handler.MessageResponse
// @Router       /api/public/change-request [get]
func (h *ApprovalHandler) GetChangeRequest(c *gin.Context) {
	view, err := h.approvalService.FetchByToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		writePublicError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Decide records the client's approval or rejection
// @Summary      Approve or reject a change request
// @Description  Finalizes a pending change request. Only the first decision wins.
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DecideRequest  true  "Token and action (approved or rejected)"
// @Success      200      {object}  service.DecisionResponse
// @Failure      400      {object}  handler.MessageResponse
// @Failure      404      {object}  handler.MessageResponse
// @Failure      409      {object}  handler.MessageResponse
// @Failure      500      {object}  handler.MessageResponse
// @Router       /api/public/approve [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	var req service.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "Missing data."})
		return
	}

	result, err := h.approvalService.Decide(c.Request.Context(), req, service.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writePublicError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MessageResponse is the error body of the public endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}
