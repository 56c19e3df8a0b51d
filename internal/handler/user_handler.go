package handler

import (
	"net/http"
	"time"

	"projectos/internal/middleware"
	"projectos/internal/service"
	"projectos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	userService service.UserService
	sessionTTL  time.Duration
	log         logrus.FieldLogger
}

// NewUserHandler sets up the routing dependencies for login endpoints
func NewUserHandler(userService service.UserService, sessionTTL time.Duration, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{userService: userService, sessionTTL: sessionTTL, log: log}
}

// RegisterRoutes binds the public login endpoints
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/magic-link", h.RequestMagicLink)
	router.GET("/callback", h.Callback)
	router.POST("/logout", h.Logout)
}

// RegisterSessionRoutes binds endpoints that need a session
func (h *UserHandler) RegisterSessionRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.GetMe)
}

// RequestMagicLink emails a login link
// @Summary      Request a login link
// @Description  Always answers 202 for a well-formed address so the endpoint does not reveal which accounts exist
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MagicLinkRequest  true  "Email"
// @Success      202      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /auth/magic-link [post]
func (h *UserHandler) RequestMagicLink(c *gin.Context) {
	var req service.MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Please enter a valid email."))
		return
	}

	if err := h.userService.RequestMagicLink(c.Request.Context(), req); err != nil {
		if statusFor(err) == http.StatusBadRequest {
			writeError(c, h.log, err)
			return
		}
		// Delivery problems are logged but not revealed.
		h.log.WithError(err).Error("magic link request failed")
	}
	c.JSON(http.StatusAccepted, response.Success(http.StatusAccepted, "Check your email for the login link."))
}

// Callback spends a login link and starts a session
// @Summary      Complete login
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "Login token from the emailed link"
// @Success      200    {object}  response.Response{data=service.TokenResponse}
// @Failure      400    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Failure      409    {object}  response.Response
// @Router       /auth/callback [get]
func (h *UserHandler) Callback(c *gin.Context) {
	tokenRes, err := h.userService.ConsumeMagicLink(c.Request.Context(), c.Query("token"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	middleware.SetTokenCookies(c, tokenRes.Token, h.sessionTTL)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout handles POST /auth/logout to clear the session cookie
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// GetMe handles GET /api/me to return the designer behind the session
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetMe(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
