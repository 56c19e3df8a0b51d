package handler

import (
	"errors"
	"net/http"

	"projectos/internal/service"
	"projectos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps a service error kind onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// logIfServerSide keeps the detail of 5xx failures in the log; the caller only sees
// the generic message.
func logIfServerSide(c *gin.Context, log logrus.FieldLogger, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	_ = c.Error(err)
	log.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("requestID"),
		"path":       c.FullPath(),
	}).Error("request failed")
}

// writeError renders err in the standard response envelope.
func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	logIfServerSide(c, log, status, err)
	c.JSON(status, response.Error(status, service.PublicMessage(err)))
}

// writePublicError renders err as the flat {"message"} body of the public endpoints.
func writePublicError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	logIfServerSide(c, log, status, err)
	c.JSON(status, MessageResponse{Message: service.PublicMessage(err)})
}
