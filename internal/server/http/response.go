package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// statusClientClosedRequest is recorded when the caller went away before the
// handler finished. Nobody reads the response, so it carries no body.
const statusClientClosedRequest = 499

// envelope is the body of every JSON response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, code int, message string, data any) {
	c.JSON(code, envelope{Status: statusSuccess, Message: message, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, envelope{Status: statusError, Message: message})
}

// statusFor maps a service error to an HTTP status and the message shown to
// the client. Unclassified errors are internal.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrVersionConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrorNotFound):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		h.logger.Debug(c.Request.Context(), "request abandoned", "error", err)
		c.AbortWithStatus(statusClientClosedRequest)
		return
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Debug(c.Request.Context(), "request timed out", "error", err)
		c.AbortWithStatus(http.StatusGatewayTimeout)
		return
	}

	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "error", err)
	}
	fail(c, code, msg)
}
