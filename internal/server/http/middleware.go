package http

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const profileKey = "profile"

// requestLogger tags the request context with a request id and logs every
// request once it has been served.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := logging.ContextWith(c.Request.Context(), "request_id", uuid.NewString())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logger.Info(ctx, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered", "panic", r, "stack", string(debug.Stack()))
				fail(c, http.StatusInternalServerError, "internal server error")
			}
		}()
		c.Next()
	}
}

// requireAccess authenticates the access credential and stores the caller's
// profile in the gin context.
func (h *handler) requireAccess(c *gin.Context) {
	profile, err := h.users.Authenticate(c.Request.Context(), accessToken(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(profileKey, profile)
	c.Next()
}

func currentProfile(c *gin.Context) *models.Profile {
	return c.MustGet(profileKey).(*models.Profile)
}
