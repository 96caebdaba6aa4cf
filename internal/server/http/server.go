// Package http exposes the account operations as a JSON API built on gin.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

// UserService is the subset of services.UserService the handlers call.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Profile, error)
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Authenticate(ctx context.Context, accessToken string) (*models.Profile, error)
	ChangePassword(ctx context.Context, userID string, in services.ChangePasswordInput) error
	Logout(ctx context.Context, hasAccess, hasRefresh bool) bool
}

// Options tunes the router.
type Options struct {
	// APIPrefix is the group the user routes are mounted under.
	APIPrefix string
	// CookieSecure sets the Secure attribute of credential cookies.
	CookieSecure bool
}

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address string
	logger  logging.Logger
	handler http.Handler
}

func NewHTTPServer(address string, l logging.Logger, us UserService, opts Options) *HTTPServer {
	logger := l.With("module", "http_server")
	return &HTTPServer{
		address: address,
		logger:  logger,
		handler: NewRouter(us, logger, opts),
	}
}

// Handler returns the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(us UserService, logger logging.Logger, opts Options) *gin.Engine {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1/users"
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(requestLogger(logger), recovery(logger))

	h := &handler{users: us, logger: logger, cookieSecure: opts.CookieSecure}

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})
	router.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	group := router.Group(opts.APIPrefix)
	group.POST("/new", h.register)
	group.POST("/login", h.login)
	group.GET("/refresh", h.refresh)
	group.POST("/logout", h.logout)

	authorized := group.Group("")
	authorized.Use(h.requireAccess)
	{
		authorized.GET("/me", h.me)
		authorized.POST("/change-password", h.changePassword)
	}

	return router
}
