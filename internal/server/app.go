// Package server wires the configuration, storage, services and both
// listeners (JSON API and gRPC health) into a runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.UsesDefaultSecrets() {
		logger.Warn(ctx, "using built-in development token secrets; set JWT_SECRET_KEY and JWT_REFRESH_KEY")
	}

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, rm, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hasher := auth.NewPasswordHasher(c.BcryptCost, c.HashConcurrency)
	tokens := auth.NewTokenManager(
		[]byte(c.AccessTokenSecret), []byte(c.RefreshTokenSecret),
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration,
	)

	us := services.NewUserService(db, rm, hasher, tokens, logger)

	if c.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &App{config: c, logger: logger, db: db, userService: us}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the listeners fails. The database is closed once both listeners stopped.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	httpServer := hs.NewHTTPServer(app.config.HTTPAddr, app.logger, app.userService, hs.Options{
		APIPrefix:    app.config.APIPrefix,
		CookieSecure: app.config.CookieSecure,
	})
	grpcServer := gs.NewGRPCServer(app.config.GRPCAddr, app.logger)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		runErrs []error
	)
	for _, run := range []func(context.Context) error{httpServer.Run, grpcServer.Run} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				mu.Lock()
				runErrs = append(runErrs, err)
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")

	if len(runErrs) > 0 {
		return runErrs[0]
	}
	return nil
}
