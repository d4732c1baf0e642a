// Package app wires the pieces together: configuration, database, Redis,
// HTTP routes and the background cleaner, with graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/kiemxuonline/kiemxu/internal/card"
	"github.com/kiemxuonline/kiemxu/internal/config"
	"github.com/kiemxuonline/kiemxu/internal/db"
	adminapi "github.com/kiemxuonline/kiemxu/internal/http/api/admin"
	"github.com/kiemxuonline/kiemxu/internal/http/api/front"
	"github.com/kiemxuonline/kiemxu/internal/logging"
	"github.com/kiemxuonline/kiemxu/internal/market"
	"github.com/kiemxuonline/kiemxu/internal/provider"
	"github.com/kiemxuonline/kiemxu/internal/ratelimit"
	"github.com/kiemxuonline/kiemxu/internal/retention"
	"github.com/kiemxuonline/kiemxu/internal/settings"
)

// Migrate opens the database and runs migrations.
func Migrate(configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the platform API and blocks until shutdown.
func RunServer(configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if errPing := redisClient.Ping(ctx).Err(); errPing != nil {
			log.WithError(errPing).Warn("redis unreachable, rate limiting disabled")
			redisClient = nil
		}
	}
	limiter := ratelimit.NewLimiter(redisClient, "kiemxu:rate_limit")

	var cardGateway *provider.CardGateway
	var gateway card.Gateway
	if cfg.CardGateway.APIURL != "" {
		cardGateway = provider.NewCardGateway(cfg.CardGateway)
		gateway = cardGateway
	} else {
		log.Warn("card gateway not configured, submissions stay pending")
	}
	cardService := card.NewService(conn, gateway)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogMiddleware())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:          conn,
		JWT:         cfg.JWT,
		CardService: cardService,
		CardGateway: cardGateway,
		Limiter:     limiter,
	})
	adminapi.RegisterAdminRoutes(engine, conn, cfg.JWT, provider.NewShortener())

	cleaner := retention.NewCleaner(conn, market.NewService(conn))
	cleaner.Start(ctx)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// requestLogMiddleware tags each request with an id and logs its outcome.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("requestId", requestID)
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request handled")
		}
	}
}
