// Package main runs the marathon platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tanvircsebd/marathonX-server/config"
	"github.com/tanvircsebd/marathonX-server/internal/auth"
	"github.com/tanvircsebd/marathonX-server/internal/marathons"
	"github.com/tanvircsebd/marathonX-server/internal/middleware"
	"github.com/tanvircsebd/marathonX-server/internal/registrations"
	"github.com/tanvircsebd/marathonX-server/pkg/database"
	"github.com/tanvircsebd/marathonX-server/pkg/redis"
	"github.com/tanvircsebd/marathonX-server/pkg/response"
	"github.com/tanvircsebd/marathonX-server/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ImagesBucket:         cfg.AWS.ImagesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessionHandler := auth.NewHandler(jwtService, cfg.Server.Production(), logger)

	// Marathons
	marathonRepo := marathons.NewRepository(pool)
	var images marathons.ImageSigner
	if s3Client != nil {
		images = s3Client
	}
	marathonHandler := marathons.NewHandler(marathonRepo, marathons.NewRedisCache(rdb.Client), images, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, logger)

	// Restore the counter invariant in case of drift from before the
	// transactional writes existed.
	if fixed, err := registrationRepo.ReconcileCounts(ctx); err != nil {
		logger.Warn("reconcile registration counts", zap.Error(err))
	} else if fixed > 0 {
		logger.Info("reconciled registration counts", zap.Int64("marathons", fixed))
	}

	if cfg.Server.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Session (public)
	router.POST("/session", sessionHandler.Create)
	router.POST("/session/logout", sessionHandler.Logout)

	// Public teaser listing
	router.GET("/marathons/preview", marathonHandler.Preview)

	// Protected API (session cookie required)
	api := router.Group("")
	api.Use(middleware.Session(jwtService))
	{
		api.POST("/marathons", marathonHandler.Create)
		api.GET("/marathons", marathonHandler.List)
		api.GET("/marathons/by-owner/:email", marathonHandler.ListByOwner)
		api.GET("/marathons/:id", marathonHandler.GetByID)
		api.PATCH("/marathons/:id", marathonHandler.Update)
		api.DELETE("/marathons/:id", marathonHandler.Delete)
		api.POST("/marathons/:id/image/upload-url", marathonHandler.ImageUploadURL)

		api.POST("/registrations", registrationHandler.Register)
		api.PUT("/registrations", registrationHandler.Update)
		api.DELETE("/registrations", registrationHandler.Unregister)
		api.GET("/registrations/by-email/:email", registrationHandler.ListByEmail)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
