package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rxtrace/epcis-service/config"
	"github.com/rxtrace/epcis-service/internal/database"
	"github.com/rxtrace/epcis-service/internal/epcis"
	"github.com/rxtrace/epcis-service/internal/handlers"
	"github.com/rxtrace/epcis-service/internal/middleware"
	"github.com/rxtrace/epcis-service/internal/pipeline"
	"github.com/rxtrace/epcis-service/internal/reconcile"
	"github.com/rxtrace/epcis-service/internal/storage"
	"github.com/rxtrace/epcis-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting EPCIS service")

	ctx := context.Background()

	cleanup := telemetry.MustInit(ctx, telemetry.GetConfigFromEnv())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	store, err := storage.New(storage.StorageType(cfg.Storage.Type), cfg.Storage.BasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize document storage")
	}

	validator := epcis.NewValidator(*logger, epcis.ValidatorOptions{
		StrictVersion:              cfg.Validation.StrictVersion,
		ExpectedVersion:            cfg.Validation.ExpectedVersion,
		StrictTransactionStatement: cfg.Validation.StrictTransactionStatement,
		MaxFileSize:                cfg.Validation.MaxFileSize,
		StreamThreshold:            cfg.Validation.StreamThreshold,
	})
	processor := pipeline.NewProcessor(validator, store, true, *logger)
	engine := reconcile.NewEngine(*logger)

	documentsHandler := handlers.NewDocumentsHandler(processor, cfg.Validation.MaxFileSize)
	scanHandler := handlers.NewScanHandler(engine, documentsHandler)

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)
	router.MaxMultipartMemory = cfg.Validation.MaxFileSize

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
	}))
	{
		api.POST("/documents", documentsHandler.Upload)
		api.GET("/documents", documentsHandler.List)
		api.GET("/documents/:id", documentsHandler.Get)
		api.POST("/documents/:id/reconcile", scanHandler.Reconcile)
		api.POST("/scan", scanHandler.Decode)
	}

	internal := router.Group("/internal")
	internal.Use(middleware.APIKeyAuth(""))
	internal.Use(middleware.ServiceRateLimit(50, 100))
	{
		internal.GET("/health", handlers.HealthCheck)
		internal.POST("/documents", documentsHandler.Upload)
		internal.GET("/documents", documentsHandler.List)
		internal.GET("/documents/:id", documentsHandler.Get)
		internal.POST("/documents/:id/reconcile", scanHandler.Reconcile)
		internal.GET("/runs", handlers.ListRuns)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "epcis-service").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
