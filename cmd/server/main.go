package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/court-iq/internal/api"
	"github.com/stitts-dev/court-iq/internal/api/handlers"
	"github.com/stitts-dev/court-iq/internal/api/middleware"
	"github.com/stitts-dev/court-iq/internal/pipeline"
	"github.com/stitts-dev/court-iq/internal/store"
	"github.com/stitts-dev/court-iq/pkg/config"
	"github.com/stitts-dev/court-iq/pkg/database"
	"github.com/stitts-dev/court-iq/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	st, err := store.New(db)
	if err != nil {
		logrus.Fatalf("Failed to initialize store: %v", err)
	}

	// Adjustment cache is optional: the pipeline degrades to Postgres-only
	// reads when Redis is unavailable.
	cache, err := store.NewAdjustmentCache(cfg.RedisURL, time.Duration(cfg.AdjustmentCacheTTL)*time.Second)
	if err != nil {
		logrus.Warnf("Adjustment cache disabled: %v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	runner := pipeline.NewRunner(cfg, st, cache)

	// Daily pipeline schedule
	scheduler := cron.New(cron.WithSeconds())
	_, err = scheduler.AddFunc(cfg.PipelineCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := runner.Run(ctx); err != nil {
			logrus.Errorf("Scheduled pipeline run failed: %v", err)
		}
	})
	if err != nil {
		logrus.Fatalf("Failed to schedule pipeline: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.RunOnStartup {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if _, err := runner.Run(ctx); err != nil {
				logrus.Errorf("Startup pipeline run failed: %v", err)
			}
		}()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/health", handlers.HealthCheck)

	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, st, runner)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
