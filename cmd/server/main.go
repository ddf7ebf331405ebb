package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/metrics"
	"github.com/anonto42/voxmarket/backend/internal/middleware"
	"github.com/anonto42/voxmarket/backend/internal/router"
	"github.com/anonto42/voxmarket/backend/pkg/config"
	"github.com/anonto42/voxmarket/backend/pkg/firebase"
	"github.com/anonto42/voxmarket/backend/pkg/logger"
	"github.com/anonto42/voxmarket/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Initialize database connections
	db, err := config.InitDB(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Firebase
	var firebaseAuth middleware.IDTokenVerifier
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case err == nil:
		firebaseAuth = firebaseApp.AuthClient
		zl.Info("Firebase app and auth client initialized successfully!")
	case errors.Is(err, firebase.ErrNotConfigured):
		zl.Warn("Firebase not configured, firebase login disabled")
	default:
		zl.Fatal("Failed to initialize Firebase", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupMiddleware(e, zl)

	// Setup routes and dependencies
	app, err := router.SetupRoutes(e, router.Dependencies{
		Config:       cfg,
		DB:           db,
		FirebaseAuth: firebaseAuth,
		Logger:       zl,
	})
	if err != nil {
		zl.Fatal("Failed to set up routes", zap.Error(err))
	}

	// Retry undelivered messages now and on schedule
	sweeper, err := app.Queue.Schedule(ctx, cfg.SweepSchedule)
	if err != nil {
		zl.Fatal("Failed to schedule message sweeps", zap.Error(err))
	}

	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metrics.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server stopped", zap.Error(err))
		}
	}()
	zl.Info("Server started", zap.String("port", cfg.Port), zap.String("metrics_port", cfg.MetricsPort))

	<-ctx.Done()
	zl.Info("Shutting down")

	<-sweeper.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("Metrics server shutdown failed", zap.Error(err))
	}
}
