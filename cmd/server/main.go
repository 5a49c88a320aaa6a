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

	"github.com/glavarch/gpzu/internal/config"
	"github.com/glavarch/gpzu/internal/database"
	"github.com/glavarch/gpzu/internal/handlers"
	"github.com/glavarch/gpzu/internal/logger"
	"github.com/glavarch/gpzu/internal/middleware"
	"github.com/glavarch/gpzu/internal/remote"
	"github.com/glavarch/gpzu/internal/repository"
	"github.com/glavarch/gpzu/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting GPZU API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// External service clients
	timeout := cfg.Services.Timeout
	parser := remote.NewParserClient(cfg.Services.ParserURL, timeout)
	analyzer := remote.NewAnalyzerClient(cfg.Services.AnalyzerURL, timeout)
	generator := remote.NewGeneratorClient(cfg.Services.GeneratorURL, timeout)
	kaiten := remote.NewKaitenClient(cfg.Services.KaitenURL, timeout)

	// Initialize repository and service layers
	appRepo := repository.NewApplicationRepository(db)
	planRepo := repository.NewPlanRepository(db)
	refusalRepo := repository.NewRefusalRepository(db)
	tuRepo := repository.NewTuRequestRepository(db)

	appService := services.NewApplicationService(appRepo, log)
	planService := services.NewPlanService(planRepo, appRepo, log)
	refusalService := services.NewRefusalService(refusalRepo, appRepo, log)
	tuService := services.NewTuRequestService(tuRepo, appRepo, log)
	wizardService := services.NewWizardService(services.WizardDeps{
		Parser:    parser,
		Analyzer:  analyzer,
		Generator: generator,
		Kaiten:    kaiten,
		Apps:      appRepo,
		Plans:     planRepo,
		Refusals:  refusalRepo,
		TuReqs:    tuRepo,
	}, cfg.Wizard.SessionTTL, log)
	defer wizardService.Close()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler()
	appHandler := handlers.NewApplicationHandler(appService)
	planHandler := handlers.NewPlanHandler(planService)
	refusalHandler := handlers.NewRefusalHandler(refusalService)
	tuHandler := handlers.NewTuRequestHandler(tuService)
	wizardHandler := handlers.NewWizardHandler(wizardService)
	catalogHandler := handlers.NewCatalogHandler()

	// Register API v1 routes. With no configured users the auth
	// middleware is a no-op (development mode).
	v1 := router.Group("/api/v1")
	v1.Use(middleware.BasicAuth(cfg.Auth.Users))
	{
		auth := v1.Group("/auth")
		{
			auth.GET("/me", authHandler.Me)
			auth.POST("/logout", authHandler.Logout)
		}

		apps := v1.Group("/applications")
		{
			apps.POST("", appHandler.Create)
			apps.GET("", appHandler.List)
			apps.GET("/export", appHandler.Export)
			apps.GET("/:id", appHandler.Get)
			apps.PATCH("/:id", appHandler.Update)
			apps.DELETE("/:id", appHandler.Delete)
		}

		plans := v1.Group("/plans")
		{
			plans.GET("", planHandler.List)
			plans.GET("/export", planHandler.Export)
			plans.GET("/:id", planHandler.Get)
			plans.PATCH("/:id", planHandler.Update)
			plans.DELETE("/:id", planHandler.Delete)
		}

		refusals := v1.Group("/refusals")
		{
			refusals.GET("", refusalHandler.List)
			refusals.GET("/export", refusalHandler.Export)
			refusals.GET("/:id", refusalHandler.Get)
			refusals.PATCH("/:id", refusalHandler.Update)
			refusals.DELETE("/:id", refusalHandler.Delete)
		}

		tuRequests := v1.Group("/tu-requests")
		{
			tuRequests.GET("", tuHandler.List)
			tuRequests.GET("/export", tuHandler.Export)
			tuRequests.GET("/:id", tuHandler.Get)
			tuRequests.PATCH("/:id", tuHandler.Update)
			tuRequests.DELETE("/:id", tuHandler.Delete)
		}

		wizards := v1.Group("/wizards")
		{
			wizards.POST("", wizardHandler.Create)
			wizards.GET("/:id", wizardHandler.Get)
			wizards.POST("/:id/steps/:step", wizardHandler.SubmitStep)
			wizards.POST("/:id/confirm", wizardHandler.Confirm)
			wizards.POST("/:id/back", wizardHandler.Back)
			wizards.POST("/:id/reset", wizardHandler.Reset)
			wizards.POST("/:id/commit", wizardHandler.Commit)
		}

		catalogs := v1.Group("/catalogs")
		{
			catalogs.GET("/refusal-reasons", catalogHandler.RefusalReasons)
			catalogs.GET("/rso", catalogHandler.RSOTypes)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
