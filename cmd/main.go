package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sympep-tracker/internal/auth"
	"sympep-tracker/internal/config"
	"sympep-tracker/internal/database"
	"sympep-tracker/internal/handlers"
	"sympep-tracker/internal/jobs"
	"sympep-tracker/internal/metrics"
	"sympep-tracker/internal/registry"
	"sympep-tracker/internal/repository"
	"sympep-tracker/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	proposalService := services.NewProposalService(repo)
	numberingService := services.NewNumberingService(proposalService)
	statusService := services.NewStatusService(proposalService)
	discussionService := services.NewDiscussionService(proposalService)

	// Initialize handlers
	proposalHandler := handlers.NewProposalHandler(proposalService, numberingService, statusService, discussionService)

	// Start registry publisher
	publisher := jobs.NewRegistryPublisher(
		repo,
		registry.NewFileWriter(cfg.Registry.Path),
		cfg.Registry.Interval,
		cfg.Registry.BatchSize,
	)
	go publisher.Start()

	// Set up Gin router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	proposalHandler.RegisterRoutes(api)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	publisher.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	// Flush anything assigned while shutting down
	if _, err := publisher.PublishOnce(context.Background()); err != nil {
		log.Printf("Final registry publish failed: %v", err)
	}

	log.Println("Server exited")
}
