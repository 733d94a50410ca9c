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

	"referral-service/internal/auth"
	"referral-service/internal/config"
	"referral-service/internal/database"
	"referral-service/internal/events"
	"referral-service/internal/handlers"
	"referral-service/internal/jobs"
	"referral-service/internal/repository"
	"referral-service/internal/services"
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
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis (event bus + leaderboard snapshot cache)
	rdb, err := database.ConnectRedis(cfg.GetRedisAddr(), cfg.Redis.Password)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	publisher := events.NewRedisPublisher(rdb)
	codeService := services.NewReferralCodeService(database.GetDB(), cfg.App.ReferralBaseURL)
	referralService := services.NewReferralService(database.GetDB(), codeService, publisher)
	leaderboardService := services.NewLeaderboardService(repo, cfg.App.PaginationLimit, cfg.App.OwnTopBonus)

	// Initialize handlers
	referralHandler := handlers.NewReferralHandler(referralService, cfg.App.PaginationLimit)
	codeHandler := handlers.NewReferralCodeHandler(codeService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, rdb, cfg.App.PaginationLimit)
	webhookHandler := handlers.NewWebhookHandler(repo)

	// Start leaderboard snapshot job
	snapshotJob := jobs.NewLeaderboardSnapshotJob(leaderboardService, rdb, cfg.App.PaginationLimit)
	snapshotJob.Start(cfg.App.SnapshotInterval)
	log.Println("Leaderboard snapshot job started")

	// Set up Gin router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API routes (protected)
	api := router.Group("/api/v1")
	api.Use(auth.AuthMiddleware())
	{
		// Referral program membership
		api.GET("/referrals", referralHandler.GetReferrals)
		api.POST("/referrals", referralHandler.JoinReferralProgram)

		// Referral code management
		codeRoutes := api.Group("/referral-codes")
		{
			codeRoutes.GET("", codeHandler.GetCodes)
			codeRoutes.POST("", codeHandler.CreateCode)
			codeRoutes.GET("/:id", codeHandler.GetCode)
			codeRoutes.PUT("/:id", codeHandler.UpdateCode)
			codeRoutes.DELETE("/:id", codeHandler.DeleteCode)
			codeRoutes.PUT("/:id/default", codeHandler.SetDefaultCode)
		}

		// Leaderboard
		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/summary", leaderboardHandler.GetSummary)
	}

	// Admin routes (protected)
	admin := router.Group("/api/v1/admin")
	admin.Use(auth.AuthMiddleware())
	{
		admin.GET("/summary", leaderboardHandler.GetAdminSummary)
	}

	// Webhook routes for sibling microservices
	router.GET("/webhooks/referral/totals", webhookHandler.GetReferralTotals)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
