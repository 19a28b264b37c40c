package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/keyadjusting/contractor-portal/internal/clickup"
	"github.com/keyadjusting/contractor-portal/internal/config"
	"github.com/keyadjusting/contractor-portal/internal/constants"
	"github.com/keyadjusting/contractor-portal/internal/database"
	"github.com/keyadjusting/contractor-portal/internal/handlers"
	"github.com/keyadjusting/contractor-portal/internal/middleware"
	"github.com/keyadjusting/contractor-portal/internal/repository"
	"github.com/keyadjusting/contractor-portal/internal/services"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup legacy session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Wire services explicitly; no package-level singletons
	userRepo := repository.NewUserRepository(database.GetDB())
	tokenService := services.NewTokenService(
		cfg.JWTSecret,
		cfg.JWTRefreshSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	authService := services.NewAuthService(userRepo, tokenService)
	claimsClient := clickup.NewClient(cfg.ClickUpAPIKey, cfg.ClickUpTeamID)

	authenticator := middleware.NewAuthenticator(tokenService)
	authHandler := handlers.NewAuthHandler(authService, cfg.IsProduction())
	claimHandler := handlers.NewClaimHandler(claimsClient)
	adminHandler := handlers.NewAdminHandler(userRepo)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Contractor portal is running",
		})
	})

	// Auth routes (public)
	auth := r.Group("/auth")
	{
		// Login entry point; the web frontend renders the actual form.
		auth.GET("/login", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "login required"})
		})
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.GET("/logout", authHandler.Logout)
		auth.POST("/logout-all", authHandler.LogoutAll)
		auth.POST("/refresh-token", authHandler.RefreshToken)
		auth.POST("/delete-account", authenticator.RequireAuth(), authHandler.DeleteAccount)
	}

	// Claim routes (authenticated)
	claimRoutes := r.Group("/claims")
	claimRoutes.Use(authenticator.RequireAuth())
	{
		claimRoutes.GET("/:id", claimHandler.GetClaim)
		claimRoutes.POST("/:id/documents", claimHandler.UploadDocument)
	}

	dashboard := r.Group("/dashboard")
	dashboard.Use(authenticator.RequireAuth())
	{
		dashboard.GET("/claims", claimHandler.ListClaims)
	}

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(authenticator.RequireAdmin())
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
	}

	// Start server
	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
