// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"

	"commauth/internal/api/handlers"
	"commauth/internal/api/middleware"
	"commauth/internal/auth"
	"commauth/internal/config"
	"commauth/internal/email"
	"commauth/internal/policy"
	"commauth/internal/repository"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes and their handlers. The returned
// service is also used by the scheduler for reset-code maintenance.
func SetupRoutes(cfg *config.Config, db *sql.DB, policyProvider *policy.Provider) (*gin.Engine, *auth.Service) {
	// Create router
	r := gin.Default()

	// Apply rate limiting to all routes
	r.Use(middleware.NewRateLimiter(cfg).Middleware())

	// Initialize repositories
	credRepo := repository.NewCredentialRepository(db)
	historyRepo := repository.NewPasswordHistoryRepository(db)
	resetCodeRepo := repository.NewResetCodeRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	tokens := auth.NewTokenManager(cfg.Auth)
	authService := auth.NewService(credRepo, historyRepo, resetCodeRepo, policyProvider, tokens)
	emailService := email.NewService(cfg.Email)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokens, credRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(authService, auditRepo, emailService, cfg)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/change-password", authMiddleware.AuthRequired(), authHandler.ChangePassword)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/verify-reset", authHandler.VerifyResetCode)
			authGroup.POST("/reset-password", authHandler.CompleteReset)
		}
	}

	return r, authService
}
