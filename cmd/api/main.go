// Package main provides the entry point for the credential service API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"commauth/internal/api/routes"
	"commauth/internal/config"
	"commauth/internal/database"
	"commauth/internal/policy"
	"commauth/internal/validation"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	// Load environment file
	if err := godotenv.Load(*envFile); err != nil && *envFile == ".env" {
		log.Printf("Warning: %v", err)
	}

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize validators
	validation.Initialize()

	// Load the password policy and the common-password list
	policyProvider, err := policy.NewProvider(cfg.Policy.ConfigPath, cfg.Policy.CommonPasswordsPath)
	if err != nil {
		log.Fatalf("Failed to load password policy: %v", err)
	}

	// Setup routes
	router, authService := routes.SetupRoutes(cfg, db, policyProvider)

	// Scheduled maintenance: re-read the policy files so edits take effect
	// without a restart, and purge expired reset codes.
	scheduler := cron.New()
	reloadSpec := fmt.Sprintf("@every %s", cfg.Policy.ReloadInterval)
	if _, err := scheduler.AddFunc(reloadSpec, func() {
		if err := policyProvider.Reload(); err != nil {
			log.Printf("Failed to reload password policy: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule policy reload: %v", err)
	}
	if _, err := scheduler.AddFunc("@every 10m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := authService.Resets().PurgeExpired(ctx); err != nil {
			log.Printf("Failed to purge expired reset codes: %v", err)
		} else if n > 0 {
			log.Printf("Purged %d expired reset codes", n)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule reset code purge: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Convert port string to int
	port, err := strconv.Atoi(cfg.API.Port)
	if err != nil {
		log.Fatalf("Invalid port number: %v", err)
	}

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
