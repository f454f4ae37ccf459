package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenxdev/internal/config"
	"tenxdev/internal/database"
	"tenxdev/internal/handlers"
	"tenxdev/internal/repository"
	"tenxdev/internal/security"
	"tenxdev/internal/service"
)

func main() {
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	nonceRepo := repository.NewNonceRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	// Services
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.SessionDuration)
	nonceService := service.NewNonceService(nonceRepo, cfg.NonceDuration)
	authService := service.NewAuthService(userRepo, sessionRepo, nonceService, tokens, cfg.BcryptCost, cfg.ResetDuration)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	codegenService := service.NewCodegenService(
		service.NewChatClient(cfg.CodegenBaseURL, cfg.CodegenAPIKey, cfg.CodegenModel),
		requestRepo,
	)

	// Seed the well-known accounts if configured
	if err := authService.EnsureUser(cfg.SeedUserEmail, "john", cfg.SeedUserPassword, false); err != nil {
		log.Printf("Warning: failed to seed user account: %v", err)
	}
	if err := authService.EnsureUser(cfg.SeedAdminEmail, "admin", cfg.SeedAdminPassword, true); err != nil {
		log.Printf("Warning: failed to seed admin account: %v", err)
	}

	// Handlers
	limiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(authService, limiter)
	authHandler := handlers.NewAuthHandler(authService, nonceService, emailService)
	userHandler := handlers.NewUserHandler(requestRepo, codegenService)
	adminHandler := handlers.NewAdminHandler(userRepo, requestRepo)

	mux := handlers.NewRouter(middleware, authHandler, userHandler, adminHandler)
	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background expiry sweeps; validation re-checks expiry anyway
	go sweepExpired(authService, nonceService)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// sweepExpired periodically removes expired sessions and nonces
func sweepExpired(authService *service.AuthService, nonceService *service.NonceService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := nonceService.SweepExpired(); err != nil {
			log.Printf("Error cleaning up expired nonces: %v", err)
		}
	}
}
