package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"childsubs/internal/config"
	"childsubs/internal/database"
	"childsubs/internal/handlers"
	"childsubs/internal/logger"
	"childsubs/internal/repository"
	"childsubs/internal/security"
	"childsubs/internal/service"
	"childsubs/internal/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Format: cfg.LogFormat})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen straight away; requests get the startup report until the app is ready
	startup := handlers.NewStartup(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepTemplates,
		handlers.StepServices,
		handlers.StepCatalog,
	)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      startup,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	startup.Begin(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	startup.Complete(handlers.StepDatabase)
	log.Info("database connection established", zap.String("type", cfg.DatabaseType))

	startup.Begin(handlers.StepMigrations)
	applied, err := db.RunMigrations(ctx)
	if err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	startup.Complete(handlers.StepMigrations)
	log.Info("migrations completed", zap.Strings("applied", applied))

	startup.Begin(handlers.StepTemplates)
	tmpl, err := templates.Load()
	if err != nil {
		log.Fatal("failed to load templates", zap.Error(err))
	}
	startup.Complete(handlers.StepTemplates)

	startup.Begin(handlers.StepServices)
	userRepo := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, log)
	if err != nil {
		log.Fatal("failed to initialize email service", zap.Error(err))
	}
	if !emailService.IsEnabled() {
		log.Info("SES_FROM_EMAIL not set, emails disabled")
	}

	authService := service.NewAuthService(userRepo, emailService, cfg.SessionDuration, log)
	childService := service.NewChildService(childRepo, log)
	commerceService := service.NewCommerceService(productRepo, cartRepo, log)
	subscriptionService := service.NewSubscriptionService(orderRepo, subRepo, log)
	checkoutService := service.NewCheckoutService(childService, commerceService, commerceService, orderRepo, subscriptionService, emailService, log)
	adminService := service.NewAdminService(childRepo, subRepo)
	backupService := service.NewBackupService(db, log)

	nonces := security.NewNonceManager(cfg.NonceSecret, cfg.NonceTTL)
	limiter := security.NewRateLimiter(ctx, cfg.RateLimitRequests, cfg.RateLimitWindow)

	oauthProviders := map[string]handlers.OAuthProvider{}
	if cfg.GoogleOAuthEnabled() {
		oauthProviders["google"] = handlers.OAuthProvider{
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		}
	}

	middleware := handlers.NewMiddleware(authService, limiter, log)
	router := handlers.NewRouter(middleware, handlers.Handlers{
		Auth:     handlers.NewAuthHandler(authService, tmpl, oauthProviders, cfg.OAuthRedirectBaseURL, log),
		Children: handlers.NewChildrenHandler(childService, nonces, tmpl, log),
		Checkout: handlers.NewCheckoutHandler(checkoutService, commerceService, childService, nonces, tmpl, log),
		Shop:     handlers.NewShopHandler(commerceService, tmpl, log),
		Admin:    handlers.NewAdminHandler(adminService, commerceService, backupService, tmpl, log),
		Health:   handlers.NewHealthHandler(db, log),
	}, cfg.StaticFilesPath)
	startup.Complete(handlers.StepServices)

	startup.Begin(handlers.StepCatalog)
	if err := commerceService.SeedCatalog(ctx); err != nil {
		log.Warn("failed to seed catalogue", zap.Error(err))
	}
	startup.Complete(handlers.StepCatalog)

	startup.Ready(router)
	log.Info("server ready", zap.String("url", cfg.AppBaseURL))

	go cleanupExpiredSessions(ctx, authService, log)

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, log *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.CleanupExpiredSessions(ctx); err != nil {
				log.Error("error cleaning up expired sessions", zap.Error(err))
			} else {
				log.Debug("expired sessions cleaned up")
			}
		}
	}
}
