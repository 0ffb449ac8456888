package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/question-bank-service/internal/config"
	"github.com/SAP-F-2025/question-bank-service/internal/events"
	"github.com/SAP-F-2025/question-bank-service/internal/handlers"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/tokens"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
	"github.com/SAP-F-2025/question-bank-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, caching disabled", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoConfig := postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	}
	repoManager := postgres.NewRepositoryManager(repoConfig)
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Initialize event publisher
	eventPublisher, err := events.NewEventPublisher(events.Config{
		KafkaBrokers: cfg.Events.KafkaBrokers,
		Topic:        cfg.Events.Topic,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		Repo:           repo,
		Logger:         slogLogger,
		Validator:      validator.New(),
		EventPublisher: eventPublisher,
		TokenRegistry:  tokens.DefaultRegistry(),
		TokenSigner:    tokens.NewSigner(cfg.Tokens.Secret, cfg.Tokens.TTL),
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	authMiddleware := handlers.NewCasdoorAuthMiddleware(cfg.Casdoor, repo.User(), logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, authMiddleware)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// Closes the database and Redis connections
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown repositories", "error", err)
	}

	logger.Info("Server exited")
}
