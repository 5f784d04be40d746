package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Ranjiththeeti/harass/internal/classifier"
	"github.com/Ranjiththeeti/harass/internal/config"
	"github.com/Ranjiththeeti/harass/internal/handler"
	"github.com/Ranjiththeeti/harass/internal/llm"
	"github.com/Ranjiththeeti/harass/internal/metrics"
	"github.com/Ranjiththeeti/harass/internal/middleware"
	"github.com/Ranjiththeeti/harass/internal/repository"
	"github.com/Ranjiththeeti/harass/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the YAML config file")
	flag.Parse()

	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	logger.Info("Starting Harassment Detection Service...")

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger, err = newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Initialize LLM client (providers in order, each rate limited and circuit broken)
	llmClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
		Providers: cfg.Providers,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM providers", zap.Error(err))
	}
	defer llmClient.Close()

	// Initialize repository
	if cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	repo, err := repository.New(ctx, repository.Options{
		Type: cfg.Database.Type,
		Path: cfg.Database.Path,
		URL:  cfg.Database.URL,
		Name: cfg.Database.Name,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	pipeline := classifier.NewPipeline(llmClient, classifier.Config{
		Timeout:  cfg.Classifier.Timeout,
		Keywords: cfg.Classifier.Keywords,
	}, m, logger)

	moderator := service.NewModerator(pipeline, repo, logger)
	apiHandler := handler.NewHandler(moderator, repo, m, logger)

	// Optional per-client limit on message creation
	var createLimit gin.HandlerFunc
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis is not reachable, rate limiting will fail open", zap.Error(err))
		}
		cancel()

		limiter := middleware.NewRedisLimiter(redisClient, cfg.Redis.RequestsPerMinute, time.Minute)
		createLimit = middleware.RateLimitMiddleware(limiter, logger)
		logger.Info("Message rate limiting enabled",
			zap.Int("requests_per_minute", cfg.Redis.RequestsPerMinute))
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.LoggerMiddleware(logger, m),
		middleware.CORSMiddleware(cfg.Server.CORSOrigins),
	)

	apiHandler.RegisterRoutes(router, createLimit)

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	modelName := "unknown"
	if name, ok := llmClient.GetModelInfo()["model"].(string); ok {
		modelName = name
	}

	logger.Info("Harassment Detection Service is running",
		zap.String("address", serverAddr),
		zap.String("database", cfg.Database.Type),
		zap.String("model", modelName))

	<-ctx.Done()

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newLogger builds the configured logger; "json" selects the production encoder
func newLogger(level, format string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = lvl

	return cfg.Build()
}
