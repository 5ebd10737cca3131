package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shakthivel10/FSND/internal/api"
	"github.com/shakthivel10/FSND/internal/config"
	"github.com/shakthivel10/FSND/internal/database"
	"github.com/shakthivel10/FSND/internal/handlers"
	"github.com/shakthivel10/FSND/internal/logging"
	"github.com/shakthivel10/FSND/internal/metrics"
	"github.com/shakthivel10/FSND/internal/middleware"
	"github.com/shakthivel10/FSND/internal/repository"
	"github.com/shakthivel10/FSND/internal/services"
	"github.com/shakthivel10/FSND/migrations"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const version = "1.0.0"

func runMigrations(cfg *config.Config) error {
	db, err := sql.Open("postgres", cfg.Database.ToDBConfig().URL())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrations.Up(db); err != nil {
		return err
	}
	fmt.Println("Migrations applied successfully.")
	return nil
}

func main() {
	// CLI flags
	configPath := pflag.StringP("config", "c", "", "Path to config file")
	migrate := pflag.BoolP("migrate", "m", false, "Run database migrations and exit")
	seed := pflag.Bool("seed", false, "Insert the Water drink if missing")
	showVersion := pflag.BoolP("version", "v", false, "Print version and exit")
	port := pflag.IntP("port", "p", 5000, "HTTP server listen port")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")

	pflag.Parse()

	if *showVersion {
		fmt.Println("coffeeshopd version " + version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *migrate {
		if err := runMigrations(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Override config with CLI flags if set
	if pflag.Lookup("port").Changed {
		cfg.Server.Port = *port
	}
	if pflag.Lookup("log-level").Changed {
		cfg.Logging.Level = *logLevel
	}

	// Initialize logger
	logger, err := logging.InitLogger(logging.LoggingConfig(cfg.Logging))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	durations, err := cfg.Auth.ParseDurations()
	if err != nil {
		logger.Fatal("Invalid auth durations", zap.Error(err))
	}
	if cfg.Auth.JWKSURL == "" {
		logger.Fatal("auth.domain or auth.jwks_url must be set")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Token verification
	keySet := services.NewKeySet(cfg.Auth.JWKSURL,
		services.WithCacheTTL(durations.JWKSCacheTTL),
		services.WithMaxStale(durations.JWKSMaxStale),
		services.WithMinRefreshInterval(durations.JWKSMinRefreshInterval),
		services.WithFetchTimeout(durations.JWKSFetchTimeout),
		services.WithKeySetLogger(logger),
		services.WithKeySetMetrics(m),
	)
	authorizer, err := services.NewTokenAuthorizer(keySet, services.AuthorizerConfig{
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		Algorithms: cfg.Auth.Algorithms,
		Leeway:     durations.Leeway,
	}, services.WithAuthorizerLogger(logger), services.WithAuthorizerMetrics(m))
	if err != nil {
		logger.Fatal("Invalid auth configuration", zap.Error(err))
	}

	// Warm the key cache; lookups retry on demand if this fails
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), durations.JWKSFetchTimeout)
	if err := keySet.Refresh(warmCtx); err != nil {
		logger.Warn("Initial signing key fetch failed", zap.Error(err))
	}
	cancelWarm()

	// Initialize database connection
	db, err := database.NewPostgresDB(cfg.Database.ToDBConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	drinkRepo := repository.NewDrinkRepository(db, logger)
	if *seed {
		inserted, err := drinkRepo.Seed(context.Background())
		if err != nil {
			logger.Fatal("Failed to seed drinks", zap.Error(err))
		}
		logger.Info("Drinks seeded", zap.Bool("inserted", inserted))
	}

	// Optional rate limiting
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		rateLimiter = middleware.NewRateLimiter(redisClient,
			middleware.WithBucketSize(cfg.RateLimit.BucketSize),
			middleware.WithRefillRate(cfg.RateLimit.RefillRate),
			middleware.WithWindow(cfg.RateLimit.Window),
		)
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupDrinkRoutes(router, api.DrinkRoutes{
		Common: api.Common{
			Logger:    logger,
			AccessLog: logrus.New(),
			Metrics:   m,
			Gatherer:  registry,
		},
		Drinks:      handlers.NewDrinkHandler(drinkRepo),
		Status:      handlers.NewStatusHandler(version, authorizer, keySet),
		Authorizer:  authorizer,
		RateLimiter: rateLimiter,
		CORSOrigins: cfg.CORS.AllowOrigins,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("issuer", cfg.Auth.Issuer),
		zap.String("audience", cfg.Auth.Audience),
		zap.Bool("rate_limit", rateLimiter != nil))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}
}
