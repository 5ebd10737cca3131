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
	"github.com/shakthivel10/FSND/internal/api"
	"github.com/shakthivel10/FSND/internal/config"
	"github.com/shakthivel10/FSND/internal/database"
	"github.com/shakthivel10/FSND/internal/handlers"
	"github.com/shakthivel10/FSND/internal/logging"
	"github.com/shakthivel10/FSND/internal/metrics"
	"github.com/shakthivel10/FSND/internal/repository"
	"github.com/shakthivel10/FSND/migrations"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to config file")
	migrate := pflag.BoolP("migrate", "m", false, "Run database migrations and exit")
	port := pflag.IntP("port", "p", 5000, "HTTP server listen port")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	pflag.Parse()

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if pflag.Lookup("port").Changed {
		cfg.Server.Port = *port
	}
	if pflag.Lookup("log-level").Changed {
		cfg.Logging.Level = *logLevel
	}

	if *migrate {
		db, err := sql.Open("postgres", cfg.Database.ToDBConfig().URL())
		if err == nil {
			err = migrations.Up(db)
			_ = db.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied successfully.")
		os.Exit(0)
	}

	logger, err := logging.InitLogger(logging.LoggingConfig(cfg.Logging))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewPostgresDB(cfg.Database.ToDBConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gdb, err := database.NewGormDB(db)
	if err != nil {
		logger.Fatal("Failed to open gorm session", zap.Error(err))
	}

	booking := handlers.NewBookingHandler(
		repository.NewVenueRepository(gdb, logger),
		repository.NewArtistRepository(gdb, logger),
		repository.NewShowRepository(gdb, logger),
	)

	registry := prometheus.NewRegistry()
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupBookingRoutes(router, booking, api.Common{
		Logger:    logger,
		AccessLog: logrus.New(),
		Metrics:   metrics.New(registry),
		Gatherer:  registry,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

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

	logger.Info("Starting fyyur", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}
}
