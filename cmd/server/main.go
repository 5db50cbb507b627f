// Package main initializes and starts the keywarden API server,
// setting up configuration, logging, the database connection,
// repositories, services, handlers and graceful shutdown.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/breach"
	"github.com/keywarden/keywarden/internal/config"
	"github.com/keywarden/keywarden/internal/db"
	"github.com/keywarden/keywarden/internal/logger"
	"github.com/keywarden/keywarden/internal/repository"
	"github.com/keywarden/keywarden/internal/server/handler/http"
	"github.com/keywarden/keywarden/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if options.JWTSecret == "" {
		zapLogger.Fatal("a JWT secret is required; set -jwt-secret or JWT_SECRET")
	}

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	cleanerCtx, stopCleaner := context.WithCancel(context.Background())
	defer stopCleaner()
	db.StartSoftDeleteCleaner(cleanerCtx, postgresDB,
		time.Hour,       // interval
		30*24*time.Hour, // retention: 30 days
		zapLogger,
	)

	userRepo := repository.NewPostgresUserRepository(postgresDB)
	vaultRepo := repository.NewPostgresVaultRepository(postgresDB)
	categoryRepo := repository.NewPostgresCategoryRepository(postgresDB)
	logRepo := repository.NewPostgresLogRepository(postgresDB)

	// The server-side breach advisory reuses the same k-anonymity lookup
	// the client uses interactively.
	advisor := breach.NewAdvisor(nil, options.BreachURL, zapLogger)
	breachCount := func(ctx context.Context, password string) (int, error) {
		result := advisor.Check(ctx, password)
		if result.Unknown() {
			return 0, result.Err
		}
		return result.Count, nil
	}

	logService := service.NewLogService(logRepo)
	authService := service.NewAuthService(userRepo, options.JWTSecret, options.TokenTTL)
	vaultService := service.NewVaultService(vaultRepo, logService, breachCount, zapLogger)
	categoryService := service.NewCategoryService(categoryRepo)

	router := http.NewRouter(http.RouterConfig{
		Auth:         http.NewAuthHandler(authService, zapLogger),
		Vault:        http.NewVaultHandler(vaultService, zapLogger),
		Categories:   http.NewCategoryHandler(categoryService, zapLogger),
		Logs:         http.NewLogHandler(logService, zapLogger),
		JWTSecret:    options.JWTSecret,
		DecryptRPS:   0.5, // one attempt every two seconds per user
		DecryptBurst: 5,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Address,
		Handler: router,
	}

	go func() {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
