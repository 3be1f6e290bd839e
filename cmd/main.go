package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/criptofacil/criptofacil/config"
	"github.com/criptofacil/criptofacil/data"
	"github.com/criptofacil/criptofacil/data/cache"
	"github.com/criptofacil/criptofacil/data/catalogfile"
	"github.com/criptofacil/criptofacil/data/repository/postgres"
	"github.com/criptofacil/criptofacil/data/session"
	"github.com/criptofacil/criptofacil/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/criptofacil/criptofacil/internal/externalApi/coingeckoApi"
	"github.com/criptofacil/criptofacil/internal/reportGenerator/xlsxGenerator"
	"github.com/criptofacil/criptofacil/internal/scheduler"
	"github.com/criptofacil/criptofacil/internal/service/portfolioService"
	"github.com/criptofacil/criptofacil/internal/transport/httpapi"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	sessionStore := session.NewRedisStore(redisClient, cfg)

	catalogStore := catalogfile.NewStore(cfg.Catalog.SnapshotFile)

	coingeckoClient := coingeckoApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	var cloudStorage portfolioService.CloudStorage
	if cfg.Backup.Enabled {
		cloudStorage = googleDriveApi.New(ctx, cfg)
	}

	portfolioSrv := portfolioService.New(
		pgRepo,
		redisCache,
		sessionStore,
		coingeckoClient,
		catalogStore,
		reportGenerator,
		cloudStorage,
	)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh price catalog", portfolioSrv.RefreshPriceCatalog, cfg.Jobs.RefreshCatalogInterval, true)
	if cfg.Backup.Enabled {
		sched.NewCrontabJob("cloud backup", portfolioSrv.BackupData, cfg.Jobs.BackupCrontab, false)
	}
	sched.Start()
	defer sched.Stop()

	server := httpapi.NewServer(cfg, portfolioSrv)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
