package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"excel-import-service/internal/api"
	"excel-import-service/internal/core/domain"
	"excel-import-service/internal/core/services/excelimport"
	"excel-import-service/internal/infrastructure/cache"
	"excel-import-service/internal/infrastructure/database"
	"excel-import-service/internal/infrastructure/database/repositories"
	"excel-import-service/internal/infrastructure/queue"
	"excel-import-service/internal/infrastructure/storage"
	"excel-import-service/internal/pkg/config"
	"excel-import-service/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.Initialize(cfg.Environment)
	cfg.LogConfig()

	db, err := database.NewPostgresDB(cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.AutoMigrate(&domain.Row{}, &domain.User{}); err != nil {
		log.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	userRepo := repositories.NewUserRepository(db.DB, log)
	if err := userRepo.SeedAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Error("failed to seed admin account", slog.Any("error", err))
		os.Exit(1)
	}

	redisCache, err := cache.NewRedisCache(cfg, log)
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisCache.Close()

	blobStore, err := storage.NewLocalStorage(&storage.Config{BasePath: cfg.StorageBasePath}, log)
	if err != nil {
		log.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}

	asynqClient := queue.NewAsynqClient(cfg, log)
	defer asynqClient.Close()

	importService := excelimport.NewService(
		blobStore,
		asynqClient,
		nil, // runs execute on the worker process
		cache.NewProgressStore(redisCache),
		cfg.WorkerMaxRetries,
		logger.NewServiceLogger("excel-import"),
	)

	handler := api.NewImportHandler(importService, cfg.MaxFileSizeBytes(), log)
	router := api.NewRouter(cfg, handler, userRepo, log)

	srv := &http.Server{
		Addr:           cfg.ServerHost + ":" + cfg.ServerPort,
		Handler:        router,
		ReadTimeout:    5 * time.Minute, // large uploads over slow links
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
