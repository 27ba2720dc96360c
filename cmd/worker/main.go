package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"excel-import-service/internal/core/importer"
	"excel-import-service/internal/core/services/excelimport"
	"excel-import-service/internal/core/validator"
	"excel-import-service/internal/infrastructure/cache"
	"excel-import-service/internal/infrastructure/database"
	"excel-import-service/internal/infrastructure/database/repositories"
	"excel-import-service/internal/infrastructure/parsers"
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

	db, err := database.NewPostgresDB(cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

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

	// Sweep uploads orphaned by runs that never completed, such as a host
	// dying between store and dispatch.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := blobStore.CleanupOldUploads(context.Background(), 24*time.Hour); err != nil {
				log.Warn("upload cleanup failed", slog.Any("error", err))
			}
		}
	}()

	readerFactory := parsers.NewExcelReaderFactory(&parsers.ReaderConfig{
		ChunkSize:   cfg.ImportChunkSize,
		MaxFileSize: cfg.MaxFileSizeBytes(),
	})
	progressStore := cache.NewProgressStore(redisCache)

	coordinator := importer.NewCoordinator(
		readerFactory,
		validator.New(),
		repositories.NewRowRepository(db.DB, log),
		progressStore,
		blobStore,
		logger.NewServiceLogger("import-run"),
	)

	importService := excelimport.NewService(
		blobStore,
		nil, // the worker consumes tasks, it never enqueues
		coordinator,
		progressStore,
		cfg.WorkerMaxRetries,
		logger.NewServiceLogger("excel-import"),
	)

	server := queue.NewAsynqServer(cfg, log)
	server.HandleFunc(queue.TaskTypeImportRows, importService.HandleImportTask)

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks.
	if err := server.Start(); err != nil {
		log.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}
