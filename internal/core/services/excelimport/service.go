package excelimport

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"excel-import-service/internal/core/importer"
	"excel-import-service/internal/infrastructure/queue"
	"excel-import-service/internal/infrastructure/storage"
	apperrors "excel-import-service/internal/pkg/errors"
)

// progressKeyPrefix namespaces import counters in Redis. The full key is the
// public import token handed back to the caller.
const progressKeyPrefix = "excel_import_progress_"

// ProgressKey derives the import token from a stored file path. The same
// stored path always yields the same token, which is what lets the queue
// deduplicate concurrent runs for one file.
func ProgressKey(storedPath string) string {
	sum := md5.Sum([]byte(storedPath))
	return progressKeyPrefix + hex.EncodeToString(sum[:])
}

// ImportTicket is the receipt for an accepted upload. Duplicate marks
// submissions answered with the key of an already-scheduled run.
type ImportTicket struct {
	UploadID    string
	ProgressKey string
	Duplicate   bool
}

// Service accepts spreadsheet uploads, hands them to the queue, and executes
// queued runs through the import coordinator.
type Service struct {
	storage     *storage.LocalStorage
	client      *queue.AsynqClient
	coordinator *importer.Coordinator
	progress    importer.ProgressStore
	maxRetries  int
	logger      *slog.Logger
}

// NewService creates the import service. The client may be nil on worker
// processes that only consume, and the coordinator may be nil on API
// processes that only enqueue.
func NewService(
	store *storage.LocalStorage,
	client *queue.AsynqClient,
	coordinator *importer.Coordinator,
	progress importer.ProgressStore,
	maxRetries int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		storage:     store,
		client:      client,
		coordinator: coordinator,
		progress:    progress,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

// StartAsyncImport persists the upload and schedules a background run for it.
// It returns as soon as the task is accepted; rows are processed by a worker.
func (s *Service) StartAsyncImport(ctx context.Context, filename string, reader io.Reader) (*ImportTicket, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" {
		return nil, apperrors.UnsupportedFormat(ext)
	}

	meta, err := s.storage.SaveUpload(ctx, filename, reader)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to store upload")
	}

	progressKey := ProgressKey(meta.StoredPath)

	task, err := queue.NewImportRowsTask(meta.StoredPath, progressKey, s.maxRetries)
	if err != nil {
		return nil, apperrors.QueueError(err)
	}

	if _, err := s.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// A run for this exact stored file is already pending or active;
			// the caller gets the key of the run in flight.
			s.logger.Info("import already scheduled",
				slog.String("filename", filename),
				slog.String("progress_key", progressKey))
			return &ImportTicket{
				UploadID:    meta.ID,
				ProgressKey: progressKey,
				Duplicate:   true,
			}, nil
		}
		return nil, apperrors.QueueError(err)
	}

	s.logger.Info("import scheduled",
		slog.String("upload_id", meta.ID),
		slog.String("filename", filename),
		slog.Int64("size", meta.Size),
		slog.String("progress_key", progressKey))

	return &ImportTicket{
		UploadID:    meta.ID,
		ProgressKey: progressKey,
	}, nil
}

// GetProgress returns the cumulative number of rows handed to processing for
// the given import token.
func (s *Service) GetProgress(ctx context.Context, progressKey string) (int64, error) {
	if !strings.HasPrefix(progressKey, progressKeyPrefix) {
		return 0, apperrors.ProgressNotFound(progressKey)
	}
	return s.progress.Get(ctx, progressKey)
}

// HandleImportTask is the queue handler for import runs. Returning an error
// hands the task back to the queue for retry with backoff.
func (s *Service) HandleImportTask(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseImportRowsPayload(task)
	if err != nil {
		// A payload that cannot be decoded will never succeed.
		return asynq.SkipRetry
	}

	result, err := s.coordinator.Run(ctx, payload.FilePath, payload.ProgressKey)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeFileNotFound) {
			// The source was already consumed and deleted by an earlier
			// attempt; retrying cannot bring it back.
			s.logger.Warn("source file gone, dropping task",
				slog.String("file_path", payload.FilePath))
			return asynq.SkipRetry
		}
		return err
	}

	s.logger.Info("import task finished",
		slog.String("progress_key", payload.ProgressKey),
		slog.String("state", string(result.State)),
		slog.Int64("rows_processed", result.Processed),
		slog.Int("rows_inserted", result.Inserted),
		slog.Int("rows_rejected", len(result.Rejections)))

	return nil
}
