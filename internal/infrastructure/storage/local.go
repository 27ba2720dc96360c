package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fixed, well-known location of the error report, relative to the base path.
// Each run overwrites the previous report.
const errorReportRelPath = "import-errors/result.txt"

// LocalStorage manages uploaded spreadsheets and the import error report on
// the local filesystem. It implements importer.ReportStore.
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// Config for local storage
type Config struct {
	BasePath string // Base directory (e.g., "/tmp/excel-import")
}

// FileMetadata contains information about a stored upload
type FileMetadata struct {
	ID           string
	OriginalName string
	StoredPath   string
	Size         int64
	Hash         string
	CreatedAt    time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *Config, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// SaveUpload stores an uploaded file under imports/<filename> and returns its
// metadata. The path is deterministic per filename: the import token is
// derived from the stored path, and re-uploading the same file must yield the
// same token so the queue can deduplicate concurrent runs. An upload with a
// name already on disk overwrites it.
func (s *LocalStorage) SaveUpload(ctx context.Context, filename string, reader io.Reader) (*FileMetadata, error) {
	uploadID := uuid.New().String()

	uploadDir := filepath.Join(s.basePath, "imports")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	safeName := filepath.Base(filename)
	destPath := filepath.Join(uploadDir, safeName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	// Calculate hash while copying
	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(destFile, hash), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	metadata := &FileMetadata{
		ID:           uploadID,
		OriginalName: filename,
		StoredPath:   destPath,
		Size:         size,
		Hash:         hex.EncodeToString(hash.Sum(nil)),
		CreatedAt:    time.Now(),
	}

	s.logger.Info("file uploaded successfully",
		slog.String("upload_id", uploadID),
		slog.String("filename", filename),
		slog.Int64("size", size))

	return metadata, nil
}

// SaveErrorReport writes the error report to its fixed path, one line per
// rejected row, replacing any previous report.
func (s *LocalStorage) SaveErrorReport(ctx context.Context, lines []string) error {
	reportPath := s.ErrorReportPath()

	if err := os.MkdirAll(filepath.Dir(reportPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	content := strings.Join(lines, "\n")
	if err := os.WriteFile(reportPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write error report: %w", err)
	}

	s.logger.Info("error report saved",
		slog.String("path", reportPath),
		slog.Int("lines", len(lines)))

	return nil
}

// ErrorReportPath returns the fixed location of the error report.
func (s *LocalStorage) ErrorReportPath() string {
	return filepath.Join(s.basePath, errorReportRelPath)
}

// RemoveSource deletes a stored source file and its upload directory once a
// run has ended. Paths outside the base directory are refused.
func (s *LocalStorage) RemoveSource(ctx context.Context, path string) error {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %s is outside storage base", path)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove source file: %w", err)
	}

	s.logger.Debug("source file removed",
		slog.String("path", path))

	return nil
}

// CleanupOldUploads removes stored uploads older than the given duration.
// Abandoned uploads accumulate when a host dies between store and run.
func (s *LocalStorage) CleanupOldUploads(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	importsDir := filepath.Join(s.basePath, "imports")

	entries, err := os.ReadDir(importsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filePath := filepath.Join(importsDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filePath); err != nil {
				s.logger.Warn("failed to remove old upload",
					slog.String("path", filePath),
					slog.Any("error", err))
			}
		}
	}

	return nil
}
