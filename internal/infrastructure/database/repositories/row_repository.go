package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"excel-import-service/internal/core/domain"
	"excel-import-service/internal/core/importer"
)

const (
	reasonDuplicateInDB    = "Duplicate ID, already exists in DB"
	reasonDuplicateInChunk = "Duplicate ID in current chunk"
)

// RowRepository persists validated rows. It implements importer.Inserter.
type RowRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewRowRepository creates a new repository instance
func NewRowRepository(db *gorm.DB, logger *slog.Logger) *RowRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &RowRepository{
		db:     db,
		logger: logger,
	}
}

// InsertBatch resolves duplicates and bulk-inserts the survivors of one
// chunk as a single atomic unit: the existence check and the insert run in
// the same transaction, so no other writer can slip a conflicting file_id in
// between undetected. Within the chunk the first occurrence of a duplicated
// ID (by line order) is kept; later ones are rejected. If the unique index
// on file_id still fires, the transaction fails and the error is fatal.
func (r *RowRepository) InsertBatch(ctx context.Context, rows []importer.ValidatedRow) (int, []importer.RejectionRecord, error) {
	if len(rows) == 0 {
		return 0, nil, nil
	}

	var rejections []importer.RejectionRecord
	inserted := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fileIDs := make([]int64, 0, len(rows))
		for _, row := range rows {
			fileIDs = append(fileIDs, row.FileID)
		}

		var existingIDs []int64
		if err := tx.Model(&domain.Row{}).
			Where("file_id IN ?", fileIDs).
			Pluck("file_id", &existingIDs).
			Error; err != nil {
			return fmt.Errorf("failed to query existing ids: %w", err)
		}

		existing := make(map[int64]struct{}, len(existingIDs))
		for _, id := range existingIDs {
			existing[id] = struct{}{}
		}

		seenInChunk := make(map[int64]struct{}, len(rows))
		surviving := make([]domain.Row, 0, len(rows))

		for _, row := range rows {
			if _, ok := existing[row.FileID]; ok {
				rejections = append(rejections, importer.RejectionRecord{
					Line:    row.Line,
					Reasons: []string{reasonDuplicateInDB},
				})
				continue
			}

			if _, ok := seenInChunk[row.FileID]; ok {
				rejections = append(rejections, importer.RejectionRecord{
					Line:    row.Line,
					Reasons: []string{reasonDuplicateInChunk},
				})
				continue
			}

			seenInChunk[row.FileID] = struct{}{}
			surviving = append(surviving, domain.Row{
				FileID: row.FileID,
				Name:   row.Name,
				Date:   row.Date,
			})
		}

		if len(surviving) > 0 {
			if err := tx.Create(&surviving).Error; err != nil {
				return fmt.Errorf("failed to insert rows: %w", err)
			}
		}

		inserted = len(surviving)
		return nil
	})
	if err != nil {
		r.logger.Error("bulk insert failed",
			slog.Int("batch_size", len(rows)),
			slog.Any("error", err))
		return 0, nil, err
	}

	r.logger.Debug("chunk inserted",
		slog.Int("batch_size", len(rows)),
		slog.Int("inserted", inserted),
		slog.Int("rejected", len(rejections)))

	return inserted, rejections, nil
}

// CountByFileIDs returns how many of the given business IDs are persisted.
func (r *RowRepository) CountByFileIDs(ctx context.Context, fileIDs []int64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.Row{}).
		Where("file_id IN ?", fileIDs).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("database query failed: %w", err)
	}

	return count, nil
}
