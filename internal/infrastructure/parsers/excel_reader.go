package parsers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"excel-import-service/internal/core/importer"
	apperrors "excel-import-service/internal/pkg/errors"
)

// ReaderConfig holds configuration for the Excel chunk reader.
type ReaderConfig struct {
	// ChunkSize is the maximum number of data rows per chunk.
	ChunkSize int

	// MaxFileSize is the maximum file size in bytes (0 = unlimited).
	MaxFileSize int64
}

// DefaultReaderConfig returns sensible defaults.
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		ChunkSize:   1000,
		MaxFileSize: 100 * 1024 * 1024, // 100 MB
	}
}

// ExcelReaderFactory opens chunk readers over XLSX files. It implements
// importer.ReaderFactory.
type ExcelReaderFactory struct {
	config *ReaderConfig
}

// NewExcelReaderFactory creates a factory with the given configuration.
func NewExcelReaderFactory(config *ReaderConfig) *ExcelReaderFactory {
	if config == nil {
		config = DefaultReaderConfig()
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultReaderConfig().ChunkSize
	}
	return &ExcelReaderFactory{config: config}
}

// Open opens the first sheet of an XLSX file for chunked streaming reads.
// A missing path is a FileNotFound condition; anything excelize cannot parse
// as a workbook, or a workbook without sheets, is a MalformedFile condition.
func (f *ExcelReaderFactory) Open(path string) (importer.ChunkReader, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileNotFound(path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if f.config.MaxFileSize > 0 && stat.Size() > f.config.MaxFileSize {
		return nil, apperrors.FileTooLarge(f.config.MaxFileSize / (1024 * 1024))
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.MalformedFile(err)
	}

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		file.Close()
		return nil, apperrors.MalformedFile(errors.New("no sheets found in workbook"))
	}

	rows, err := file.Rows(sheetName)
	if err != nil {
		file.Close()
		return nil, apperrors.MalformedFile(err)
	}

	return &ExcelChunkReader{
		file:      file,
		rows:      rows,
		chunkSize: f.config.ChunkSize,
	}, nil
}

// ExcelChunkReader streams the first sheet of a workbook as fixed-size chunks
// of raw rows. Memory held at any instant is one chunk, never the whole
// sheet. The first row is the header and is excluded from chunks but counted:
// the first data row carries line number 2. The sequence is forward-only and
// not restartable.
type ExcelChunkReader struct {
	file      *excelize.File
	rows      *excelize.Rows
	chunkSize int

	line          int
	headerSkipped bool
	exhausted     bool
}

// Next returns the next chunk of at most ChunkSize rows in file order, with
// the final chunk possibly smaller. It returns io.EOF once the sheet is
// exhausted.
func (r *ExcelChunkReader) Next(ctx context.Context) ([]importer.RawRow, error) {
	if r.exhausted {
		return nil, io.EOF
	}

	chunk := make([]importer.RawRow, 0, r.chunkSize)

	for r.rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cells, err := r.rows.Columns()
		if err != nil {
			return nil, apperrors.MalformedFile(err)
		}

		if !r.headerSkipped {
			r.headerSkipped = true
			r.line = 1
			continue
		}

		r.line++
		chunk = append(chunk, importer.RawRow{Line: r.line, Cells: cells})

		if len(chunk) == r.chunkSize {
			return chunk, nil
		}
	}

	if err := r.rows.Error(); err != nil {
		return nil, apperrors.MalformedFile(err)
	}

	r.exhausted = true
	if len(chunk) > 0 {
		return chunk, nil
	}
	return nil, io.EOF
}

// Close releases the row iterator and the underlying workbook.
func (r *ExcelChunkReader) Close() error {
	rowsErr := r.rows.Close()
	fileErr := r.file.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return fileErr
}
