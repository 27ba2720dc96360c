package importer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RawRow is one data row as read from the source sheet: the ordered cell
// values plus the 1-based line number within the file. The header is line 1,
// so the first data row is always line 2.
type RawRow struct {
	Line  int
	Cells []string
}

// Cell returns the value at the given column index and whether the cell is
// present. Short rows are common in spreadsheets (trailing empty cells are
// dropped by the reader), so positional access must never fault.
func (r RawRow) Cell(index int) (string, bool) {
	if index < 0 || index >= len(r.Cells) {
		return "", false
	}
	return r.Cells[index], true
}

// ValidatedRow is the canonical record produced by successful validation.
type ValidatedRow struct {
	Line   int
	FileID int64
	Name   string
	Date   time.Time
}

// RejectionRecord notes that a source line was not imported, with
// human-readable reasons in the order the rules were evaluated.
type RejectionRecord struct {
	Line    int
	Reasons []string
}

// ReportLine renders the record as one line of the error report.
func (r RejectionRecord) ReportLine() string {
	return fmt.Sprintf("%d - %s", r.Line, strings.Join(r.Reasons, ", "))
}

// RunState tracks the lifecycle of one import run. Transitions only move
// forward, except that a run oscillates between validating and inserting
// once per chunk.
type RunState string

const (
	StatePending    RunState = "pending"
	StateReading    RunState = "reading"
	StateValidating RunState = "validating"
	StateInserting  RunState = "inserting"
	StateFinalizing RunState = "finalizing"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// RunResult summarizes a completed (or abandoned) import run.
type RunResult struct {
	State      RunState
	Processed  int64
	Inserted   int
	Rejections []RejectionRecord
}

// ChunkReader yields the source file as a lazy sequence of bounded-size
// chunks in file order. The sequence is not restartable; reading the file
// again requires opening a new reader. Next returns io.EOF once the sheet
// is exhausted.
type ChunkReader interface {
	Next(ctx context.Context) ([]RawRow, error)
	Close() error
}

// ReaderFactory opens a ChunkReader for a stored source file.
type ReaderFactory interface {
	Open(path string) (ChunkReader, error)
}

// Validator checks and normalizes one raw row. On failure it returns a
// rejection carrying every applicable reason, not just the first.
type Validator interface {
	Validate(row RawRow) (ValidatedRow, *RejectionRecord)
}

// Inserter persists a validated batch, resolving duplicates against storage
// and within the batch. It returns the number of rows inserted and a
// rejection for each skipped duplicate. A returned error is fatal to the run.
type Inserter interface {
	InsertBatch(ctx context.Context, rows []ValidatedRow) (int, []RejectionRecord, error)
}

// ProgressStore publishes the cumulative count of rows attempted (rows pulled
// from the file so far, header excluded) under an import token. Writes are
// best-effort from the coordinator's perspective. Get returns the last value
// written, or an error for an unknown token.
type ProgressStore interface {
	Set(ctx context.Context, key string, processed int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// ReportStore persists the error report artifact and disposes of the source
// file once a run ends.
type ReportStore interface {
	SaveErrorReport(ctx context.Context, lines []string) error
	RemoveSource(ctx context.Context, path string) error
}
