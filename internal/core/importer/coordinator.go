package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// Coordinator drives one import run: it pulls chunks from the reader, feeds
// them through the validator and the inserter, publishes the processed-rows
// counter after each chunk, and accumulates rejections in file order. It
// performs no validation or storage logic itself.
type Coordinator struct {
	readers   ReaderFactory
	validator Validator
	inserter  Inserter
	progress  ProgressStore
	reports   ReportStore
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator over the given collaborators.
func NewCoordinator(
	readers ReaderFactory,
	validator Validator,
	inserter Inserter,
	progress ProgressStore,
	reports ReportStore,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		readers:   readers,
		validator: validator,
		inserter:  inserter,
		progress:  progress,
		reports:   reports,
		logger:    logger,
	}
}

// runAccumulator holds the mutable state of one run. It is created per run
// and never shared, so concurrent runs over different files are isolated.
type runAccumulator struct {
	state      RunState
	processed  int64
	inserted   int
	rejections []RejectionRecord
}

func newRunAccumulator() *runAccumulator {
	return &runAccumulator{state: StatePending}
}

// setState advances the run state. Terminal states are sticky.
func (a *runAccumulator) setState(s RunState) {
	if a.state == StateDone || a.state == StateFailed {
		return
	}
	a.state = s
}

func (a *runAccumulator) result() *RunResult {
	return &RunResult{
		State:      a.state,
		Processed:  a.processed,
		Inserted:   a.inserted,
		Rejections: a.rejections,
	}
}

// Run executes one import run for a stored source file. The error report is
// flushed and the source file discarded on every exit path, including
// abandoned runs; a run with zero successful rows is not an error.
func (c *Coordinator) Run(ctx context.Context, filePath, progressKey string) (*RunResult, error) {
	acc := newRunAccumulator()

	c.logger.Info("import run started",
		slog.String("file_path", filePath),
		slog.String("progress_key", progressKey))

	runErr := c.process(ctx, filePath, progressKey, acc)

	// Rejections surface in file order. Within a chunk the inserter's
	// duplicate rejections are discovered after the validation ones, so the
	// accumulated order is not line order until sorted.
	sort.SliceStable(acc.rejections, func(i, j int) bool {
		return acc.rejections[i].Line < acc.rejections[j].Line
	})

	// Finalizing happens whether the run completed or was abandoned.
	acc.setState(StateFinalizing)

	if err := c.flushReport(ctx, acc); err != nil && runErr == nil {
		runErr = err
	}
	c.discardSource(ctx, filePath)

	if runErr != nil {
		acc.setState(StateFailed)
		c.logger.Error("import run failed",
			slog.String("file_path", filePath),
			slog.Int64("rows_processed", acc.processed),
			slog.Any("error", runErr))
		return acc.result(), runErr
	}

	acc.setState(StateDone)
	c.logger.Info("import run completed",
		slog.String("file_path", filePath),
		slog.Int64("rows_processed", acc.processed),
		slog.Int("rows_inserted", acc.inserted),
		slog.Int("rows_rejected", len(acc.rejections)))

	return acc.result(), nil
}

// process reads the file chunk by chunk. Chunk N+1 is not read until chunk N
// has been validated and inserted, which bounds memory to one chunk and keeps
// the progress counter monotonic at chunk granularity.
func (c *Coordinator) process(ctx context.Context, filePath, progressKey string, acc *runAccumulator) error {
	acc.setState(StateReading)

	reader, err := c.readers.Open(filePath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	for {
		chunk, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
		if len(chunk) == 0 {
			continue
		}

		acc.processed += int64(len(chunk))
		c.publishProgress(ctx, progressKey, acc.processed)

		acc.setState(StateValidating)
		valid := make([]ValidatedRow, 0, len(chunk))
		for _, raw := range chunk {
			row, rejection := c.validator.Validate(raw)
			if rejection != nil {
				acc.rejections = append(acc.rejections, *rejection)
				continue
			}
			valid = append(valid, row)
		}

		acc.setState(StateInserting)
		if len(valid) > 0 {
			inserted, rejected, err := c.inserter.InsertBatch(ctx, valid)
			if err != nil {
				// The duplicate pre-check was bypassed or the transaction
				// could not commit; dropping the chunk silently would corrupt
				// the import, so the whole run aborts.
				return fmt.Errorf("insert chunk: %w", err)
			}
			acc.inserted += inserted
			acc.rejections = append(acc.rejections, rejected...)
		}
	}
}

// publishProgress is fire-and-forget: progress visibility is best-effort,
// correctness of the import is not.
func (c *Coordinator) publishProgress(ctx context.Context, key string, processed int64) {
	if err := c.progress.Set(ctx, key, processed); err != nil {
		c.logger.Warn("progress update failed",
			slog.String("progress_key", key),
			slog.Int64("processed", processed),
			slog.Any("error", err))
	}
}

// flushReport writes the error report artifact. No rejections, no report.
func (c *Coordinator) flushReport(ctx context.Context, acc *runAccumulator) error {
	if len(acc.rejections) == 0 {
		return nil
	}

	lines := make([]string, 0, len(acc.rejections))
	for _, rejection := range acc.rejections {
		lines = append(lines, rejection.ReportLine())
	}

	if err := c.reports.SaveErrorReport(ctx, lines); err != nil {
		return fmt.Errorf("save error report: %w", err)
	}

	c.logger.Info("error report written",
		slog.Int("rejected_rows", len(lines)))

	return nil
}

// discardSource removes the stored source file after the report is flushed.
func (c *Coordinator) discardSource(ctx context.Context, filePath string) {
	if err := c.reports.RemoveSource(ctx, filePath); err != nil {
		c.logger.Warn("failed to remove source file",
			slog.String("file_path", filePath),
			slog.Any("error", err))
	}
}
