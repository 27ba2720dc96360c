package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeImportRows identifies the chunked row-import job.
const TaskTypeImportRows = "import:rows"

// ImportRowsPayload carries one import run's inputs through the queue.
type ImportRowsPayload struct {
	FilePath    string `json:"file_path"`
	ProgressKey string `json:"progress_key"`
}

// NewImportRowsTask builds an import task. The progress key doubles as the
// task ID: while a run for the same stored file is pending or active, a
// second enqueue fails with asynq.ErrTaskIDConflict, deduplicating runs at
// the scheduling layer.
func NewImportRowsTask(filePath, progressKey string, maxRetries int) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportRowsPayload{
		FilePath:    filePath,
		ProgressKey: progressKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return asynq.NewTask(TaskTypeImportRows, payload,
		asynq.TaskID(progressKey),
		asynq.MaxRetry(maxRetries),
		asynq.Queue("default"),
	), nil
}

// ParseImportRowsPayload decodes a task payload.
func ParseImportRowsPayload(task *asynq.Task) (ImportRowsPayload, error) {
	var payload ImportRowsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ImportRowsPayload{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
