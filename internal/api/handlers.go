package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"excel-import-service/internal/core/services/excelimport"
	apperrors "excel-import-service/internal/pkg/errors"
)

// UploadResponse is returned when an upload is accepted for processing.
type UploadResponse struct {
	Message     string `json:"message"`
	UploadID    string `json:"upload_id"`
	ProgressKey string `json:"progress_key"`
}

// ProgressResponse reports the cumulative number of processed rows.
type ProgressResponse struct {
	ProgressKey   string `json:"progress_key"`
	RowsProcessed int64  `json:"rows_processed"`
}

// ImportHandler exposes the import operations over HTTP.
type ImportHandler struct {
	service     *excelimport.Service
	maxFileSize int64
	logger      *slog.Logger
}

func NewImportHandler(service *excelimport.Service, maxFileSize int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// UploadExcel accepts a multipart .xlsx upload and schedules a background
// import run. The response carries the token to poll progress with.
func (h *ImportHandler) UploadExcel(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		writeAppError(c, apperrors.FileTooLarge(h.maxFileSize/(1024*1024)))
		return
	}

	ticket, err := h.service.StartAsyncImport(c.Request.Context(), header.Filename, file)
	if err != nil {
		writeAppError(c, err)
		return
	}

	// Re-submitting a file whose run is still in flight returns the
	// existing key instead of scheduling a second run.
	status := http.StatusAccepted
	message := "import scheduled"
	if ticket.Duplicate {
		status = http.StatusOK
		message = "import already in progress"
	}

	c.JSON(status, UploadResponse{
		Message:     message,
		UploadID:    ticket.UploadID,
		ProgressKey: ticket.ProgressKey,
	})
}

// GetProgress returns the current counter for an import token. The counter
// survives the run, so finished imports still report their final count.
func (h *ImportHandler) GetProgress(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))

	processed, err := h.service.GetProgress(c.Request.Context(), key)
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProgressResponse{
		ProgressKey:   key,
		RowsProcessed: processed,
	})
}

// writeAppError maps application errors onto HTTP responses.
func writeAppError(c *gin.Context, err error) {
	if appErr, ok := apperrors.GetAppError(err); ok {
		c.JSON(appErr.StatusCode, gin.H{
			"error": appErr.Message,
			"code":  string(appErr.Code),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
