package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"excel-import-service/internal/core/services/excelimport"
	"excel-import-service/internal/pkg/config"
	apperrors "excel-import-service/internal/pkg/errors"
)

type stubAuth struct {
	valid bool
	err   error
}

func (s stubAuth) Authenticate(ctx context.Context, username, password string) (bool, error) {
	return s.valid, s.err
}

type stubProgressStore struct {
	values map[string]int64
}

func (s stubProgressStore) Set(ctx context.Context, key string, processed int64) error {
	s.values[key] = processed
	return nil
}

func (s stubProgressStore) Get(ctx context.Context, key string) (int64, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, apperrors.ProgressNotFound(key)
	}
	return v, nil
}

func newTestRouter(t *testing.T, auth Authenticator, progress map[string]int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := excelimport.NewService(nil, nil, nil, stubProgressStore{values: progress}, 3, slog.Default())
	handler := NewImportHandler(service, 1024, slog.Default())

	return NewRouter(&config.Config{}, handler, auth, slog.Default())
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUploadExcel_RequiresAuth(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload-excel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
}

func TestUploadExcel_RejectsInvalidCredentials(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: false}, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload-excel", nil)
	req.SetBasicAuth("admin", "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadExcel_AuthBackendFailure(t *testing.T) {
	router := newTestRouter(t, stubAuth{err: errors.New("db down")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload-excel", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUploadExcel_MissingFile(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload-excel", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestUploadExcel_RejectsNonXLSX(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: true}, nil)

	body, contentType := multipartBody(t, "file", "data.csv", []byte("a,b,c"))
	req := httptest.NewRequest(http.MethodPost, "/upload-excel", body)
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UNSUPPORTED_FORMAT", resp["code"])
}

func TestUploadExcel_RejectsOversizedFile(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: true}, nil)

	// Handler is configured with a 1 KiB cap.
	body, contentType := multipartBody(t, "file", "big.xlsx", bytes.Repeat([]byte{0x0}, 2048))
	req := httptest.NewRequest(http.MethodPost, "/upload-excel", body)
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FILE_TOO_LARGE", resp["code"])
}

func TestGetProgress_ReturnsCounter(t *testing.T) {
	key := excelimport.ProgressKey("/tmp/file.xlsx")
	router := newTestRouter(t, stubAuth{valid: true}, map[string]int64{key: 5000})

	req := httptest.NewRequest(http.MethodGet, "/import-progress/"+key, nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, key, resp.ProgressKey)
	assert.Equal(t, int64(5000), resp.RowsProcessed)
}

func TestGetProgress_UnknownKey(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: true}, map[string]int64{})

	key := excelimport.ProgressKey("/tmp/never-imported.xlsx")
	req := httptest.NewRequest(http.MethodGet, "/import-progress/"+key, nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PROGRESS_NOT_FOUND", resp["code"])
}

func TestHealthEndpoint_IsOpen(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: false}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute_ReturnsJSON404(t *testing.T) {
	router := newTestRouter(t, stubAuth{valid: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
