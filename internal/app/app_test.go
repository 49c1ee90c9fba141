package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	"github.com/gmsas95/ocrdesk-cli/internal/document"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
)

// fake backend: upload, process, two status ticks, then a result
type fakeBackend struct {
	mux         *http.ServeMux
	statusCalls atomic.Int32
	resultCalls atomic.Int32
	failStart   bool
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{mux: http.NewServeMux()}

	b.mux.HandleFunc("/api/documents/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(document.UploadResult{
			Document: document.Document{ID: "doc-1", Name: "scan.pdf", Status: document.StatusPending},
		})
	})

	b.mux.HandleFunc("/api/ocr/process", func(w http.ResponseWriter, r *http.Request) {
		if b.failStart {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "queue full"})
			return
		}
		var req ocr.StartRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.DocumentID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-1"})
	})

	b.mux.HandleFunc("/api/ocr/status/job-1", func(w http.ResponseWriter, r *http.Request) {
		status := ocr.JobProcessing
		if b.statusCalls.Add(1) >= 3 {
			status = ocr.JobCompleted
		}
		json.NewEncoder(w).Encode(ocr.ProcessingStatus{
			JobID: "job-1", DocumentID: "doc-1", Status: status,
		})
	})

	b.mux.HandleFunc("/api/ocr/result/doc-1", func(w http.ResponseWriter, r *http.Request) {
		b.resultCalls.Add(1)
		json.NewEncoder(w).Encode(ocr.Result{
			ID: "res-1", DocumentID: "doc-1", Text: "recognized text", Confidence: 0.94,
		})
	})

	return b
}

func setupApp(t *testing.T, backend *fakeBackend) *App {
	t.Helper()

	srv := httptest.NewServer(backend.mux)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.Timeout = 5
	cfg.Polling.Interval = 5 * time.Millisecond
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.SQLitePath = ""
	cfg.Storage.BadgerPath = ""
	cfg.Storage.ExportDir = filepath.Join(cfg.Storage.DataDir, "exports")

	st, err := store.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(cfg, st, zap.NewNop())
}

func testFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("fake pdf"), 0644))
	return path
}

func TestProcessFile_EndToEnd(t *testing.T) {
	backend := newFakeBackend()
	a := setupApp(t, backend)

	outcome, err := a.ProcessFile(context.Background(), testFile(t), "cli", document.UploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", outcome.Document.ID)
	assert.Equal(t, "job-1", outcome.JobID)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, "recognized text", outcome.Result.Text)
	assert.False(t, outcome.NeedsRestart)

	// One result fetch for the completion
	assert.Equal(t, int32(1), backend.resultCalls.Load())

	// Containers reflect the run
	assert.Equal(t, ocr.JobCompleted, a.Jobs.Status("job-1").Status)
	entry := a.Docs.Progress()["scan.pdf"]
	assert.Equal(t, document.UploadStateCompleted, entry.State)

	// History has the upload and the finished job
	uploads, err := a.Store.RecentUploads(10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.True(t, uploads[0].Success)

	jobs, err := a.Store.JobsForDocument("doc-1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "completed", jobs[0].Status)

	// Result landed in the cache
	cached, err := a.Store.CachedResult("doc-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "recognized text", cached.Text)
}

func TestProcessFile_StartFailureMarksNeedsRestart(t *testing.T) {
	backend := newFakeBackend()
	backend.failStart = true
	a := setupApp(t, backend)

	outcome, err := a.ProcessFile(context.Background(), testFile(t), "cli", document.UploadOptions{})
	require.Error(t, err)
	require.NotNil(t, outcome)
	assert.True(t, outcome.NeedsRestart)
	assert.Equal(t, "doc-1", outcome.Document.ID)
	assert.Empty(t, outcome.JobID)

	// The upload itself is kept and recorded as successful
	uploads, _ := a.Store.RecentUploads(10)
	require.Len(t, uploads, 1)
	assert.True(t, uploads[0].Success)

	entry := a.Docs.Progress()["scan.pdf"]
	assert.Equal(t, document.UploadStateFailed, entry.State)
	assert.Contains(t, entry.Error, "ocrdesk process doc-1")
}

func TestProcessFile_ValidationFailureRecorded(t *testing.T) {
	a := setupApp(t, newFakeBackend())

	path := filepath.Join(t.TempDir(), "nope.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := a.ProcessFile(context.Background(), path, "cli", document.UploadOptions{})
	require.Error(t, err)

	uploads, _ := a.Store.RecentUploads(10)
	require.Len(t, uploads, 1)
	assert.False(t, uploads[0].Success)
	assert.NotEmpty(t, uploads[0].Error)
}

func TestProcessDocument_ManualRestart(t *testing.T) {
	backend := newFakeBackend()
	a := setupApp(t, backend)

	result, err := a.ProcessDocument(context.Background(), "doc-1", document.UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recognized text", result.Text)
}

func TestResultFor_PrefersContainerThenCache(t *testing.T) {
	backend := newFakeBackend()
	a := setupApp(t, backend)

	// Backend path first: container and cache are empty
	result, err := a.ResultFor(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "recognized text", result.Text)
	assert.Equal(t, int32(1), backend.resultCalls.Load())

	// Second read is served from the container, no backend call
	_, err = a.ResultFor(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.resultCalls.Load())
}

func TestProcessFile_DefaultsFromConfig(t *testing.T) {
	a := setupApp(t, newFakeBackend())
	a.Config.Upload.Language = "vie"

	opts := a.defaultOptions(document.UploadOptions{})
	assert.Equal(t, "vie", opts.Language)
	assert.Equal(t, "tesseract", opts.OCREngine)
	assert.Equal(t, "balanced", opts.Quality)

	opts = a.defaultOptions(document.UploadOptions{Language: "de", Quality: "accurate"})
	assert.Equal(t, "de", opts.Language)
	assert.Equal(t, "accurate", opts.Quality)
}
