package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
)

type fakeExportService struct {
	ocr.Service
	data []byte
	err  error
}

func (f *fakeExportService) Export(ctx context.Context, documentID string, format ocr.ExportFormat) ([]byte, error) {
	return f.data, f.err
}

func setupExporter(t *testing.T, svc ocr.Service) (*Exporter, string) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.SQLitePath = ""
	cfg.Storage.BadgerPath = ""

	st, err := store.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dir := filepath.Join(cfg.Storage.DataDir, "exports")
	return New(svc, st, dir, zap.NewNop()), dir
}

func TestExport_WritesFile(t *testing.T) {
	svc := &fakeExportService{data: []byte("plain text output")}
	exporter, dir := setupExporter(t, svc)

	path, err := exporter.Export(context.Background(), "doc-1", "Invoice March.pdf", ocr.ExportTXT)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Invoice March.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "plain text output", string(content))
}

func TestExport_NeverOverwrites(t *testing.T) {
	svc := &fakeExportService{data: []byte("v1")}
	exporter, dir := setupExporter(t, svc)

	first, err := exporter.Export(context.Background(), "doc-1", "scan.pdf", ocr.ExportTXT)
	require.NoError(t, err)

	svc.data = []byte("v2")
	second, err := exporter.Export(context.Background(), "doc-1", "scan.pdf", ocr.ExportTXT)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(dir, "scan-1.txt"), second)

	content, _ := os.ReadFile(first)
	assert.Equal(t, "v1", string(content))
}

func TestExport_BackendErrorPropagates(t *testing.T) {
	svc := &fakeExportService{err: apperrors.New("HTTP_002", "export failed")}
	exporter, dir := setupExporter(t, svc)

	_, err := exporter.Export(context.Background(), "doc-1", "scan.pdf", ocr.ExportDOCX)
	require.Error(t, err)

	// Nothing written on failure
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "report_2026", sanitize("report:2026"))
	assert.Equal(t, "a_b", sanitize("a/b"))
	assert.Equal(t, "plain name", sanitize("plain name"))
}
