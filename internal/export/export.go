// Package export writes OCR result renditions to the local export
// directory.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
)

// Exporter fetches an export rendition from the backend and lands it on
// disk, recording the export in history.
type Exporter struct {
	svc    ocr.Service
	store  *store.Store
	dir    string
	logger *zap.Logger
}

func New(svc ocr.Service, st *store.Store, dir string, logger *zap.Logger) *Exporter {
	return &Exporter{svc: svc, store: st, dir: dir, logger: logger}
}

// Export downloads one rendition and writes it to the export directory.
// The file name is derived from the document name with the format's
// extension; an existing file is never overwritten, a numbered suffix is
// appended instead. Returns the written path.
func (e *Exporter) Export(ctx context.Context, documentID, documentName string, format ocr.ExportFormat) (string, error) {
	data, err := e.svc.Export(ctx, documentID, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := e.targetPath(documentName, format)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	metrics.RecordExport(string(format))
	if err := e.store.RecordExport(&store.ExportRecord{
		DocumentID: documentID,
		Format:     string(format),
		Path:       path,
		SizeBytes:  int64(len(data)),
	}); err != nil {
		e.logger.Warn("Failed to record export in history", zap.Error(err))
	}

	e.logger.Info("Result exported",
		zap.String("document_id", documentID),
		zap.String("format", string(format)),
		zap.String("path", path),
	)
	return path, nil
}

func (e *Exporter) targetPath(documentName string, format ocr.ExportFormat) string {
	base := sanitize(strings.TrimSuffix(documentName, filepath.Ext(documentName)))
	if base == "" {
		base = "export-" + time.Now().Format("20060102-150405")
	}

	path := filepath.Join(e.dir, base+"."+string(format))
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(e.dir, fmt.Sprintf("%s-%d.%s", base, i, format))
	}
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.TrimSpace(b.String())
}
