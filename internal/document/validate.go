package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
)

// Validator applies the client-side upload constraints before any network
// call is made.
type Validator struct {
	cfg *config.Config
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateFile checks one file against the type and size constraints.
func (v *Validator) ValidateFile(path string) error {
	ext := filepath.Ext(path)
	if !v.cfg.AllowedType(ext) {
		return apperrors.New("VAL_002",
			fmt.Sprintf("file type %q not supported (allowed: %s)", strings.TrimPrefix(ext, "."), strings.Join(v.cfg.Upload.AllowedTypes, ", ")))
	}

	info, err := os.Stat(path)
	if err != nil {
		return apperrors.Wrap(err, "VAL_004", "file cannot be read")
	}

	if info.Size() > v.cfg.Upload.MaxFileSize {
		return apperrors.New("VAL_001",
			fmt.Sprintf("file %s exceeds the %d MiB limit", filepath.Base(path), v.cfg.Upload.MaxFileSize/(1024*1024)))
	}

	return nil
}

// BatchVerdict is the per-file outcome of batch validation
type BatchVerdict struct {
	Valid    []string
	Rejected map[string]error
}

// ValidateBatch checks a list of files. Each invalid file is rejected
// individually without blocking the valid ones; only an oversized batch
// fails as a whole.
func (v *Validator) ValidateBatch(paths []string) (*BatchVerdict, error) {
	if len(paths) > v.cfg.Upload.MaxBatchSize {
		return nil, apperrors.New("VAL_003",
			fmt.Sprintf("batch of %d files exceeds the limit of %d", len(paths), v.cfg.Upload.MaxBatchSize))
	}

	verdict := &BatchVerdict{
		Rejected: make(map[string]error),
	}

	for _, p := range paths {
		if err := v.ValidateFile(p); err != nil {
			verdict.Rejected[p] = err
			continue
		}
		verdict.Valid = append(verdict.Valid, p)
	}

	return verdict, nil
}

// DetectType maps a file extension to the backend's document type
func DetectType(path string) Type {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return TypePDF
	}
	return TypeImage
}
