// Package ocr covers the OCR side of the backend: job control, result
// retrieval, the job/result state container, and the polling engine that
// tracks a job from start to completion.
package ocr

import (
	"fmt"
	"time"
)

// JobStatus is the backend-reported OCR job state
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ParseJobStatus validates a job status string from the backend
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobQueued, JobProcessing, JobCompleted, JobFailed:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Terminal reports whether a status ends the job lifecycle
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// BoundingBox is a region in page coordinates
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Word is the smallest recognized unit
type Word struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"boundingBox"`
}

// Line groups words on one baseline
type Line struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Words      []Word      `json:"words"`
	Box        BoundingBox `json:"boundingBox"`
}

// Block groups lines into a layout region
type Block struct {
	Type       string      `json:"blockType"` // paragraph, table, image, heading
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Lines      []Line      `json:"lines"`
	Box        BoundingBox `json:"boundingBox"`
}

// Page holds one page's recognized content
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Blocks     []Block `json:"blocks"`
}

// Result is the full OCR output for one document
type Result struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Language   string    `json:"language"`
	PageCount  int       `json:"pageCount"`
	Pages      []Page    `json:"pages"`
	Engine     string    `json:"engine,omitempty"`
	Duration   int64     `json:"processingTimeMs,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProcessingStatus is one status snapshot for a running job
type ProcessingStatus struct {
	JobID       string    `json:"jobId"`
	DocumentID  string    `json:"documentId"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"` // 0-100
	CurrentPage int       `json:"currentPage,omitempty"`
	TotalPages  int       `json:"totalPages,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
}

// StartOptions are the OCR options sent when starting a job
type StartOptions struct {
	Language string `json:"language,omitempty"`
	Engine   string `json:"ocrEngine,omitempty"`
	Quality  string `json:"quality,omitempty"`
}

// StartRequest asks the backend to begin OCR for an uploaded document
type StartRequest struct {
	DocumentID string       `json:"documentId"`
	Options    StartOptions `json:"options"`
}

// ReprocessRequest re-runs OCR over one region of a page, e.g. after a
// low-confidence block was reviewed.
type ReprocessRequest struct {
	DocumentID string           `json:"documentId"`
	PageNumber int              `json:"pageNumber"`
	Region     BoundingBox      `json:"region"`
	Options    ReprocessOptions `json:"options"`

	// Client-generated key so a retried submission is not double-processed
	RequestID string `json:"requestId,omitempty"`
}

// ReprocessOptions tune a region reprocess
type ReprocessOptions struct {
	Language string `json:"language,omitempty"`
	Enhance  bool   `json:"enhance,omitempty"`
}

// ResultUpdate carries a corrected result for PUT. The backend replaces
// the stored result wholesale; there is no partial merge.
type ResultUpdate struct {
	Text  string `json:"text"`
	Pages []Page `json:"pages,omitempty"`
}

// ExportFormat selects the export rendition
type ExportFormat string

const (
	ExportTXT  ExportFormat = "txt"
	ExportDOCX ExportFormat = "docx"
	ExportJSON ExportFormat = "json"
	ExportPDF  ExportFormat = "pdf"
)

// ParseExportFormat validates a user-supplied export format
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case ExportTXT, ExportDOCX, ExportJSON, ExportPDF:
		return ExportFormat(s), nil
	}
	return "", fmt.Errorf("unknown export format %q (expected txt, docx, json or pdf)", s)
}
