// Package document holds the client-side view of backend documents: typed
// API access, upload validation, and the in-memory state container the
// presentation layer reads from.
package document

import (
	"fmt"
	"time"
)

// Status is the backend-reported document lifecycle state. The client
// never infers transitions itself; it only records what the backend says.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus validates a status string received from the backend.
// Unknown values fail loudly instead of propagating silently.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown document status %q", s)
}

// Type classifies the uploaded file
type Type string

const (
	TypePDF   Type = "pdf"
	TypeImage Type = "image"
)

// Document mirrors the backend's document record
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         Type      `json:"type"`
	Status       Status    `json:"status"`
	FileURL      string    `json:"fileUrl"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	FileSize     int64     `json:"fileSize"`
	PageCount    int       `json:"pageCount,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UserID       string    `json:"userId,omitempty"`
}

// Update carries partial document fields for PUT requests. Nil fields are
// omitted from the payload.
type Update struct {
	Name   *string `json:"name,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// UploadOptions are the OCR options sent alongside an upload
type UploadOptions struct {
	Language   string `json:"language"`
	OCREngine  string `json:"ocrEngine,omitempty"` // tesseract, google, aws
	Quality    string `json:"quality,omitempty"`   // fast, balanced, accurate
	AutoRotate bool   `json:"autoRotate,omitempty"`
	Deskew     bool   `json:"deskew,omitempty"`

	// Client-generated key so a retried upload is not double-processed
	RequestID string `json:"requestId,omitempty"`
}

// UploadState tracks one file's upload through the progress table
type UploadState string

const (
	UploadStateUploading  UploadState = "uploading"
	UploadStateProcessing UploadState = "processing"
	UploadStateCompleted  UploadState = "completed"
	UploadStateFailed     UploadState = "failed"
)

// UploadProgress is the per-file progress entry, keyed by file name.
// Exactly one entry exists per file name; a new attempt overwrites the
// previous entry wholesale.
type UploadProgress struct {
	DocumentID string      `json:"documentId"`
	FileName   string      `json:"fileName"`
	Progress   int         `json:"progress"` // 0-100
	State      UploadState `json:"status"`
	Error      string      `json:"error,omitempty"`
}

// ListQuery filters the document list
type ListQuery struct {
	Status Status
	Search string
	Page   int
	Limit  int
}

// ListResult is the backend's list response
type ListResult struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

// UploadResult is the backend's upload response. JobID is set only when
// the backend queued processing on its own; normally the client starts
// OCR with a separate call.
type UploadResult struct {
	Document Document `json:"document"`
	JobID    string   `json:"jobId,omitempty"`
}
