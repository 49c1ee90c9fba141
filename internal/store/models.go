package store

import (
	"crypto/rand"
	"time"

	"gorm.io/gorm"
)

// UploadRecord is one upload attempt, successful or not
type UploadRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"index" json:"document_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	SizeBytes  int64     `json:"size_bytes"`
	Language   string    `json:"language"`
	Engine     string    `json:"engine"`
	Quality    string    `json:"quality"`
	Source     string    `json:"source"` // cli, watch, tui
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// JobRecord tracks one OCR job from start to terminal state
type JobRecord struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	JobID      string     `gorm:"uniqueIndex" json:"job_id"`
	DocumentID string     `gorm:"index" json:"document_id"`
	Status     string     `json:"status"` // queued, processing, completed, failed, timeout, cancelled, orphaned
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ExportRecord is one result export written to disk
type ExportRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"index" json:"document_id"`
	Format     string    `json:"format"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate hook for UploadRecord
func (u *UploadRecord) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateID("upl")
	}
	if u.Source == "" {
		u.Source = "cli"
	}
	return nil
}

// BeforeCreate hook for JobRecord
func (j *JobRecord) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = generateID("job")
	}
	if j.Status == "" {
		j.Status = "queued"
	}
	return nil
}

// BeforeCreate hook for ExportRecord
func (e *ExportRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateID("exp")
	}
	return nil
}

// generateID creates a unique ID with nanosecond precision
func generateID(prefix string) string {
	return prefix + "_" + time.Now().Format("20060102150405") + "_" + randomString(8)
}

func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
