package store

import (
	"time"
)

// RecordUpload saves one upload attempt
func (s *Store) RecordUpload(rec *UploadRecord) error {
	return s.db.Create(rec).Error
}

// RecordJobStart saves a freshly started job
func (s *Store) RecordJobStart(jobID, documentID string) error {
	return s.db.Create(&JobRecord{
		JobID:      jobID,
		DocumentID: documentID,
		Status:     "queued",
		StartedAt:  time.Now(),
	}).Error
}

// FinishJob marks a job terminal with its outcome
func (s *Store) FinishJob(jobID, status, errMsg string, attempts int) error {
	now := time.Now()
	return s.db.Model(&JobRecord{}).
		Where("job_id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      status,
			"error":       errMsg,
			"attempts":    attempts,
			"finished_at": &now,
		}).Error
}

// RecordExport saves one export written to disk
func (s *Store) RecordExport(rec *ExportRecord) error {
	return s.db.Create(rec).Error
}

// RecentUploads returns the latest upload attempts, newest first
func (s *Store) RecentUploads(limit int) ([]UploadRecord, error) {
	var records []UploadRecord
	err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// JobsForDocument returns all job records for a document, newest first
func (s *Store) JobsForDocument(documentID string) ([]JobRecord, error) {
	var records []JobRecord
	err := s.db.Where("document_id = ?", documentID).
		Order("created_at DESC").Find(&records).Error
	return records, err
}

// OpenJobs returns jobs without a terminal state
func (s *Store) OpenJobs() ([]JobRecord, error) {
	var records []JobRecord
	err := s.db.Where("finished_at IS NULL").Find(&records).Error
	return records, err
}

// SweepStaleJobs marks non-terminal jobs older than the cutoff as
// orphaned. Used by the maintenance scheduler for jobs whose polling
// loop died with the process.
func (s *Store) SweepStaleJobs(olderThan time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-olderThan)

	result := s.db.Model(&JobRecord{}).
		Where("finished_at IS NULL AND started_at < ?", cutoff).
		Updates(map[string]interface{}{
			"status":      "orphaned",
			"finished_at": &now,
		})
	return result.RowsAffected, result.Error
}
