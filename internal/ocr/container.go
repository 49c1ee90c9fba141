package ocr

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
)

// Store is the OCR state container: job status snapshots keyed by job id
// and results keyed by document id. Writes are last-write-wins whole-value
// replacements; there is no partial merge.
type Store struct {
	svc    Service
	logger *zap.Logger

	mu       sync.RWMutex
	results  map[string]*Result           // by document id
	statuses map[string]*ProcessingStatus // by job id
	lastErr  string

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int
}

// NewStore creates an OCR state container
func NewStore(svc Service, logger *zap.Logger) *Store {
	return &Store{
		svc:       svc,
		logger:    logger,
		results:   make(map[string]*Result),
		statuses:  make(map[string]*ProcessingStatus),
		listeners: make(map[int]func()),
	}
}

// Subscribe registers a change listener, called after every state
// mutation. The returned function removes the listener.
func (s *Store) Subscribe(fn func()) func() {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) notify() {
	s.listenerMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// StartOCR asks the backend to begin processing and records an initial
// queued snapshot under the returned job id, before any poll tick runs.
// Tracking the job to completion is the poller's work, not this
// action's. The error is re-raised so the caller can compensate for an
// upload whose processing never started.
func (s *Store) StartOCR(ctx context.Context, req StartRequest) (string, error) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	jobID, err := s.svc.Start(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("Failed to start OCR", zap.String("document_id", req.DocumentID), zap.Error(err))
		s.notify()
		return "", err
	}

	metrics.RecordJobStarted()
	s.setStatus(&ProcessingStatus{
		JobID:      jobID,
		DocumentID: req.DocumentID,
		Status:     JobQueued,
		StartedAt:  time.Now(),
	})
	return jobID, nil
}

// GetResult loads a document's result into the container. The error is
// re-raised after being recorded.
func (s *Store) GetResult(ctx context.Context, documentID string) (*Result, error) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	result, err := s.svc.Result(ctx, documentID)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("Failed to fetch OCR result", zap.String("document_id", documentID), zap.Error(err))
		s.notify()
		return nil, err
	}

	s.setResult(documentID, result)
	return result, nil
}

// UpdateResult sends a corrected result and replaces the stored one with
// the backend's response.
func (s *Store) UpdateResult(ctx context.Context, documentID string, update ResultUpdate) (*Result, error) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	result, err := s.svc.UpdateResult(ctx, documentID, update)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("Failed to update OCR result", zap.String("document_id", documentID), zap.Error(err))
		s.notify()
		return nil, err
	}

	s.setResult(documentID, result)
	return result, nil
}

// Reprocess re-runs OCR over one page region. The previous result stays
// in the container until the new job completes and overwrites it.
func (s *Store) Reprocess(ctx context.Context, req ReprocessRequest) (string, error) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	jobID, err := s.svc.Reprocess(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("Failed to reprocess document", zap.String("document_id", req.DocumentID), zap.Error(err))
		s.notify()
		return "", err
	}

	metrics.RecordJobStarted()
	s.setStatus(&ProcessingStatus{
		JobID:      jobID,
		DocumentID: req.DocumentID,
		Status:     JobQueued,
		StartedAt:  time.Now(),
	})
	return jobID, nil
}

func (s *Store) setStatus(status *ProcessingStatus) {
	s.mu.Lock()
	s.statuses[status.JobID] = status
	s.mu.Unlock()
	s.notify()
}

// setResult keys the cache by the requested document id. The payload's
// own documentId field may be absent or stale; the key the caller asked
// for is authoritative.
func (s *Store) setResult(documentID string, result *Result) {
	if result.DocumentID == "" {
		result.DocumentID = documentID
	}
	if result.Text == "" && len(result.Pages) > 0 {
		result.Text = AssembleText(result.Pages)
	}
	s.mu.Lock()
	s.results[documentID] = result
	s.mu.Unlock()
	s.notify()
}

func (s *Store) recordError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	s.notify()
}

// Status returns the latest snapshot for a job, or nil
func (s *Store) Status(jobID string) *ProcessingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.statuses[jobID]; ok {
		copied := *st
		return &copied
	}
	return nil
}

// Result returns the cached result for a document, or nil
func (s *Store) Result(documentID string) *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[documentID]; ok {
		copied := *r
		return &copied
	}
	return nil
}

// Statuses returns a snapshot of all job statuses
func (s *Store) Statuses() map[string]ProcessingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ProcessingStatus, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = *v
	}
	return out
}

// Error returns the last recorded error message, empty when none
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError clears the recorded error
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.notify()
}
