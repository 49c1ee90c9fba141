package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
)

// Store is the document state container. It owns the known document list
// (most recently uploaded first), the current selection, and the per-file
// upload progress table. All mutation goes through its action methods;
// snapshots returned to callers are copies.
//
// One Store is constructed per session and passed by reference; there is
// no package-level instance.
type Store struct {
	svc       Service
	validator *Validator
	logger    *zap.Logger

	mu        sync.RWMutex
	documents []Document
	current   *Document
	loading   bool
	lastErr   string
	progress  map[string]UploadProgress

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int
}

// NewStore creates a document state container
func NewStore(svc Service, validator *Validator, logger *zap.Logger) *Store {
	return &Store{
		svc:       svc,
		validator: validator,
		logger:    logger,
		progress:  make(map[string]UploadProgress),
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

// FetchDocuments loads the document list. Failures are recorded in the
// error field rather than returned; callers check Error().
func (s *Store) FetchDocuments(ctx context.Context, query ListQuery) {
	s.mu.Lock()
	s.lastErr = ""
	s.loading = true
	s.mu.Unlock()
	s.notify()

	result, err := s.svc.List(ctx, query)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		s.logger.Error("Failed to fetch documents", zap.Error(err))
	} else {
		s.documents = result.Documents
	}
	s.mu.Unlock()
	s.notify()
}

// FetchDocument loads one document into the current selection. Failures
// are recorded in the error field.
func (s *Store) FetchDocument(ctx context.Context, id string) {
	s.mu.Lock()
	s.lastErr = ""
	s.loading = true
	s.mu.Unlock()
	s.notify()

	doc, err := s.svc.Get(ctx, id)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		s.logger.Error("Failed to fetch document", zap.String("id", id), zap.Error(err))
	} else {
		s.current = doc
	}
	s.mu.Unlock()
	s.notify()
}

// Upload validates and uploads one file, tracking progress under the file
// name. Unlike the read actions it re-raises the error so a batch caller
// can react; the error is also recorded in the container.
//
// On success the created document is prepended to the list and the
// progress entry is left at 100% / processing: starting OCR is the
// caller's responsibility, not this action's.
func (s *Store) Upload(ctx context.Context, path string, opts UploadOptions) (*UploadResult, error) {
	fileName := filepath.Base(path)

	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	if err := s.validator.ValidateFile(path); err != nil {
		s.failUpload(fileName, err)
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		wrapped := apperrors.Wrap(err, "VAL_004", "file cannot be read")
		s.failUpload(fileName, wrapped)
		return nil, wrapped
	}
	defer file.Close()

	s.setProgress(UploadProgress{
		FileName: fileName,
		Progress: 0,
		State:    UploadStateUploading,
	})

	result, err := s.svc.Upload(ctx, fileName, file, opts, func(pct int) {
		s.setProgress(UploadProgress{
			FileName: fileName,
			Progress: pct,
			State:    UploadStateUploading,
		})
	})
	if err != nil {
		s.failUpload(fileName, err)
		return nil, err
	}

	s.setProgress(UploadProgress{
		DocumentID: result.Document.ID,
		FileName:   fileName,
		Progress:   100,
		State:      UploadStateProcessing,
	})

	s.mu.Lock()
	s.documents = append([]Document{result.Document}, s.documents...)
	s.mu.Unlock()
	s.notify()

	s.logger.Info("Document uploaded",
		zap.String("document_id", result.Document.ID),
		zap.String("file", fileName),
		zap.String("job_id", result.JobID),
	)

	return result, nil
}

func (s *Store) failUpload(fileName string, err error) {
	s.setProgress(UploadProgress{
		FileName: fileName,
		Progress: 0,
		State:    UploadStateFailed,
		Error:    err.Error(),
	})

	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.notify()
}

// MarkUploadState overwrites a progress entry's state, keeping its
// document id and progress. Used by callers that own the OCR-start step.
func (s *Store) MarkUploadState(fileName string, state UploadState, errMsg string) {
	s.mu.Lock()
	entry, ok := s.progress[fileName]
	if !ok {
		entry = UploadProgress{FileName: fileName}
	}
	entry.State = state
	entry.Error = errMsg
	s.progress[fileName] = entry
	s.mu.Unlock()
	s.notify()
}

// Update applies a partial update and replaces the stored document with
// the backend's response. Failures are recorded in the error field.
func (s *Store) Update(ctx context.Context, id string, update Update) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	doc, err := s.svc.Update(ctx, id, update)

	s.mu.Lock()
	if err != nil {
		s.lastErr = err.Error()
		s.logger.Error("Failed to update document", zap.String("id", id), zap.Error(err))
	} else {
		for i := range s.documents {
			if s.documents[i].ID == id {
				s.documents[i] = *doc
				break
			}
		}
		if s.current != nil && s.current.ID == id {
			s.current = doc
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Delete removes a document. Deleting an id the backend no longer knows
// is treated as success, so repeated deletes stay idempotent. Deleting
// the selected document clears the selection.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	err := s.svc.Delete(ctx, id)
	if err != nil && apperrors.GetCode(err) != "GEN_001" {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("Failed to delete document", zap.String("id", id), zap.Error(err))
		s.notify()
		return
	}

	s.mu.Lock()
	filtered := s.documents[:0]
	for _, doc := range s.documents {
		if doc.ID != id {
			filtered = append(filtered, doc)
		}
	}
	s.documents = filtered
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
	s.notify()
}

// BulkDelete removes several documents in one call
func (s *Store) BulkDelete(ctx context.Context, ids []string) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()

	if err := s.svc.BulkDelete(ctx, ids); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("Failed to bulk delete documents", zap.Int("count", len(ids)), zap.Error(err))
		s.notify()
		return
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	filtered := s.documents[:0]
	for _, doc := range s.documents {
		if !drop[doc.ID] {
			filtered = append(filtered, doc)
		}
	}
	s.documents = filtered
	if s.current != nil && drop[s.current.ID] {
		s.current = nil
	}
	s.mu.Unlock()
	s.notify()
}

// SetCurrent selects a document (or clears the selection with nil)
func (s *Store) SetCurrent(doc *Document) {
	s.mu.Lock()
	s.current = doc
	s.mu.Unlock()
	s.notify()
}

// ClearError clears the recorded error
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Store) setProgress(p UploadProgress) {
	s.mu.Lock()
	s.progress[p.FileName] = p
	s.mu.Unlock()
	s.notify()
}

// Documents returns a snapshot of the known document list
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, len(s.documents))
	copy(out, s.documents)
	return out
}

// Filter returns the documents matching an exact status and a
// case-insensitive name substring. Empty arguments match everything.
func (s *Store) Filter(status Status, search string) []Document {
	search = strings.ToLower(search)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, doc := range s.documents {
		if status != "" && doc.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(doc.Name), search) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// Current returns the selected document, or nil
func (s *Store) Current() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	doc := *s.current
	return &doc
}

// Loading reports whether a fetch action is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the last recorded error message, empty when none
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Progress returns a snapshot of the upload progress table
func (s *Store) Progress() map[string]UploadProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]UploadProgress, len(s.progress))
	for k, v := range s.progress {
		out[k] = v
	}
	return out
}
