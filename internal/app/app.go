// Package app wires the client together and owns the end-to-end
// processing pipeline: upload, OCR start, polling, result caching and
// history.
package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	"github.com/gmsas95/ocrdesk-cli/internal/document"
	"github.com/gmsas95/ocrdesk-cli/internal/export"
	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
	"github.com/gmsas95/ocrdesk-cli/internal/transport"
)

const resultCacheTTL = 24 * time.Hour

// App holds the wired client
type App struct {
	Config   *config.Config
	Store    *store.Store
	DocSvc   document.Service
	Docs     *document.Store
	OCRSvc   ocr.Service
	Jobs     *ocr.Store
	Poller   *ocr.Poller
	Exporter *export.Exporter
	Logger   *zap.Logger
}

// New wires the client from config
func New(cfg *config.Config, st *store.Store, logger *zap.Logger) *App {
	client := transport.NewClient(cfg.Backend)

	docSvc := document.NewService(client)
	docs := document.NewStore(docSvc, document.NewValidator(cfg), logger)

	ocrSvc := ocr.NewService(client)
	jobs := ocr.NewStore(ocrSvc, logger)
	poller := ocr.NewPoller(ocrSvc, jobs, cfg.Polling, logger)

	exporter := export.New(ocrSvc, st, cfg.Storage.ExportDir, logger)

	return &App{
		Config:   cfg,
		Store:    st,
		DocSvc:   docSvc,
		Docs:     docs,
		OCRSvc:   ocrSvc,
		Jobs:     jobs,
		Poller:   poller,
		Exporter: exporter,
		Logger:   logger,
	}
}

// Close releases the local databases
func (a *App) Close() error {
	return a.Store.Close()
}

// Outcome summarizes one file's trip through the pipeline
type Outcome struct {
	Document document.Document
	JobID    string
	Result   *ocr.Result

	// NeedsRestart marks an uploaded document whose processing never
	// started; "ocrdesk process <id>" retries it.
	NeedsRestart bool
}

// defaultOptions fills upload options from config where the caller left
// them empty.
func (a *App) defaultOptions(opts document.UploadOptions) document.UploadOptions {
	if opts.Language == "" {
		opts.Language = a.Config.Upload.Language
	}
	if opts.OCREngine == "" {
		opts.OCREngine = a.Config.Upload.Engine
	}
	if opts.Quality == "" {
		opts.Quality = a.Config.Upload.Quality
	}
	return opts
}

// ProcessFile runs one file through the whole pipeline. The upload and
// the OCR start are separate backend calls: when the start fails after a
// successful upload, the document is kept and marked for a manual
// restart instead of silently retrying.
func (a *App) ProcessFile(ctx context.Context, path, source string, opts document.UploadOptions) (*Outcome, error) {
	opts = a.defaultOptions(opts)
	fileName := filepath.Base(path)

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	uploaded, err := a.Docs.Upload(ctx, path, opts)
	if err != nil {
		metrics.RecordUpload(false, 0)
		a.recordUpload("", path, size, source, opts, err)
		return nil, err
	}
	metrics.RecordUpload(true, size)
	a.recordUpload(uploaded.Document.ID, path, size, source, opts, nil)

	outcome := &Outcome{Document: uploaded.Document}

	jobID, err := a.Jobs.StartOCR(ctx, ocr.StartRequest{
		DocumentID: uploaded.Document.ID,
		Options: ocr.StartOptions{
			Language: opts.Language,
			Engine:   opts.OCREngine,
			Quality:  opts.Quality,
		},
	})
	if err != nil {
		a.Docs.MarkUploadState(fileName, document.UploadStateFailed,
			"uploaded but processing did not start; run: ocrdesk process "+uploaded.Document.ID)
		outcome.NeedsRestart = true
		return outcome, err
	}
	outcome.JobID = jobID

	if err := a.Store.RecordJobStart(jobID, uploaded.Document.ID); err != nil {
		a.Logger.Warn("Failed to record job in history", zap.Error(err))
	}

	result, err := a.track(ctx, jobID, uploaded.Document.ID)
	if err != nil {
		a.Docs.MarkUploadState(fileName, document.UploadStateFailed, err.Error())
		return outcome, err
	}

	a.Docs.MarkUploadState(fileName, document.UploadStateCompleted, "")
	outcome.Result = result
	return outcome, nil
}

// ProcessDocument starts OCR for an already-uploaded document and tracks
// it to completion. This is the manual restart path.
func (a *App) ProcessDocument(ctx context.Context, documentID string, opts document.UploadOptions) (*ocr.Result, error) {
	opts = a.defaultOptions(opts)

	jobID, err := a.Jobs.StartOCR(ctx, ocr.StartRequest{
		DocumentID: documentID,
		Options: ocr.StartOptions{
			Language: opts.Language,
			Engine:   opts.OCREngine,
			Quality:  opts.Quality,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := a.Store.RecordJobStart(jobID, documentID); err != nil {
		a.Logger.Warn("Failed to record job in history", zap.Error(err))
	}

	return a.track(ctx, jobID, documentID)
}

// Reprocess re-runs OCR over one page region and tracks the new job.
// The cached result is dropped so the next read sees the fresh one.
func (a *App) Reprocess(ctx context.Context, req ocr.ReprocessRequest) (*ocr.Result, error) {
	documentID := req.DocumentID

	jobID, err := a.Jobs.Reprocess(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := a.Store.DropCachedResult(documentID); err != nil {
		a.Logger.Warn("Failed to drop cached result", zap.Error(err))
	}
	if err := a.Store.RecordJobStart(jobID, documentID); err != nil {
		a.Logger.Warn("Failed to record job in history", zap.Error(err))
	}

	return a.track(ctx, jobID, documentID)
}

// track waits for one polling run and settles history and the cache
func (a *App) track(ctx context.Context, jobID, documentID string) (*ocr.Result, error) {
	handle := a.Poller.Poll(ctx, jobID, documentID)
	err := handle.Wait(ctx)

	status := "completed"
	errMsg := ""
	if err != nil {
		status = "failed"
		errMsg = err.Error()
	}
	if finishErr := a.Store.FinishJob(jobID, status, errMsg, 0); finishErr != nil {
		a.Logger.Warn("Failed to finish job in history", zap.Error(finishErr))
	}

	if err != nil {
		return nil, err
	}

	result := a.Jobs.Result(documentID)
	if result != nil {
		if cacheErr := a.Store.CacheResult(result, resultCacheTTL); cacheErr != nil {
			a.Logger.Warn("Failed to cache result", zap.Error(cacheErr))
		}
	}
	return result, nil
}

// ResultFor returns a document's result, preferring the container, then
// the local cache, then the backend.
func (a *App) ResultFor(ctx context.Context, documentID string) (*ocr.Result, error) {
	if result := a.Jobs.Result(documentID); result != nil {
		return result, nil
	}

	if cached, err := a.Store.CachedResult(documentID); err == nil && cached != nil {
		return cached, nil
	}

	result, err := a.Jobs.GetResult(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if cacheErr := a.Store.CacheResult(result, resultCacheTTL); cacheErr != nil {
		a.Logger.Warn("Failed to cache result", zap.Error(cacheErr))
	}
	return result, nil
}

func (a *App) recordUpload(documentID, path string, size int64, source string, opts document.UploadOptions, uploadErr error) {
	rec := &store.UploadRecord{
		DocumentID: documentID,
		FileName:   filepath.Base(path),
		FilePath:   path,
		SizeBytes:  size,
		Language:   opts.Language,
		Engine:     opts.OCREngine,
		Quality:    opts.Quality,
		Source:     source,
		Success:    uploadErr == nil,
	}
	if uploadErr != nil {
		rec.Error = uploadErr.Error()
	}
	if err := a.Store.RecordUpload(rec); err != nil {
		a.Logger.Warn("Failed to record upload in history", zap.Error(err))
	}
}
