package ocr

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
)

// Handle tracks one polling run. Cancel is idempotent and safe to call
// after the run has finished.
type Handle struct {
	JobID string

	cancel    context.CancelFunc
	done      chan struct{}
	cancelled atomic.Bool

	mu  sync.Mutex
	err error
}

// Cancel stops the run. A run that already reached a terminal state is
// unaffected.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
	h.cancel()
}

// IsCancelled reports whether Cancel was called
func (h *Handle) IsCancelled() bool {
	return h.cancelled.Load()
}

// Done is closed when the run finishes for any reason
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the terminal error of the run, nil on success. Valid only
// after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Wait blocks until the run finishes or the context expires
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poller drives a started job to completion: an immediate first status
// fetch, then one fetch per fixed interval, bounded by the attempt limit.
// Every observation lands in the store; the store is how the rest of the
// client sees polling outcomes.
type Poller struct {
	svc    Service
	store  *Store
	cfg    config.Polling
	logger *zap.Logger
}

// NewPoller creates a poller writing into the given store
func NewPoller(svc Service, store *Store, cfg config.Polling, logger *zap.Logger) *Poller {
	return &Poller{svc: svc, store: store, cfg: cfg, logger: logger}
}

// Poll starts tracking a job in a background goroutine and returns a
// cancellable handle.
func (p *Poller) Poll(ctx context.Context, jobID, documentID string) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		JobID:  jobID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	metrics.Default().PollStarted()
	go func() {
		defer metrics.Default().PollFinished()
		defer cancel()
		h.finish(p.run(ctx, jobID, documentID))
	}()

	return h
}

// run issues at most MaxAttempts status requests. Consecutive transport
// failures are retried with a linearly growing delay up to the configured
// budget; each retry still consumes an attempt. Backend rejections
// (4xx shapes) are not retried.
func (p *Poller) run(ctx context.Context, jobID, documentID string) error {
	var consecutiveFailures int

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.cfg.Interval
			if consecutiveFailures > 0 {
				delay = p.cfg.Interval * time.Duration(consecutiveFailures)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return p.cancelError(ctx, jobID)
			}
		}

		metrics.RecordPollTick()
		status, err := p.svc.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return p.cancelError(ctx, jobID)
			}
			if !apperrors.IsTransient(err) {
				p.store.recordError(err.Error())
				p.logger.Error("Polling aborted", zap.String("job_id", jobID), zap.Error(err))
				return err
			}

			consecutiveFailures++
			metrics.RecordPollRetry()
			if consecutiveFailures > p.cfg.TransportRetries {
				wrapped := apperrors.Wrap(err, "HTTP_001", "status polling lost contact with the backend")
				p.store.recordError(wrapped.Error())
				p.logger.Error("Polling gave up after repeated transport failures",
					zap.String("job_id", jobID),
					zap.Int("consecutive_failures", consecutiveFailures),
				)
				return wrapped
			}

			p.logger.Warn("Status fetch failed, retrying",
				zap.String("job_id", jobID),
				zap.Int("consecutive_failures", consecutiveFailures),
				zap.Error(err),
			)
			continue
		}
		consecutiveFailures = 0

		p.store.setStatus(status)

		switch status.Status {
		case JobCompleted:
			metrics.RecordJobFinished(string(JobCompleted))
			// One result fetch per completion; its failure is surfaced
			// through the container like every other polling outcome.
			if _, err := p.store.GetResult(ctx, documentID); err != nil {
				return err
			}
			p.logger.Info("Job completed",
				zap.String("job_id", jobID),
				zap.String("document_id", documentID),
				zap.Int("attempts", attempt),
			)
			return nil

		case JobFailed:
			metrics.RecordJobFinished(string(JobFailed))
			msg := status.Error
			if msg == "" {
				msg = "processing failed"
			}
			jobErr := apperrors.New("JOB_001", msg)
			p.store.recordError(jobErr.Error())
			p.logger.Warn("Job failed",
				zap.String("job_id", jobID),
				zap.String("reason", msg),
			)
			return jobErr
		}
	}

	metrics.RecordJobFinished("timeout")
	timeoutErr := apperrors.New("POLL_001", "job did not finish within the polling window")
	p.store.recordError(timeoutErr.Error())
	p.logger.Warn("Polling timed out",
		zap.String("job_id", jobID),
		zap.Int("attempts", p.cfg.MaxAttempts),
	)
	return timeoutErr
}

func (p *Poller) cancelError(ctx context.Context, jobID string) error {
	metrics.RecordJobFinished("cancelled")
	err := apperrors.Wrap(ctx.Err(), "POLL_002", "polling cancelled")
	p.store.recordError(err.Error())
	p.logger.Info("Polling cancelled", zap.String("job_id", jobID))
	return err
}
