package watch

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
)

// Maintenance runs the daemon's recurring chores on cron schedules:
// marking jobs orphaned by a dead polling loop and compacting the result
// cache.
type Maintenance struct {
	cron   *cron.Cron
	store  *store.Store
	cfg    config.Watch
	logger *zap.Logger
}

// NewMaintenance creates the maintenance scheduler
func NewMaintenance(cfg config.Watch, st *store.Store, logger *zap.Logger) *Maintenance {
	return &Maintenance{
		cron:   cron.New(),
		store:  st,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the schedules and begins running them
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(m.cfg.SweepCron, m.sweepStaleJobs); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc(m.cfg.CacheGCCron, m.runCacheGC); err != nil {
		return err
	}

	m.cron.Start()
	m.logger.Info("Maintenance scheduler started",
		zap.String("sweep", m.cfg.SweepCron),
		zap.String("cache_gc", m.cfg.CacheGCCron),
	)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("Maintenance scheduler stopped")
}

func (m *Maintenance) sweepStaleJobs() {
	// Anything open for twice the polling ceiling has lost its poller
	swept, err := m.store.SweepStaleJobs(10 * time.Minute)
	if err != nil {
		m.logger.Error("Stale job sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		m.logger.Info("Marked stale jobs as orphaned", zap.Int64("count", swept))
	}
}

func (m *Maintenance) runCacheGC() {
	if err := m.store.RunCacheGC(); err != nil {
		m.logger.Error("Result cache GC failed", zap.Error(err))
	}
}
