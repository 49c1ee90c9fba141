// Package watch implements the hot folder: files dropped into a watched
// directory are uploaded and processed automatically. It also hosts the
// maintenance scheduler for the watch daemon.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
)

// Handler processes one settled file from the hot folder
type Handler func(ctx context.Context, path string) error

// Watcher watches one directory and hands settled files to the handler.
// A file is settled once its size has stopped changing for the configured
// delay; editors and scanners write in bursts.
type Watcher struct {
	cfg     config.Watch
	appCfg  *config.Config
	handler Handler
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a hot-folder watcher
func New(cfg *config.Config, handler Handler, logger *zap.Logger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:     cfg.Watch,
		appCfg:  cfg,
		handler: handler,
		logger:  logger,
		pending: make(map[string]*time.Timer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins watching. It returns once the notify watch is registered;
// event handling runs in the background until Stop.
func (w *Watcher) Start() error {
	if w.cfg.Dir == "" {
		return fmt.Errorf("watch directory not configured")
	}
	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsWatcher.Add(w.cfg.Dir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}

	w.logger.Info("Watching hot folder", zap.String("dir", w.cfg.Dir))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsWatcher.Close()
		w.loop(fsWatcher)
	}()

	// Pick up files already sitting in the folder
	w.sweepExisting()

	return nil
}

// Stop stops watching and waits for in-flight handlers
func (w *Watcher) Stop() {
	w.cancel()

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("Hot folder watcher stopped")
}

func (w *Watcher) loop(fsWatcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(event.Name)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) sweepExisting() {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("Failed to read watch directory", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.schedule(filepath.Join(w.cfg.Dir, entry.Name()))
		}
	}
}

// schedule (re)arms the settle timer for a path. Every write pushes the
// timer out again, so the handler only ever sees quiet files.
func (w *Watcher) schedule(path string) {
	if !w.appCfg.AllowedType(filepath.Ext(path)) {
		return
	}

	delay := time.Duration(w.cfg.SettleDelay) * time.Second
	if delay <= 0 {
		delay = 2 * time.Second
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(delay)
		return
	}

	w.pending[path] = time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.process(path)
	})
}

func (w *Watcher) process(path string) {
	if w.ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return // removed before it settled
	}

	metrics.RecordWatchPickup()
	w.logger.Info("Picked up file", zap.String("path", path))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.handler(w.ctx, path); err != nil {
			w.logger.Error("Failed to process file", zap.String("path", path), zap.Error(err))
			return
		}
		if err := os.Remove(path); err != nil {
			w.logger.Warn("Failed to remove processed file", zap.String("path", path), zap.Error(err))
		}
	}()
}
