package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

func setupWatcher(t *testing.T, rec *recorder) (*Watcher, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Watch.Enabled = true
	cfg.Watch.Dir = dir
	cfg.Watch.SettleDelay = 1

	w := New(cfg, rec.handle, zap.NewNop())
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	return w, dir
}

func TestWatcher_PicksUpNewFile(t *testing.T) {
	rec := &recorder{}
	_, dir := setupWatcher(t, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.pdf"), []byte("pdf"), 0644))

	require.Eventually(t, func() bool {
		return len(rec.seen()) == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"scan.pdf"}, rec.seen())

	// Processed files are removed from the folder
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "scan.pdf"))
		return os.IsNotExist(err)
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_IgnoresUnsupportedTypes(t *testing.T) {
	rec := &recorder{}
	_, dir := setupWatcher(t, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return len(rec.seen()) == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"photo.jpg"}, rec.seen())
}

func TestWatcher_PicksUpPreexistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backlog.png"), []byte("x"), 0644))

	rec := &recorder{}
	cfg := config.DefaultConfig()
	cfg.Watch.Enabled = true
	cfg.Watch.Dir = dir
	cfg.Watch.SettleDelay = 1

	w := New(cfg, rec.handle, zap.NewNop())
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool {
		return len(rec.seen()) == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"backlog.png"}, rec.seen())
}
