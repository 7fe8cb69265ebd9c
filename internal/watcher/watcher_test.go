package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// changeRecorder collects callback invocations from the watch goroutine.
type changeRecorder struct {
	mu    sync.Mutex
	names []string
	ch    chan string
}

func newChangeRecorder() *changeRecorder {
	return &changeRecorder{ch: make(chan string, 16)}
}

func (r *changeRecorder) onChange(name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	select {
	case r.ch <- name:
	default:
	}
}

func (r *changeRecorder) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-r.ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change event for %q", want)
		}
	}
}

func (r *changeRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestStartMissingDirectoryFails(t *testing.T) {
	w := New()
	err := w.Start(filepath.Join(t.TempDir(), "absent"), []string{"all.yaml"}, func(string) {})
	require.Error(t, err)
	assert.False(t, w.IsRunning())
}

func TestStartOnFileFails(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "all.yaml")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	w := New()
	require.Error(t, w.Start(file, []string{"all.yaml"}, func(string) {}))
	assert.False(t, w.IsRunning())
}

func TestWatcherReportsTrackedChanges(t *testing.T) {
	dir := t.TempDir()
	rec := newChangeRecorder()

	w := New()
	require.NoError(t, w.Start(dir, []string{"mihomo.yaml"}, rec.onChange))
	defer w.Stop()
	assert.True(t, w.IsRunning())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "mihomo.yaml"), []byte("mode: rule\n"), 0o644))
	rec.waitFor(t, "mihomo.yaml")
}

func TestWatcherFiltersByFilename(t *testing.T) {
	dir := t.TempDir()
	rec := newChangeRecorder()

	w := New()
	require.NoError(t, w.Start(dir, []string{"all.yaml"}, rec.onChange))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "all.yaml"), []byte("proxies: []\n"), 0o644))

	rec.waitFor(t, "all.yaml")
	for _, name := range rec.seen() {
		assert.Equal(t, "all.yaml", name, "untracked files must not trigger the callback")
	}
}

func TestStopJoinsAndSilencesEvents(t *testing.T) {
	dir := t.TempDir()
	rec := newChangeRecorder()

	w := New()
	require.NoError(t, w.Start(dir, []string{"all.yaml"}, rec.onChange))
	w.Stop()
	assert.False(t, w.IsRunning())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "all.yaml"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.seen())
}

func TestStartWhileRunningReplacesSession(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	rec := newChangeRecorder()

	w := New()
	require.NoError(t, w.Start(dirA, []string{"a.yaml"}, rec.onChange))
	require.NoError(t, w.Start(dirB, []string{"b.yaml"}, rec.onChange))
	defer w.Stop()

	// Only the new session is live: events in dirA are stale.
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "a.yaml"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "b.yaml"), []byte("b"), 0o644))

	rec.waitFor(t, "b.yaml")
	time.Sleep(200 * time.Millisecond)
	for _, name := range rec.seen() {
		assert.Equal(t, "b.yaml", name, "stale session events must not be delivered")
	}
}

func TestStopTwiceIsSafe(t *testing.T) {
	dir := t.TempDir()
	w := New()
	require.NoError(t, w.Start(dir, []string{"all.yaml"}, func(string) {}))
	w.Stop()
	w.Stop()
}
