package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/solrdex/internal/config"
)

type recordingHandler struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (h *recordingHandler) Index(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.indexed = append(h.indexed, path)
	return nil
}

func (h *recordingHandler) Remove(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed = append(h.removed, path)
	return nil
}

func (h *recordingHandler) snapshot() (indexed, removed []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.indexed...), append([]string(nil), h.removed...)
}

func watchConfig(dirs ...string) config.WatchConfig {
	recursive := true
	return config.WatchConfig{Directories: dirs, Extensions: []string{".json", ".yml"}, Recursive: &recursive}
}

func startWatcher(t *testing.T, cfg config.WatchConfig, h Handler) *Watcher {
	t.Helper()
	w := New(cfg, h, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(w.Stop)
	return w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 20*time.Millisecond)
}

func contains(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, watchConfig(), &recordingHandler{})

	require.NoError(t, w.AddDirectory(dir, false))
	require.NoError(t, w.AddDirectory(dir, false))
	dirs := w.Directories()
	require.Len(t, dirs, 1)
	assert.Equal(t, filepath.Clean(dir), filepath.Clean(dirs[0]))

	require.NoError(t, w.RemoveDirectory(dir))
	assert.Empty(t, w.Directories())
}

func TestWatcher_IndexesAndRemovesSpoolFiles(t *testing.T) {
	dir := t.TempDir()
	h := &recordingHandler{}
	startWatcher(t, watchConfig(dir), h)

	path := filepath.Join(dir, "sub-post.json")
	require.NoError(t, writeFile(path, `{"type":"Post","id":1}`))
	require.NoError(t, writeFile(filepath.Join(dir, "notes.txt"), "skip"))
	waitFor(t, func() bool {
		indexed, _ := h.snapshot()
		return contains(indexed, "sub-post.json")
	})

	require.NoError(t, os.Remove(path))
	waitFor(t, func() bool {
		_, removed := h.snapshot()
		return contains(removed, "sub-post.json")
	})

	indexed, _ := h.snapshot()
	assert.False(t, contains(indexed, "notes.txt"), "files with other extensions should be ignored")
}

func TestWatcher_DebounceCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	h := &recordingHandler{}
	w := New(watchConfig(dir), h, WithDebounce(300*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	path := filepath.Join(dir, "post.json")
	for i := 0; i < 3; i++ {
		require.NoError(t, writeFile(path, `{"type":"Post","id":1}`))
	}
	time.Sleep(800 * time.Millisecond)
	indexed, _ := h.snapshot()
	assert.Len(t, indexed, 1, "expected one debounced index call")
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.json", []string{".json"}, true},
		{"/a/b.JSON", []string{".json"}, true},
		{"/a/b.yml", []string{"yml"}, true},
		{"/a/b.md", []string{".json"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchExtension(tt.path, tt.extensions), "matchExtension(%q, %v)", tt.path, tt.extensions)
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.json", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inDir(tt.dir, tt.path), "inDir(%q, %q)", tt.dir, tt.path)
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "a.json"), `{"type":"Post"}`))
	require.NoError(t, writeFile(filepath.Join(dir, "ignore.xyz"), "x"))
	h := &recordingHandler{}
	w := startWatcher(t, watchConfig(dir), h)
	w.SyncExistingFiles()

	indexed, _ := h.snapshot()
	require.Len(t, indexed, 1)
	assert.True(t, strings.HasSuffix(indexed[0], "a.json"), "synced %v", indexed)
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "spool", "incoming")
	startWatcher(t, watchConfig(root), nil)
	assert.DirExists(t, root)
}

func TestWatcher_NewDirectorySpoolsNestedFiles(t *testing.T) {
	dir := t.TempDir()
	h := &recordingHandler{}
	startWatcher(t, watchConfig(dir), h)

	nested := filepath.Join(dir, "level1", "level2")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, writeFile(filepath.Join(nested, "deep.yml"), "type: Post\nid: 2\n"))
	waitFor(t, func() bool {
		indexed, _ := h.snapshot()
		return contains(indexed, "deep.yml")
	})
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
