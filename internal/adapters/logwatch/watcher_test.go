package logwatch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWatchReportsContentAfterWrite(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	w, err := NewWatcher(nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	var mu sync.Mutex
	var got []string
	require.NoError(t, w.Watch(logPath, func(content string) {
		mu.Lock()
		got = append(got, content)
		mu.Unlock()
	}))

	require.NoError(t, os.WriteFile(logPath, []byte("FAIL: TestThing\n"), 0644))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	})
	mu.Lock()
	assert.Contains(t, got[0], "FAIL: TestThing")
	mu.Unlock()
}

func TestWatchSurvivesTruncateAndRecreate(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")
	require.NoError(t, os.WriteFile(logPath, []byte("first run\n"), 0644))

	w, err := NewWatcher(nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	var mu sync.Mutex
	var last string
	require.NoError(t, w.Watch(logPath, func(content string) {
		mu.Lock()
		last = content
		mu.Unlock()
	}))

	require.NoError(t, os.Remove(logPath))
	require.NoError(t, os.WriteFile(logPath, []byte("second run\n"), 0644))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == "second run\n"
	})
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	w, err := NewWatcher(nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	called := make(chan struct{}, 1)
	require.NoError(t, w.Watch(logPath, func(string) {
		select {
		case called <- struct{}{}:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644))

	select {
	case <-called:
		t.Fatal("callback fired for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w, err := NewWatcher(nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	err = w.Watch(filepath.Join(t.TempDir(), "no", "such", "dir", "test.log"), func(string) {})
	assert.Error(t, err)
}

func TestStopTwice(t *testing.T) {
	w, err := NewWatcher(nil)
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
