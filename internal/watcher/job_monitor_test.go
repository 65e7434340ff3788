package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMonitorDispatchesManifest(t *testing.T) {
	dir := t.TempDir()
	received := make(chan string, 1)

	monitor, err := NewJobMonitor(dir, func(jobPath string) {
		received <- jobPath
	}, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, monitor.Start())
	defer monitor.Stop()

	jobPath := filepath.Join(dir, "job.json")
	require.NoError(t, os.WriteFile(jobPath, []byte(`{"video_path": "v.mp4"}`), 0644))

	select {
	case got := <-received:
		assert.Equal(t, jobPath, got)
	case <-time.After(3 * time.Second):
		t.Fatal("超时: 未收到任务清单回调")
	}
}

func TestJobMonitorIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	received := make(chan string, 1)

	monitor, err := NewJobMonitor(dir, func(jobPath string) {
		received <- jobPath
	}, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, monitor.Start())
	defer monitor.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	select {
	case got := <-received:
		t.Fatalf("不应收到回调: %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestJobMonitorDebouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	received := make(chan string, 4)

	monitor, err := NewJobMonitor(dir, func(jobPath string) {
		received <- jobPath
	}, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, monitor.Start())
	defer monitor.Stop()

	jobPath := filepath.Join(dir, "job.json")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(jobPath, []byte(`{}`), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	// 连续写入只触发一次回调
	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("超时: 未收到任务清单回调")
	}
	select {
	case <-received:
		t.Fatal("去抖失效: 收到了重复回调")
	case <-time.After(300 * time.Millisecond):
	}
}
