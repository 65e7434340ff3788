package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBarClampsToTotal(t *testing.T) {
	bar := NewProgressBar(10, "测试", "")
	bar.Update(15, "")
	assert.Equal(t, 10, bar.Current)

	bar.Update(-1, "")
	assert.Equal(t, 10, bar.Current)
}

func TestProgressBarString(t *testing.T) {
	bar := NewProgressBar(10, "任务", "")
	bar.Current = 5

	s := bar.String()
	assert.True(t, strings.HasPrefix(s, "任务"))
	assert.Contains(t, s, "50%")
	assert.Contains(t, s, "5/10")
}

func TestProgressBarZeroTotal(t *testing.T) {
	bar := NewProgressBar(0, "空", "")
	assert.NotPanics(t, func() { _ = bar.String() })
}

func TestBatchProgressCountsJobs(t *testing.T) {
	bp := NewBatchProgress(true)
	bp.Start(3)

	bp.JobDone("a.json", true)
	bp.JobDone("b.json", false)
	bp.JobDone("c.json", true)

	assert.Equal(t, 3, bp.Done())
	assert.Equal(t, 1, bp.Failed())
	bp.Finish()
}

func TestBatchProgressRestartResetsCounts(t *testing.T) {
	bp := NewBatchProgress(true)
	bp.Start(2)
	bp.JobDone("a.json", false)
	bp.Finish()

	bp.Start(1)
	assert.Equal(t, 0, bp.Done())
	assert.Equal(t, 0, bp.Failed())
}

func TestBatchProgressDisabled(t *testing.T) {
	bp := NewBatchProgress(false)

	// 禁用状态下所有操作都是安全的no-op
	assert.NotPanics(t, func() {
		bp.Start(3)
		bp.JobDone("a.json", true)
		bp.Finish()
	})
	assert.Equal(t, 0, bp.Done())
}
