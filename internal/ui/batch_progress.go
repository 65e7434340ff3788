package ui

import (
	"fmt"
	"sync"
)

// BatchProgress 跟踪一批配音任务的整体进度
// 批处理的工作协程并发汇报，内部用互斥锁保护进度条
type BatchProgress struct {
	mutex   sync.Mutex
	enabled bool
	bar     *ProgressBar
	total   int
	done    int
	failed  int
}

// NewBatchProgress 创建批量进度跟踪器
func NewBatchProgress(enabled bool) *BatchProgress {
	return &BatchProgress{enabled: enabled}
}

// Start 初始化总进度条
func (bp *BatchProgress) Start(total int) {
	if !bp.enabled || total <= 0 {
		return
	}
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	bp.total = total
	bp.done = 0
	bp.failed = 0
	bp.bar = NewProgressBar(total, "总体进度", fmt.Sprintf("0/%d 任务已处理", total))
}

// JobDone 记录一个任务结束并推进进度条
func (bp *BatchProgress) JobDone(jobName string, ok bool) {
	if !bp.enabled {
		return
	}
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	if bp.bar == nil {
		return
	}

	bp.done++
	if !ok {
		bp.failed++
	}
	bp.bar.Update(bp.done, fmt.Sprintf("%d/%d 任务已处理 (%s)", bp.done, bp.total, jobName))
}

// Finish 完成进度条并给出失败汇总
func (bp *BatchProgress) Finish() {
	if !bp.enabled {
		return
	}
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	if bp.bar == nil {
		return
	}

	if bp.failed > 0 {
		bp.bar.Complete(fmt.Sprintf("处理完成, %d 个任务失败", bp.failed))
	} else {
		bp.bar.Complete("所有任务处理完成")
	}
	bp.bar = nil
}

// Done 返回已结束的任务数
func (bp *BatchProgress) Done() int {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	return bp.done
}

// Failed 返回失败的任务数
func (bp *BatchProgress) Failed() int {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	return bp.failed
}
