package pipeline

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/ccp-p/video-dub-cli/dub-processor/internal/ui"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// BatchResult 存储单个任务的批处理结果
type BatchResult struct {
	JobPath     string
	Success     bool
	Result      *models.Result
	Error       error
	ProcessTime time.Duration
}

// BatchProgressCallback 批处理进度回调
// result为nil表示任务刚开始
type BatchProgressCallback func(current, total int, jobName string, result *BatchResult)

// BatchProcessor 并发处理任务文件夹里的全部清单
type BatchProcessor struct {
	Pipeline         *Pipeline
	Config           *models.Config
	ProgressCallback BatchProgressCallback
	Progress         *ui.BatchProgress

	errorHandler *utils.ErrorHandler
}

// NewBatchProcessor 创建批处理器
func NewBatchProcessor(pipeline *Pipeline, config *models.Config, callback BatchProgressCallback) *BatchProcessor {
	return &BatchProcessor{
		Pipeline:         pipeline,
		Config:           config,
		ProgressCallback: callback,
		errorHandler:     utils.NewErrorHandler(config.MaxRetries, config.RetryDelay),
	}
}

// SetProgress 设置批量进度跟踪器
func (p *BatchProcessor) SetProgress(progress *ui.BatchProgress) {
	p.Progress = progress
}

// ProcessJobs 并发处理全部任务清单
func (p *BatchProcessor) ProcessJobs() ([]BatchResult, error) {
	// 上次运行异常退出可能留下临时块目录
	if p.Config.TempDir != "" {
		utils.RemoveOrphanedWorkDirs(p.Config.TempDir, "chunks_")
	}

	jobs, err := ScanJobs(p.Config.JobsFolder)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return []BatchResult{}, nil
	}

	if p.Progress != nil {
		p.Progress.Start(len(jobs))
	}

	results := make(chan BatchResult, len(jobs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.Config.MaxWorkers) // 信号量限制并发

	for i, jobPath := range jobs {
		wg.Add(1)
		sem <- struct{}{}

		go func(index int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			jobName := filepath.Base(path)
			startTime := time.Now()

			if p.ProgressCallback != nil {
				p.ProgressCallback(index+1, len(jobs), jobName, nil)
			}

			result := p.processSingleJob(path)
			result.ProcessTime = time.Since(startTime)

			if p.ProgressCallback != nil {
				p.ProgressCallback(index+1, len(jobs), jobName, &result)
			}

			if p.Progress != nil {
				p.Progress.JobDone(jobName, result.Success)
			}

			results <- result
		}(i, jobPath)
	}

	wg.Wait()
	close(results)

	if p.Progress != nil {
		p.Progress.Finish()
	}

	allResults := make([]BatchResult, 0, len(jobs))
	for result := range results {
		allResults = append(allResults, result)
	}

	p.errorHandler.PrintErrorStats()
	return allResults, nil
}

// ProcessJob 处理单个清单，供监听模式在新清单落盘时调用
func (p *BatchProcessor) ProcessJob(jobPath string) BatchResult {
	startTime := time.Now()
	result := p.processSingleJob(jobPath)
	result.ProcessTime = time.Since(startTime)
	return result
}

// processSingleJob 处理单个清单，按配置重试
func (p *BatchProcessor) processSingleJob(jobPath string) BatchResult {
	result := BatchResult{JobPath: jobPath}

	err := p.errorHandler.Retry("处理任务 "+filepath.Base(jobPath), func() error {
		jobResult, err := p.Pipeline.ProcessJob(jobPath)
		if err != nil {
			return err
		}
		result.Result = jobResult
		return nil
	})
	if err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}
