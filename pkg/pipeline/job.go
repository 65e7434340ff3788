package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// LoadJob 加载并校验一个任务清单
// 清单里的相对路径按清单所在目录解析
func LoadJob(path string, config *models.Config) (models.DubJob, error) {
	var job models.DubJob
	if err := utils.LoadJSONFile(path, &job); err != nil {
		return job, fmt.Errorf("加载任务清单失败: %w", err)
	}

	if job.VideoPath == "" {
		return job, fmt.Errorf("任务清单缺少video_path: %s", path)
	}

	if job.Strategy == "" {
		job.Strategy = config.Strategy
	}
	if _, err := models.ParseStrategy(job.Strategy); err != nil {
		return job, fmt.Errorf("任务清单 %s: %w", path, err)
	}

	manifestDir := filepath.Dir(path)
	job.VideoPath = resolvePath(manifestDir, job.VideoPath)
	if job.RegionsPath != "" {
		job.RegionsPath = resolvePath(manifestDir, job.RegionsPath)
	}
	for i := range job.Segments {
		job.Segments[i].Path = resolvePath(manifestDir, job.Segments[i].Path)
	}

	if !utils.CheckFileExists(job.VideoPath) {
		return job, fmt.Errorf("视频文件不存在: %s", job.VideoPath)
	}

	if job.OutputPath == "" {
		base := filepath.Base(job.VideoPath)
		ext := filepath.Ext(base)
		job.OutputPath = filepath.Join(config.OutputFolder,
			strings.TrimSuffix(base, ext)+"_dubbed"+ext)
	} else {
		job.OutputPath = resolvePath(manifestDir, job.OutputPath)
	}

	return job, nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ScanJobs 扫描任务文件夹里的JSON清单，按文件名排序
func ScanJobs(jobsFolder string) ([]string, error) {
	if _, err := os.Stat(jobsFolder); os.IsNotExist(err) {
		return nil, fmt.Errorf("任务文件夹不存在: %s", jobsFolder)
	}

	entries, err := os.ReadDir(jobsFolder)
	if err != nil {
		return nil, err
	}

	var jobs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".json" {
			continue
		}
		jobs = append(jobs, filepath.Join(jobsFolder, entry.Name()))
	}
	sort.Strings(jobs)

	return jobs, nil
}
