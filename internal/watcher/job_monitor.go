package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// JobHandler 处理新出现的任务清单
type JobHandler func(jobPath string)

// JobMonitor 监听任务文件夹，新落盘的清单去抖后交给处理器
// 去抖是为了等清单写完整，上游工具往往分多次写入
type JobMonitor struct {
	watcher      *fsnotify.Watcher
	folderPath   string
	handler      JobHandler
	debounceTime time.Duration
	pendingJobs  map[string]*time.Timer
	mutex        sync.Mutex
	stopChan     chan struct{}
}

// NewJobMonitor 创建任务清单监听器
func NewJobMonitor(folderPath string, handler JobHandler, debounceTime time.Duration) (*JobMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &JobMonitor{
		watcher:      watcher,
		folderPath:   folderPath,
		handler:      handler,
		debounceTime: debounceTime,
		pendingJobs:  make(map[string]*time.Timer),
		stopChan:     make(chan struct{}),
	}, nil
}

// Start 开始监听任务文件夹
func (m *JobMonitor) Start() error {
	if err := os.MkdirAll(m.folderPath, 0755); err != nil {
		return fmt.Errorf("创建任务文件夹失败: %w", err)
	}

	if err := m.watcher.Add(m.folderPath); err != nil {
		return fmt.Errorf("添加监控文件夹失败: %w", err)
	}

	go m.watchLoop()

	utils.Info("开始监听任务文件夹: %s", m.folderPath)
	return nil
}

// Stop 停止监听并取消待处理的清单
func (m *JobMonitor) Stop() {
	close(m.stopChan)
	m.watcher.Close()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, timer := range m.pendingJobs {
		timer.Stop()
	}
	utils.Info("停止监听任务文件夹: %s", m.folderPath)
}

func (m *JobMonitor) watchLoop() {
	for {
		select {
		case <-m.stopChan:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			utils.Error("监听任务文件夹出错: %v", err)
		}
	}
}

func (m *JobMonitor) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !m.isJobManifest(event.Name) {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if timer, exists := m.pendingJobs[event.Name]; exists {
		timer.Stop()
	}
	jobPath := event.Name
	m.pendingJobs[jobPath] = time.AfterFunc(m.debounceTime, func() {
		m.dispatch(jobPath)
	})

	utils.Debug("检测到任务清单变化: %s", jobPath)
}

func (m *JobMonitor) isJobManifest(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return strings.ToLower(filepath.Ext(path)) == ".json"
}

func (m *JobMonitor) dispatch(jobPath string) {
	m.mutex.Lock()
	delete(m.pendingJobs, jobPath)
	m.mutex.Unlock()

	if _, err := os.Stat(jobPath); os.IsNotExist(err) {
		return
	}

	utils.Info("发现新任务清单: %s", jobPath)
	if m.handler != nil {
		m.handler(jobPath)
	}
}

// StartJobMonitoring 便捷函数：启动监听并返回停止函数
func StartJobMonitoring(jobsFolder string, handler JobHandler, debounceTime time.Duration) (func(), error) {
	monitor, err := NewJobMonitor(jobsFolder, handler, debounceTime)
	if err != nil {
		return nil, err
	}
	if err := monitor.Start(); err != nil {
		return nil, err
	}
	return monitor.Stop, nil
}
