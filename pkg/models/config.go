package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Config 表示应用程序的配置
type Config struct {
    JobsFolder   string  `json:"jobs_folder"`    // 任务清单所在文件夹
    OutputFolder string  `json:"output_folder"`  // 输出结果文件夹
    TempDir      string  `json:"temp_dir"`       // 临时目录
    MaxRetries   int     `json:"max_retries"`    // 批处理层最大重试次数
    MaxWorkers   int     `json:"max_workers"`    // 并行处理的任务数
    RetryDelay   float64 `json:"retry_delay"`    // 重试延迟（秒）
    Strategy     string  `json:"strategy"`       // 默认重构策略
    MaxChars     int     `json:"max_chars"`      // 单条字幕最大字符数
    SampleRate   int     `json:"sample_rate"`    // 混音采样率（Hz）
    FrameRate    int     `json:"frame_rate"`     // 重构输出固定帧率
    VideoBitrate string  `json:"video_bitrate"`  // 重构输出视频码率
    Preset       string  `json:"preset"`         // x264编码preset
    ExportSRT    bool    `json:"export_srt"`     // 是否导出SRT字幕文件
    ExportJSON   bool    `json:"export_json"`    // 是否导出字幕JSON
    ShowProgress bool    `json:"show_progress"`  // 显示进度条
    WatchMode    bool    `json:"watch_mode"`     // 是否启用任务文件夹监听模式
    RIFEModelDir string  `json:"rife_model_dir"` // 插帧工具所在的models目录
    LogLevel     string  `json:"log_level"`      // 日志级别
    LogFile      string  `json:"log_file"`       // 日志文件
}

// ConfigValidationError 表示配置验证错误
type ConfigValidationError struct {
    Field   string
    Message string
}

func (e *ConfigValidationError) Error() string {
    msg := fmt.Sprintf("配置验证错误: %s - %s", e.Field, e.Message)
    logrus.Error(msg)
    return msg
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
    return &Config{
        JobsFolder:   "./jobs",
        OutputFolder: "./output",
        TempDir:      "",
        MaxRetries:   3,
        MaxWorkers:   2,
        RetryDelay:   1.0,
        Strategy:     string(StrategySpeedChange),
        MaxChars:     30,
        SampleRate:   44100,
        FrameRate:    30,
        VideoBitrate: "4M",
        Preset:       "fast",
        ExportSRT:    true,
        ExportJSON:   false,
        ShowProgress: true,
        WatchMode:    false,
        RIFEModelDir: "./models",
        LogLevel:     "INFO",
        LogFile:      "",
    }
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
    // 验证文件夹路径
    if err := ensureDirExists(c.JobsFolder); err != nil {
        return &ConfigValidationError{"JobsFolder", err.Error()}
    }

    if err := ensureDirExists(c.OutputFolder); err != nil {
        return &ConfigValidationError{"OutputFolder", err.Error()}
    }

    // 验证策略取值
    if _, err := ParseStrategy(c.Strategy); err != nil {
        return &ConfigValidationError{"Strategy", err.Error()}
    }

    // 验证数值范围
    if c.MaxRetries < 1 || c.MaxRetries > 10 {
        return &ConfigValidationError{"MaxRetries", "必须在1-10之间"}
    }

    if c.MaxWorkers < 1 || c.MaxWorkers > 16 {
        return &ConfigValidationError{"MaxWorkers", "必须在1-16之间"}
    }

    if c.MaxChars < 10 || c.MaxChars > 100 {
        return &ConfigValidationError{"MaxChars", "必须在10-100之间"}
    }

    if c.SampleRate != 16000 && c.SampleRate != 22050 && c.SampleRate != 44100 && c.SampleRate != 48000 {
        return &ConfigValidationError{"SampleRate", "仅支持16000/22050/44100/48000"}
    }

    if c.FrameRate < 10 || c.FrameRate > 120 {
        return &ConfigValidationError{"FrameRate", "必须在10-120之间"}
    }

    if c.RetryDelay < 0.1 || c.RetryDelay > 10.0 {
        return &ConfigValidationError{"RetryDelay", "必须在0.1-10.0秒之间"}
    }

    return nil
}

// LoadFromFile 从文件加载配置
func (c *Config) LoadFromFile(path string) error {
    data, err := os.ReadFile(path)
    if err != nil {
        logrus.Errorf("读取配置文件失败: %v", err)
        return err
    }

    err = json.Unmarshal(data, c)
    if err != nil {
        logrus.Errorf("解析配置文件失败: %v", err)
        return err
    }

    if err := c.Validate(); err != nil {
        logrus.Errorf("配置验证失败: %v", err)
        return err
    }

    return nil
}

// SaveToFile 保存配置到文件
func (c *Config) SaveToFile(path string) error {
    // 确保目录存在
    dir := filepath.Dir(path)
    if err := os.MkdirAll(dir, 0755); err != nil {
        logrus.Errorf("创建目录失败: %v", err)
        return err
    }

    data, err := json.MarshalIndent(c, "", "  ")
    if err != nil {
        logrus.Errorf("序列化配置失败: %v", err)
        return err
    }

    err = os.WriteFile(path, data, 0644)
    if err != nil {
        logrus.Errorf("写入配置文件失败: %v", err)
        return err
    }

    return nil
}

// Update 批量更新配置
func (c *Config) Update(updates map[string]interface{}) error {
    // 创建临时配置并保存当前配置（用于回滚）
    tempConfig := *c

    // 将更新序列化为JSON再反序列化到结构体中
    // 这种方式处理map到struct的转换较为方便
    updateBytes, err := json.Marshal(updates)
    if err != nil {
        logrus.Errorf("序列化更新数据失败: %v", err)
        return err
    }

    err = json.Unmarshal(updateBytes, c)
    if err != nil {
        // 回滚配置
        *c = tempConfig
        logrus.Errorf("应用配置更新失败: %v", err)
        return err
    }

    // 验证配置
    if err := c.Validate(); err != nil {
        // 回滚配置
        *c = tempConfig
        logrus.Errorf("配置验证失败: %v", err)
        return err
    }

    return nil
}

// Reset 重置为默认配置
func (c *Config) Reset() {
    defaultConfig := NewDefaultConfig()
    *c = *defaultConfig
}

// PrintConfig 打印当前配置
func (c *Config) PrintConfig() {
    logrus.Info("\n当前配置:")
    bytes, err := json.MarshalIndent(c, "", "  ")
    if err != nil {
        logrus.Errorf("序列化配置失败: %v", err)
        return
    }
    logrus.Info(string(bytes))
}

// 确保目录存在，如果不存在则创建
func ensureDirExists(path string) error {
    if path == "" {
        return nil // 空路径视为可选
    }

    if _, err := os.Stat(path); os.IsNotExist(err) {
        return os.MkdirAll(path, 0755)
    }

    return nil
}
