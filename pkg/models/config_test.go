package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	// 验证默认值是否正确设置
	assert.Equal(t, "./jobs", config.JobsFolder)
	assert.Equal(t, "./output", config.OutputFolder)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 2, config.MaxWorkers)
	assert.Equal(t, string(StrategySpeedChange), config.Strategy)
	assert.Equal(t, 30, config.MaxChars)
	assert.Equal(t, 44100, config.SampleRate)
	assert.Equal(t, 30, config.FrameRate)
	assert.True(t, config.ExportSRT)
	assert.False(t, config.WatchMode)
}

func TestConfigValidate(t *testing.T) {
	tempDir := t.TempDir()

	// 测试有效配置
	config := NewDefaultConfig()
	config.JobsFolder = filepath.Join(tempDir, "jobs")
	config.OutputFolder = filepath.Join(tempDir, "output")
	err := config.Validate()
	assert.NoError(t, err)

	// 测试无效的MaxRetries
	config.MaxRetries = 0
	err = config.Validate()
	assert.Error(t, err)
	configErr, ok := err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "MaxRetries", configErr.Field)

	// 恢复有效值并测试另一个字段
	config.MaxRetries = 3
	config.SampleRate = 8000 // 不支持的采样率
	err = config.Validate()
	assert.Error(t, err)
	configErr, ok = err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "SampleRate", configErr.Field)

	// 未知策略必须报错
	config.SampleRate = 44100
	config.Strategy = "teleport"
	err = config.Validate()
	assert.Error(t, err)
	configErr, ok = err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "Strategy", configErr.Field)
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "test_config.json")
	defer os.Remove(tempFile)

	// 创建并保存配置
	originalConfig := NewDefaultConfig()
	originalConfig.JobsFolder = filepath.Join(tempDir, "jobs")
	originalConfig.OutputFolder = filepath.Join(tempDir, "output")
	originalConfig.MaxRetries = 5
	originalConfig.Strategy = string(StrategyFreezeFrame)

	err := originalConfig.SaveToFile(tempFile)
	assert.NoError(t, err)

	// 从文件加载配置
	loadedConfig := NewDefaultConfig()
	err = loadedConfig.LoadFromFile(tempFile)
	assert.NoError(t, err)

	// 验证加载的配置是否与原始配置匹配
	assert.Equal(t, originalConfig.JobsFolder, loadedConfig.JobsFolder)
	assert.Equal(t, originalConfig.MaxRetries, loadedConfig.MaxRetries)
	assert.Equal(t, originalConfig.Strategy, loadedConfig.Strategy)
}

func TestConfigUpdate(t *testing.T) {
	tempDir := t.TempDir()
	config := NewDefaultConfig()
	config.JobsFolder = filepath.Join(tempDir, "jobs")
	config.OutputFolder = filepath.Join(tempDir, "output")

	// 有效更新
	updates := map[string]interface{}{
		"max_retries": 5,
		"strategy":    "frame_blend",
		"export_srt":  false,
	}

	err := config.Update(updates)
	assert.NoError(t, err)
	assert.Equal(t, 5, config.MaxRetries)
	assert.Equal(t, "frame_blend", config.Strategy)
	assert.False(t, config.ExportSRT)

	// 无效更新
	invalidUpdates := map[string]interface{}{
		"max_retries": 20, // 超出最大值10
	}

	err = config.Update(invalidUpdates)
	assert.Error(t, err)
	assert.Equal(t, 5, config.MaxRetries) // 应该保持原值
}

func TestConfigReset(t *testing.T) {
	config := NewDefaultConfig()

	// 修改配置
	config.JobsFolder = "./custom_jobs"
	config.MaxRetries = 5
	config.Strategy = string(StrategyFrameInterpolate)

	// 重置为默认值
	config.Reset()

	// 验证是否重置为默认值
	assert.Equal(t, "./jobs", config.JobsFolder)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, string(StrategySpeedChange), config.Strategy)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("frame_blend")
	assert.NoError(t, err)
	assert.Equal(t, StrategyFrameBlend, s)

	// 空字符串回退到默认策略
	s, err = ParseStrategy("")
	assert.NoError(t, err)
	assert.Equal(t, StrategySpeedChange, s)

	// 未知策略不允许静默回退
	_, err = ParseStrategy("rife")
	assert.Error(t, err)
}
