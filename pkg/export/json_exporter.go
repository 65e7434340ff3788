package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// TranscriptResult 表示整个字幕时间轴结果
type TranscriptResult struct {
	FullText string               `json:"full_text"` // 完整合并后的文本
	Cues     []models.SubtitleCue `json:"cues"`      // 分段结构，适合前端显示时间轴字幕
}

// JSONExporter 负责将字幕条目导出为JSON文件
type JSONExporter struct {
	OutputFolder string
}

// NewJSONExporter 创建一个新的JSON导出器
func NewJSONExporter(outputFolder string) *JSONExporter {
	return &JSONExporter{
		OutputFolder: outputFolder,
	}
}

// GenerateJSONContent 根据字幕条目生成TranscriptResult结构
func (e *JSONExporter) GenerateJSONContent(cues []models.SubtitleCue) TranscriptResult {
	result := TranscriptResult{
		Cues: make([]models.SubtitleCue, 0, len(cues)),
	}

	var fullTextBuilder strings.Builder
	for _, cue := range cues {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}

		if fullTextBuilder.Len() > 0 {
			fullTextBuilder.WriteString(" ")
		}
		fullTextBuilder.WriteString(text)

		result.Cues = append(result.Cues, models.SubtitleCue{
			Start: cue.Start,
			End:   cue.End,
			Text:  text,
		})
	}

	result.FullText = fullTextBuilder.String()
	return result
}

// ExportJSON 导出JSON格式字幕文件
func (e *JSONExporter) ExportJSON(cues []models.SubtitleCue, videoPath string) (string, error) {
	if err := os.MkdirAll(e.OutputFolder, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	baseName := filepath.Base(videoPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	outputFile := filepath.Join(e.OutputFolder, fmt.Sprintf("%s.json", baseName))

	result := e.GenerateJSONContent(cues)
	if err := utils.SaveJSONFile(outputFile, result); err != nil {
		return "", fmt.Errorf("写入JSON文件失败: %w", err)
	}

	utils.Info("已导出JSON字幕: %s", outputFile)
	return outputFile, nil
}
