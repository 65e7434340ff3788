package asr

import (
	"fmt"
	"sort"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// rawWord 识别引擎输出的词级时间戳，时间戳可能缺失
type rawWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
}

// rawRegion 识别引擎输出的一段VAD语音区间
type rawRegion struct {
	Start float64   `json:"start"`
	End   float64   `json:"end"`
	Text  string    `json:"text,omitempty"`
	Words []rawWord `json:"words"`
}

// RegionProvider 定义了语音区间来源的接口
// 识别引擎本身是外部协作方，这里只消费它的输出
type RegionProvider interface {
	// Regions 返回按时间排序的语音区间
	Regions() ([]models.VoiceRegion, error)
}

// FileRegionProvider 从识别引擎写出的JSON文件加载语音区间
type FileRegionProvider struct {
	Path string
}

// NewFileRegionProvider 创建基于文件的区间加载器
func NewFileRegionProvider(path string) *FileRegionProvider {
	return &FileRegionProvider{Path: path}
}

// Regions 加载并转换识别结果
func (p *FileRegionProvider) Regions() ([]models.VoiceRegion, error) {
	var raw []rawRegion
	if err := utils.LoadJSONFile(p.Path, &raw); err != nil {
		return nil, fmt.Errorf("加载识别结果失败: %w", err)
	}

	regions := make([]models.VoiceRegion, 0, len(raw))
	for i, r := range raw {
		if r.End <= r.Start {
			utils.Warn("跳过非法语音区间 %d: [%.2f, %.2f]", i, r.Start, r.End)
			continue
		}

		region := models.VoiceRegion{
			Start: r.Start,
			End:   r.End,
			Words: make([]models.Word, 0, len(r.Words)),
		}
		for _, w := range r.Words {
			word := models.Word{Text: w.Word}
			// 引擎偶尔不给时间戳，标记Timed以便下游区分
			if w.Start != nil && w.End != nil {
				word.Start = *w.Start
				word.End = *w.End
				word.Timed = true
			}
			region.Words = append(region.Words, word)
		}
		regions = append(regions, region)
	}

	// 区间按开始时间排序，词序保持引擎给出的顺序
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Start < regions[j].Start
	})

	return regions, nil
}
