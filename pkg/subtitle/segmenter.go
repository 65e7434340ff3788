package subtitle

import (
	"strings"
	"unicode/utf8"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// 以下常量均为经验调参值，来自原始调校语料，不要随意改动
const (
	// MaxWordDuration 单词时长上限（秒），识别引擎偶尔给末词幻觉出5秒以上的拖尾
	MaxWordDuration = 1.5
	// ASCIIMergeGap 相邻ASCII词合并的最大间隔（秒）
	ASCIIMergeGap = 0.1
	// MaxBackfill 区间首条字幕向区间起点回填的上限（秒）
	MaxBackfill = 0.5
	// InternalDelay 内部边界的时间偏置（秒），补偿对齐模型的系统性滞后
	InternalDelay = -0.35
	// TailExtension 每条字幕结束时间的延长量（秒）
	TailExtension = 0.2
	// MinCueDuration 字幕最小时长（秒）
	MinCueDuration = 0.1
	// DefaultMaxChars 单条字幕默认最大字符数
	DefaultMaxChars = 30
)

// 触发切分的标点集合
var punctuationSet = map[rune]bool{
	'.': true, '?': true, '!': true,
	'。': true, '？': true, '！': true,
	'…': true, '；': true, ';': true,
	',': true, '，': true,
}

// Segmenter 将词级时间戳切分为字幕条目
type Segmenter struct {
	MaxChars int // 单条字幕最大字符数
}

// NewSegmenter 创建字幕切分器
func NewSegmenter(maxChars int) *Segmenter {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Segmenter{MaxChars: maxChars}
}

// Split 将语音区间切分为按时间排序且互不重叠的字幕
func (s *Segmenter) Split(regions []models.VoiceRegion) []models.SubtitleCue {
	var cues []models.SubtitleCue

	for _, region := range regions {
		cues = append(cues, s.splitRegion(region)...)
	}

	// 全局单调性修复：后一条字幕不得早于前一条结束
	for i := 0; i < len(cues)-1; i++ {
		if cues[i+1].Start < cues[i].End {
			cues[i+1].Start = cues[i].End
		}
		if cues[i+1].End <= cues[i+1].Start {
			cues[i+1].End = cues[i+1].Start + MinCueDuration
		}
	}

	return cues
}

// splitRegion 处理单个语音区间
func (s *Segmenter) splitRegion(region models.VoiceRegion) []models.SubtitleCue {
	if len(region.Words) == 0 {
		return nil
	}

	words := sanitizeWords(region.Words)
	merged := mergeNarrowWords(words)
	chunks := s.chunkWords(merged)

	cues := make([]models.SubtitleCue, 0, len(chunks))
	for idx, chunk := range chunks {
		text := displayText(chunk)
		if text == "" {
			// 纯标点块没有可显示内容
			continue
		}

		cStart, cEnd := chunkBounds(chunk, region)

		if idx == 0 {
			// 首条字幕向区间起点回填，上限MaxBackfill，避免吞掉大段静音
			limitStart := region.Start
			if cStart-MaxBackfill > limitStart {
				limitStart = cStart - MaxBackfill
			}
			if cStart > limitStart {
				cStart = limitStart
			}
		}

		if idx > 0 {
			cStart += InternalDelay
		}
		if idx < len(chunks)-1 {
			cEnd += InternalDelay
		}

		// 结尾留出呼吸空间
		cEnd += TailExtension

		// 严格限制在VAD区间内，防止吞掉区间之间的静音
		if cStart < region.Start {
			cStart = region.Start
		}
		if cEnd > region.End {
			cEnd = region.End
		}

		if cEnd <= cStart {
			cEnd = cStart + MinCueDuration
		}

		cues = append(cues, models.SubtitleCue{Start: cStart, End: cEnd, Text: text})
	}

	utils.Debug("区间 [%.2f, %.2f] 切分出 %d 条字幕", region.Start, region.End, len(cues))
	return cues
}

// sanitizeWords 修正词级时间戳：时长超过上限的词收缩其结束时间
func sanitizeWords(words []models.Word) []models.Word {
	out := make([]models.Word, len(words))
	copy(out, words)
	for i := range out {
		if out[i].Timed && out[i].End-out[i].Start > MaxWordDuration {
			out[i].End = out[i].Start + MaxWordDuration
		}
	}
	return out
}

// mergeNarrowWords 合并间隔很小的相邻ASCII词
// 标点词不吸收后续词；缺失时间戳的词会中断合并
func mergeNarrowWords(words []models.Word) []models.Word {
	if len(words) == 0 {
		return nil
	}

	merged := make([]models.Word, 0, len(words))
	current := words[0]

	for i := 1; i < len(words); i++ {
		next := words[i]

		if !current.Timed || !next.Timed {
			merged = append(merged, current)
			current = next
			continue
		}

		gap := next.Start - current.End
		if isASCIIText(current.Text) && isASCIIText(next.Text) &&
			!isPunctToken(current.Text) && gap < ASCIIMergeGap {
			current.Text += next.Text
			current.End = next.End
		} else {
			merged = append(merged, current)
			current = next
		}
	}
	merged = append(merged, current)

	return merged
}

// chunkWords 按长度上限和标点把词分组为字幕块
func (s *Segmenter) chunkWords(words []models.Word) [][]models.Word {
	var chunks [][]models.Word
	var current []models.Word
	currentLen := 0

	for _, word := range words {
		isPunct := isPunctToken(word.Text)

		// 长度触发：在追加非标点词之前切分
		if len(current) > 0 && !isPunct &&
			currentLen+utf8.RuneCountInString(word.Text) > s.MaxChars {
			chunks = append(chunks, current)
			current = nil
			currentLen = 0
		}

		current = append(current, word)
		currentLen += utf8.RuneCountInString(word.Text)

		// 标点触发：在追加以标点结尾的词之后切分
		if endsWithPunct(word.Text) {
			chunks = append(chunks, current)
			current = nil
			currentLen = 0
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// chunkBounds 取块的起止时间：优先使用首/尾有时间戳的内容词，
// 全部缺失时回退到区间自身的边界
func chunkBounds(chunk []models.Word, region models.VoiceRegion) (float64, float64) {
	cStart := region.Start
	if chunk[0].Timed {
		cStart = chunk[0].Start
	}
	cEnd := region.End
	if chunk[len(chunk)-1].Timed {
		cEnd = chunk[len(chunk)-1].End
	}

	for _, w := range chunk {
		if w.Timed && !isPunctToken(w.Text) {
			cStart = w.Start
			break
		}
	}
	for i := len(chunk) - 1; i >= 0; i-- {
		if chunk[i].Timed && !isPunctToken(chunk[i].Text) {
			cEnd = chunk[i].End
			break
		}
	}

	return cStart, cEnd
}

// displayText 拼接块内文本并去除全部标点
func displayText(chunk []models.Word) string {
	var b strings.Builder
	for _, w := range chunk {
		b.WriteString(w.Text)
	}

	text := strings.TrimSpace(b.String())
	text = strings.Map(func(r rune) rune {
		if punctuationSet[r] {
			return -1
		}
		return r
	}, text)

	return strings.TrimSpace(text)
}

// isASCIIText 判断词是否只由单字节字符构成
func isASCIIText(text string) bool {
	for _, r := range text {
		if r >= 128 {
			return false
		}
	}
	return true
}

// isPunctToken 判断词去除空白后是否为单个标点
func isPunctToken(text string) bool {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	return len(runes) == 1 && punctuationSet[runes[0]]
}

// endsWithPunct 判断词的末字符是否为标点
func endsWithPunct(text string) bool {
	if text == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text)
	return punctuationSet[r]
}
