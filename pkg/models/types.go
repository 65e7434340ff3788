package models

import "fmt"

// Word 表示一个带时间戳的识别词
type Word struct {
	Text  string  // 词文本
	Start float64 // 开始时间（秒）
	End   float64 // 结束时间（秒）
	Timed bool    // 识别引擎是否给出了可用的时间戳
}

// Duration 返回词的时长（秒）
func (w Word) Duration() float64 {
	return w.End - w.Start
}

// VoiceRegion 表示VAD检测出的一段语音区间及其词级时间戳
type VoiceRegion struct {
	Start float64 // 区间开始时间（秒）
	End   float64 // 区间结束时间（秒）
	Words []Word  // 区间内按时间排序的词
}

// SubtitleCue 表示切分后的一条字幕
type SubtitleCue struct {
	Start float64 `json:"start"` // 开始时间（秒）
	End   float64 `json:"end"`   // 结束时间（秒）
	Text  string  `json:"text"`  // 显示文本（已去除标点）
}

// AudioSegment 表示一段待合成到时间轴上的配音音频
type AudioSegment struct {
	Start    float64 `json:"start"`    // 在视频时间轴上的位置（秒）
	Path     string  `json:"path"`     // 音频文件路径
	Duration float64 `json:"duration"` // 原始槽位时长（秒）
}

// Strategy 表示时长不匹配时的视频重构策略
type Strategy string

const (
	// StrategySpeedChange 均匀拉伸/压缩视频时间戳（默认回退策略）
	StrategySpeedChange Strategy = "speed_change"
	// StrategyFrameBlend 拉伸时间戳后叠加运动插值混帧，平滑慢放画面
	StrategyFrameBlend Strategy = "frame_blend"
	// StrategyFreezeFrame 克隆末帧补齐时长，无光流开销但画面静止
	StrategyFreezeFrame Strategy = "freeze_frame"
	// StrategyFrameInterpolate 调用外部插帧工具合成中间帧
	StrategyFrameInterpolate Strategy = "frame_interpolate"
)

// ParseStrategy 解析策略字符串，未知策略返回错误而不是静默回退
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySpeedChange, StrategyFrameBlend, StrategyFreezeFrame, StrategyFrameInterpolate:
		return Strategy(s), nil
	case "":
		return StrategySpeedChange, nil
	}
	return "", fmt.Errorf("未知的重构策略: %q", s)
}

// DubJob 表示一个配音合成任务清单
type DubJob struct {
	VideoPath   string         `json:"video_path"`             // 原始视频路径
	OutputPath  string         `json:"output_path"`            // 合成结果输出路径
	Strategy    string         `json:"strategy"`               // 重构策略（speed_change/frame_blend/freeze_frame/frame_interpolate）
	Segments    []AudioSegment `json:"segments"`               // 配音音频段
	RegionsPath string         `json:"regions_path,omitempty"` // 可选：识别引擎输出的词级时间戳JSON
}
