package media

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// ProbeData ffprobe输出的顶层结构
type ProbeData struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// ProbeFormat 容器级信息
type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// ProbeStream 流级信息
type ProbeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
	Duration   string `json:"duration"`
}

// VideoInfo 视频流的汇总信息
type VideoInfo struct {
	Width    int
	Height   int
	FPS      float64
	Frames   int
	Duration float64
}

// Prober 提供媒体探测能力
type Prober interface {
	// MediaDuration 返回媒体文件的时长（秒）
	MediaDuration(path string) (float64, error)
	// VideoInfo 返回首个视频流的信息
	VideoInfo(path string) (VideoInfo, error)
}

// FFProber 基于ffprobe的探测实现
type FFProber struct{}

// NewFFProber 创建探测器
func NewFFProber() *FFProber {
	return &FFProber{}
}

// MediaDuration 探测媒体时长
// 优先取音频流自己的时长，裸音频流有时只有流级字段；容器级兜底
func (p *FFProber) MediaDuration(path string) (float64, error) {
	data, err := p.probe(path)
	if err != nil {
		return 0, err
	}
	result, err := durationFromProbe(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, path)
	}
	return result, nil
}

func durationFromProbe(data ProbeData) (float64, error) {
	for i := range data.Streams {
		if data.Streams[i].CodecType != "audio" {
			continue
		}
		if d := strings.TrimSpace(data.Streams[i].Duration); d != "" {
			if v, err := strconv.ParseFloat(d, 64); err == nil && v > 0 {
				return v, nil
			}
		}
		break
	}

	duration := strings.TrimSpace(data.Format.Duration)
	if duration == "" {
		return 0, fmt.Errorf("探测结果缺少时长字段")
	}
	result, err := strconv.ParseFloat(duration, 64)
	if err != nil {
		return 0, fmt.Errorf("解析时长失败: %v", err)
	}
	return result, nil
}

// VideoInfo 探测视频流的帧率、帧数和尺寸
func (p *FFProber) VideoInfo(path string) (VideoInfo, error) {
	var info VideoInfo

	data, err := p.probe(path)
	if err != nil {
		return info, err
	}

	var stream *ProbeStream
	for i := range data.Streams {
		if data.Streams[i].CodecType == "video" {
			stream = &data.Streams[i]
			break
		}
	}
	if stream == nil {
		return info, fmt.Errorf("文件中没有视频流: %s", path)
	}

	info.Width = stream.Width
	info.Height = stream.Height
	info.FPS = ParseFrameRate(stream.RFrameRate)

	if d := strings.TrimSpace(stream.Duration); d != "" {
		info.Duration, _ = strconv.ParseFloat(d, 64)
	}
	if info.Duration == 0 {
		if d := strings.TrimSpace(data.Format.Duration); d != "" {
			info.Duration, _ = strconv.ParseFloat(d, 64)
		}
	}

	info.Frames = FrameCount(stream.NbFrames, info.Duration, info.FPS)
	if info.Frames == 0 {
		utils.Warn("无法确定视频帧数: %s", path)
	}

	return info, nil
}

func (p *FFProber) probe(path string) (ProbeData, error) {
	var result ProbeData
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return result, fmt.Errorf("探测媒体文件失败: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("解析探测结果失败: %w", err)
	}
	return result, nil
}

// ParseFrameRate 解析r_frame_rate形如"30000/1001"的分数表示
func ParseFrameRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	parts := strings.SplitN(raw, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// FrameCount 解析nb_frames，缺失时用时长乘帧率估算
func FrameCount(nbFrames string, duration, fps float64) int {
	if n, err := strconv.Atoi(strings.TrimSpace(nbFrames)); err == nil && n > 0 {
		return n
	}
	if duration > 0 && fps > 0 {
		return int(math.Round(duration * fps))
	}
	return 0
}
