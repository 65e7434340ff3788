package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// SegmentChunkSpec 描述一个配音段对应的视频块转码任务
type SegmentChunkSpec struct {
	VideoPath   string  // 源视频
	AudioPath   string  // 该段的配音音频
	Start       float64 // 源视频中的起点（秒）
	SourceDur   float64 // 源视频中截取的时长（秒）
	OutputDur   float64 // 输出块的目标时长（秒）
	VideoFilter string  // 视频滤镜链，空表示不加滤镜
	OutPath     string
}

// Transcoder 汇总全部转码操作，便于在测试中替换
type Transcoder interface {
	// EncodeGapChunk 截取无人声区间的视频并配上静音音轨
	EncodeGapChunk(videoPath string, start, duration float64, outPath string) error
	// EncodeSegmentChunk 按SegmentChunkSpec转码一个配音段视频块
	EncodeSegmentChunk(spec SegmentChunkSpec) error
	// EncodeRawSlice 精确截取一段视频并重编码，去掉音轨
	EncodeRawSlice(videoPath string, start, duration float64, outPath string) error
	// ConcatChunks 用concat分离器无损拼接视频块
	ConcatChunks(chunkPaths []string, outPath string) error
	// ApplyTempoChain 对音频应用一串atempo变速滤镜
	ApplyTempoChain(inPath, outPath string, chain []float64) error
	// DecodeToPCM 把任意音频解码为16bit立体声WAV
	DecodeToPCM(inPath, outPath string, sampleRate int) error
	// ExtractFrameSequence 把视频拆成PNG帧序列
	ExtractFrameSequence(videoPath, frameDir string) error
	// EncodeFrameSequence 把PNG帧序列编码回视频
	EncodeFrameSequence(frameDir string, fps float64, outPath string) error
	// MuxAudio 把音轨混流进视频，视频流不重编码
	MuxAudio(videoPath, audioPath, outPath string) error
}

// FFmpegTranscoder 基于ffmpeg的转码实现
type FFmpegTranscoder struct {
	SampleRate   int
	FrameRate    int
	VideoBitrate string
	Preset       string
}

// NewFFmpegTranscoder 创建转码器
func NewFFmpegTranscoder(sampleRate, frameRate int, bitrate, preset string) *FFmpegTranscoder {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if frameRate <= 0 {
		frameRate = 30
	}
	if bitrate == "" {
		bitrate = "4M"
	}
	if preset == "" {
		preset = "fast"
	}
	return &FFmpegTranscoder{
		SampleRate:   sampleRate,
		FrameRate:    frameRate,
		VideoBitrate: bitrate,
		Preset:       preset,
	}
}

// EncodeGapChunk 截取无人声区间，音轨用anullsrc生成的静音填充
func (t *FFmpegTranscoder) EncodeGapChunk(videoPath string, start, duration float64, outPath string) error {
	video := ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": start, "t": duration}).Get("v")
	silence := ffmpeg.Input(
		fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", t.SampleRate),
		ffmpeg.KwArgs{"f": "lavfi", "t": duration},
	).Get("a")

	err := ffmpeg.Output([]*ffmpeg.Stream{video, silence}, outPath, ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   t.Preset,
		"b:v":      t.VideoBitrate,
		"r":        t.FrameRate,
		"c:a":      "aac",
		"shortest": "",
	}).Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("转码静音块失败 [%.2f, %.2f]: %w", start, start+duration, err)
	}
	return nil
}

// EncodeSegmentChunk 转码一个配音段：视频按滤镜调速，音轨换成配音
func (t *FFmpegTranscoder) EncodeSegmentChunk(spec SegmentChunkSpec) error {
	video := ffmpeg.Input(spec.VideoPath, ffmpeg.KwArgs{"ss": spec.Start, "t": spec.SourceDur}).Get("v")
	audio := ffmpeg.Input(spec.AudioPath).Get("a")

	kwargs := ffmpeg.KwArgs{
		"c:v":    "libx264",
		"preset": t.Preset,
		"b:v":    t.VideoBitrate,
		"r":      t.FrameRate,
		"c:a":    "aac",
		"t":      spec.OutputDur,
	}
	if spec.VideoFilter != "" {
		kwargs["vf"] = spec.VideoFilter
	}

	err := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, spec.OutPath, kwargs).
		Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("转码配音块失败 %s: %w", filepath.Base(spec.OutPath), err)
	}
	return nil
}

// EncodeRawSlice 按时间截取视频并重编码，去掉音轨
// 截取结果要交给补帧工具，边界必须帧级精确，流拷贝会退回到关键帧
func (t *FFmpegTranscoder) EncodeRawSlice(videoPath string, start, duration float64, outPath string) error {
	err := t.rawSliceStream(videoPath, start, duration, outPath).
		Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("截取视频片段失败 [%.2f, %.2f]: %w", start, start+duration, err)
	}
	return nil
}

func (t *FFmpegTranscoder) rawSliceStream(videoPath string, start, duration float64, outPath string) *ffmpeg.Stream {
	return ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": start, "t": duration}).
		Output(outPath, ffmpeg.KwArgs{
			"c:v":    "libx264",
			"preset": t.Preset,
			"an":     "",
		})
}

// ConcatChunks 把块列表写入清单文件后用concat分离器拼接
func (t *FFmpegTranscoder) ConcatChunks(chunkPaths []string, outPath string) error {
	if len(chunkPaths) == 0 {
		return fmt.Errorf("没有可拼接的视频块")
	}

	listFile := outPath + ".txt"
	var b strings.Builder
	for _, chunk := range chunkPaths {
		abs, err := filepath.Abs(chunk)
		if err != nil {
			abs = chunk
		}
		b.WriteString(fmt.Sprintf("file '%s'\n", abs))
	}
	if err := os.WriteFile(listFile, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("写入拼接清单失败: %w", err)
	}
	defer os.Remove(listFile)

	err := ffmpeg.Input(listFile, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(outPath, ffmpeg.KwArgs{"c": "copy"}).
		Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("拼接视频块失败: %w", err)
	}

	utils.Debug("已拼接 %d 个视频块: %s", len(chunkPaths), outPath)
	return nil
}

// ApplyTempoChain 应用atempo滤镜链，仅处理音频流
func (t *FFmpegTranscoder) ApplyTempoChain(inPath, outPath string, chain []float64) error {
	if len(chain) == 0 {
		return fmt.Errorf("变速系数链为空")
	}

	filters := make([]string, 0, len(chain))
	for _, factor := range chain {
		filters = append(filters, fmt.Sprintf("atempo=%.6f", factor))
	}

	err := ffmpeg.Input(inPath).
		Output(outPath, ffmpeg.KwArgs{
			"filter:a": strings.Join(filters, ","),
			"vn":       "",
		}).
		Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("音频变速失败 %s: %w", filepath.Base(inPath), err)
	}
	return nil
}

// DecodeToPCM 解码为16bit立体声PCM WAV
func (t *FFmpegTranscoder) DecodeToPCM(inPath, outPath string, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = t.SampleRate
	}

	err := ffmpeg.Input(inPath).
		Output(outPath, ffmpeg.KwArgs{
			"acodec": "pcm_s16le",
			"ar":     sampleRate,
			"ac":     2,
			"vn":     "",
		}).
		Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("解码音频失败 %s: %w", filepath.Base(inPath), err)
	}
	return nil
}

// ExtractFrameSequence 拆帧为PNG序列，文件名按八位序号编排
func (t *FFmpegTranscoder) ExtractFrameSequence(videoPath, frameDir string) error {
	if err := utils.EnsureDirExists(frameDir); err != nil {
		return err
	}

	err := ffmpeg.Input(videoPath).
		Output(filepath.Join(frameDir, "%08d.png"), ffmpeg.KwArgs{"q:v": 2}).
		Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("拆帧失败 %s: %w", filepath.Base(videoPath), err)
	}
	return nil
}

// EncodeFrameSequence 把PNG帧序列编码为视频
func (t *FFmpegTranscoder) EncodeFrameSequence(frameDir string, fps float64, outPath string) error {
	err := ffmpeg.Input(filepath.Join(frameDir, "%08d.png"), ffmpeg.KwArgs{"framerate": fps}).
		Output(outPath, ffmpeg.KwArgs{
			"c:v":     "libx264",
			"pix_fmt": "yuv420p",
			"crf":     18,
		}).
		Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("帧序列编码失败: %w", err)
	}
	return nil
}

// MuxAudio 替换音轨，视频流直接拷贝
func (t *FFmpegTranscoder) MuxAudio(videoPath, audioPath, outPath string) error {
	video := ffmpeg.Input(videoPath).Get("v")
	audio := ffmpeg.Input(audioPath).Get("a")

	err := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, outPath, ffmpeg.KwArgs{
		"c:v":      "copy",
		"c:a":      "aac",
		"shortest": "",
	}).Silent(true).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("混流音轨失败 %s: %w", filepath.Base(outPath), err)
	}
	return nil
}
