package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/align"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/asr"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/export"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/interp"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/media"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/mixer"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/reconstruct"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/subtitle"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// Pipeline 串起单个配音任务的完整处理流程
type Pipeline struct {
	config        *models.Config
	tempDir       string
	prober        *media.FFProber
	transcoder    *media.FFmpegTranscoder
	aligner       *align.Aligner
	mixer         *mixer.Mixer
	reconstructor *reconstruct.Reconstructor
	segmenter     *subtitle.Segmenter
	srtExporter   *export.SRTExporter
	jsonExporter  *export.JSONExporter
}

// New 按配置组装处理流水线
func New(config *models.Config) *Pipeline {
	tempDir := config.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	prober := media.NewFFProber()
	transcoder := media.NewFFmpegTranscoder(
		config.SampleRate, config.FrameRate, config.VideoBitrate, config.Preset)

	// 插帧工具是可选依赖，缺失时frame_interpolate策略回退到setpts
	var interpolator reconstruct.Interpolator
	rife, err := interp.NewRIFE("", config.RIFEModelDir,
		filepath.Join(tempDir, "rife"), prober, transcoder)
	if err != nil {
		utils.Warn("插帧工具不可用: %v", err)
	} else {
		interpolator = rife
	}

	return &Pipeline{
		config:        config,
		tempDir:       tempDir,
		prober:        prober,
		transcoder:    transcoder,
		aligner:       align.NewAligner(prober, transcoder),
		mixer:         mixer.NewMixer(transcoder, config.SampleRate, tempDir),
		reconstructor: reconstruct.NewReconstructor(transcoder, prober, interpolator, config.FrameRate, tempDir),
		segmenter:     subtitle.NewSegmenter(config.MaxChars),
		srtExporter:   export.NewSRTExporter(config.OutputFolder),
		jsonExporter:  export.NewJSONExporter(config.OutputFolder),
	}
}

// ProcessJob 处理一个任务清单并返回结果统计
func (p *Pipeline) ProcessJob(jobPath string) (*models.Result, error) {
	job, err := LoadJob(jobPath, p.config)
	if err != nil {
		return nil, err
	}
	strategy, _ := models.ParseStrategy(job.Strategy)

	startTime := time.Now()
	result := &models.Result{
		JobPath:      jobPath,
		VideoPath:    job.VideoPath,
		OutputPath:   job.OutputPath,
		Strategy:     string(strategy),
		OutputFiles:  make(map[string]string),
		SegmentCount: len(job.Segments),
	}

	totalDuration, err := p.prober.MediaDuration(job.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("探测视频时长失败: %w", err)
	}
	result.DurationMs = int64(totalDuration * 1000)

	// 字幕导出不影响合成主流程，失败只告警
	p.exportSubtitles(job, result)

	if len(job.Segments) == 0 {
		return nil, fmt.Errorf("任务没有配音段: %s", jobPath)
	}

	utils.Info("开始合成: %s (%d 段, 策略 %s)", filepath.Base(job.VideoPath), len(job.Segments), strategy)

	if strategy == models.StrategySpeedChange {
		err = p.dubWithAlignedAudio(job, totalDuration)
	} else {
		err = p.reconstructor.Rebuild(job.VideoPath, job.Segments, strategy, job.OutputPath)
	}
	if err != nil {
		return nil, err
	}

	result.ProcessTimeMs = time.Since(startTime).Milliseconds()
	utils.Info("合成完成: %s (用时 %s)", job.OutputPath,
		utils.FormatTimeDuration(float64(result.ProcessTimeMs)/1000))
	return result, nil
}

// dubWithAlignedAudio 音频变速路径：视频时间轴不动，
// 超出槽位的配音段先压缩到槽位时长，混成整轨后替换原视频的音轨
func (p *Pipeline) dubWithAlignedAudio(job models.DubJob, totalDuration float64) error {
	aligned := p.aligner.ShortenLongClips(job.Segments)

	mixPath := filepath.Join(p.tempDir, "dubtrack_"+uuid.NewString()[:8]+".wav")
	defer os.Remove(mixPath)

	if err := p.mixer.Mix(aligned, totalDuration, mixPath); err != nil {
		return err
	}
	return p.transcoder.MuxAudio(job.VideoPath, mixPath, job.OutputPath)
}

// exportSubtitles 从词级时间戳切分字幕并按配置导出
func (p *Pipeline) exportSubtitles(job models.DubJob, result *models.Result) {
	if job.RegionsPath == "" {
		return
	}
	if !p.config.ExportSRT && !p.config.ExportJSON {
		return
	}

	regions, err := asr.NewFileRegionProvider(job.RegionsPath).Regions()
	if err != nil {
		utils.Warn("加载词级时间戳失败，跳过字幕导出: %v", err)
		return
	}

	cues := p.segmenter.Split(regions)
	if len(cues) == 0 {
		utils.Warn("没有切分出任何字幕: %s", job.RegionsPath)
		return
	}

	if p.config.ExportSRT {
		if path, err := p.srtExporter.ExportSRT(cues, job.VideoPath); err != nil {
			utils.Warn("导出SRT失败: %v", err)
		} else {
			result.OutputFiles["srt"] = path
		}
	}
	if p.config.ExportJSON {
		if path, err := p.jsonExporter.ExportJSON(cues, job.VideoPath); err != nil {
			utils.Warn("导出JSON失败: %v", err)
		} else {
			result.OutputFiles["json"] = path
		}
	}
}
