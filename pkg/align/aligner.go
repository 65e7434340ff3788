package align

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// TempoTolerance 变速系数与1的偏差小于该值时不做处理
const TempoTolerance = 0.01

// ShortenThreshold 配音超出槽位该值以上才压缩（秒）
const ShortenThreshold = 0.1

// atempo单级滤镜的合法区间
const (
	atempoMin = 0.5
	atempoMax = 2.0
)

type durationProber interface {
	MediaDuration(path string) (float64, error)
}

type tempoTranscoder interface {
	ApplyTempoChain(inPath, outPath string, chain []float64) error
}

// Aligner 把配音音频变速到字幕槽位的目标时长
type Aligner struct {
	prober     durationProber
	transcoder tempoTranscoder
}

// NewAligner 创建时长对齐器
func NewAligner(prober durationProber, transcoder tempoTranscoder) *Aligner {
	return &Aligner{prober: prober, transcoder: transcoder}
}

// ComputeTempoChain 把任意变速系数分解为atempo合法区间内的系数链
// 系数与1足够接近时返回空链，表示无需变速
func ComputeTempoChain(factor float64) []float64 {
	if factor <= 0 {
		return nil
	}
	if math.Abs(factor-1) <= TempoTolerance {
		return nil
	}

	var chain []float64
	for factor > atempoMax {
		chain = append(chain, atempoMax)
		factor /= atempoMax
	}
	for factor < atempoMin {
		chain = append(chain, atempoMin)
		factor /= atempoMin
	}
	if math.Abs(factor-1) > TempoTolerance {
		chain = append(chain, factor)
	}
	return chain
}

// Align 把单个音频段变速到其槽位时长，双向
// 无需变速时原样返回，变速结果写到同目录的_aligned文件
func (a *Aligner) Align(segment models.AudioSegment) (models.AudioSegment, error) {
	if segment.Duration <= 0 {
		return segment, fmt.Errorf("目标时长非法: %.3f", segment.Duration)
	}

	actual, err := a.prober.MediaDuration(segment.Path)
	if err != nil {
		return segment, fmt.Errorf("探测音频段时长失败: %w", err)
	}
	if actual <= 0 {
		return segment, fmt.Errorf("音频段时长非法: %s", segment.Path)
	}

	return a.applyTempo(segment, actual/segment.Duration)
}

// ShortenLongClips 只压缩明显超出槽位的配音段
// 比槽位短的段保留原样，留白由混音底轨的静音吸收；
// 个别段探测或变速失败时告警后原样保留，不中断整个任务
func (a *Aligner) ShortenLongClips(segments []models.AudioSegment) []models.AudioSegment {
	out := make([]models.AudioSegment, 0, len(segments))
	for _, segment := range segments {
		if segment.Duration <= 0 {
			// 清单未给槽位时长，无从判断是否超长
			out = append(out, segment)
			continue
		}

		actual, err := a.prober.MediaDuration(segment.Path)
		if err != nil || actual <= 0 {
			utils.Warn("探测配音段时长失败，保留原音频: %s: %v", segment.Path, err)
			out = append(out, segment)
			continue
		}
		if actual <= segment.Duration+ShortenThreshold {
			out = append(out, segment)
			continue
		}

		aligned, err := a.applyTempo(segment, actual/segment.Duration)
		if err != nil {
			utils.Warn("配音段变速失败，保留原音频: %s: %v", segment.Path, err)
			out = append(out, segment)
			continue
		}
		out = append(out, aligned)
	}
	return out
}

func (a *Aligner) applyTempo(segment models.AudioSegment, factor float64) (models.AudioSegment, error) {
	chain := ComputeTempoChain(factor)
	if len(chain) == 0 {
		return segment, nil
	}

	ext := filepath.Ext(segment.Path)
	outPath := strings.TrimSuffix(segment.Path, ext) + "_aligned" + ext
	if err := a.transcoder.ApplyTempoChain(segment.Path, outPath, chain); err != nil {
		return segment, err
	}

	utils.Debug("音频段 %s 变速 %.3f 倍（%d 级）", filepath.Base(segment.Path), factor, len(chain))
	aligned := segment
	aligned.Path = outPath
	return aligned, nil
}
