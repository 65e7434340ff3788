package reconstruct

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/media"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

const (
	// 间隙小于该值时不单独出块（秒）
	gapThreshold = 0.1
	// 槽位时长缺失时的兜底值（秒）
	slotFallback = 3.0
	// 音频时长探测失败时的兜底值（秒）
	audioDurFallback = 0.1
)

type chunkTranscoder interface {
	EncodeGapChunk(videoPath string, start, duration float64, outPath string) error
	EncodeSegmentChunk(spec media.SegmentChunkSpec) error
	EncodeRawSlice(videoPath string, start, duration float64, outPath string) error
	ConcatChunks(chunkPaths []string, outPath string) error
}

type durationProber interface {
	MediaDuration(path string) (float64, error)
}

// Interpolator 对一段视频做补帧拉伸
type Interpolator interface {
	// Interpolate 把视频拉伸到目标时长，返回结果文件路径
	Interpolate(videoPath string, targetDuration float64) (string, error)
}

// Reconstructor 按配音段重建整条视频时间轴
// 时间轴被切为三类块：配音段、段间间隙和结尾剩余部分，
// 逐块转码后用concat无损拼接
type Reconstructor struct {
	transcoder chunkTranscoder
	prober     durationProber
	interp     Interpolator // 可为nil，表示补帧策略退化为setpts
	FPS        int
	TempDir    string
}

// NewReconstructor 创建时间轴重建器
func NewReconstructor(transcoder chunkTranscoder, prober durationProber, interp Interpolator, fps int, tempDir string) *Reconstructor {
	if fps <= 0 {
		fps = 30
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Reconstructor{
		transcoder: transcoder,
		prober:     prober,
		interp:     interp,
		FPS:        fps,
		TempDir:    tempDir,
	}
}

// Rebuild 重建时间轴并把结果写入outPath
// 个别块转码失败只丢弃该块，全部失败才算错误
func (r *Reconstructor) Rebuild(videoPath string, segments []models.AudioSegment, strategy models.Strategy, outPath string) error {
	totalDuration, err := r.prober.MediaDuration(videoPath)
	if err != nil {
		return fmt.Errorf("探测源视频时长失败: %w", err)
	}

	chunkDir := filepath.Join(r.TempDir, "chunks_"+uuid.NewString()[:8])
	if err := utils.EnsureDirExists(chunkDir); err != nil {
		return err
	}
	defer os.RemoveAll(chunkDir)

	sorted := make([]models.AudioSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	var chunks []string
	cursor := 0.0

	for i, segment := range sorted {
		// 上一段结尾到本段开头之间的间隙
		if segment.Start-cursor > gapThreshold {
			gapPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d_gap.mp4", len(chunks)))
			if err := r.transcoder.EncodeGapChunk(videoPath, cursor, segment.Start-cursor, gapPath); err != nil {
				utils.Warn("间隙块转码失败，丢弃 [%.2f, %.2f]: %v", cursor, segment.Start, err)
			} else {
				chunks = append(chunks, gapPath)
			}
		}
		if segment.Start > cursor {
			cursor = segment.Start
		}

		// 槽位重叠时从游标处截取，保证各块在源时间轴上连续
		chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d_seg.mp4", len(chunks)))
		slotDur := r.segmentChunk(videoPath, segment, cursor, strategy, chunkDir, chunkPath, &chunks)
		cursor += slotDur

		utils.Debug("配音段 %d/%d 处理完毕, 游标 %.2f", i+1, len(sorted), cursor)
	}

	// 最后一段之后的剩余视频
	if totalDuration-cursor > gapThreshold {
		tailPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d_tail.mp4", len(chunks)))
		if err := r.transcoder.EncodeGapChunk(videoPath, cursor, totalDuration-cursor, tailPath); err != nil {
			utils.Warn("结尾块转码失败，丢弃 [%.2f, %.2f]: %v", cursor, totalDuration, err)
		} else {
			chunks = append(chunks, tailPath)
		}
	}

	if len(chunks) == 0 {
		return fmt.Errorf("没有任何可用的视频块")
	}

	if err := r.transcoder.ConcatChunks(chunks, outPath); err != nil {
		return err
	}

	utils.Info("时间轴重建完成: %d 个块, 输出 %s", len(chunks), outPath)
	return nil
}

// segmentChunk 转码单个配音段对应的视频块，返回该段占用的槽位时长
// sliceStart是源视频中的截取起点，段重叠时已被钳制到游标位置
func (r *Reconstructor) segmentChunk(videoPath string, segment models.AudioSegment, sliceStart float64, strategy models.Strategy, chunkDir, chunkPath string, chunks *[]string) float64 {
	audioDur, err := r.prober.MediaDuration(segment.Path)
	if err != nil || audioDur <= 0 {
		utils.Warn("探测配音段时长失败，使用兜底值: %s", segment.Path)
		audioDur = audioDurFallback
	}

	slotDur := segment.Duration
	if slotDur <= 0.01 {
		// 清单没给槽位时，用配音时长占位
		slotDur = audioDur
		if slotDur <= 0.01 {
			slotDur = slotFallback
		}
	}

	scale := audioDur / slotDur
	ctx := filterContext{Scale: scale, SlotDur: slotDur, AudioDur: audioDur, FPS: r.FPS}

	if strategy == models.StrategyFrameInterpolate && scale > setptsLimit && r.interp != nil {
		if r.interpolatedChunk(videoPath, segment, sliceStart, slotDur, audioDur, chunkDir, chunkPath, chunks) {
			return slotDur
		}
		utils.Warn("补帧失败，回退到setpts: %s", segment.Path)
	}

	spec := media.SegmentChunkSpec{
		VideoPath:   videoPath,
		AudioPath:   segment.Path,
		Start:       sliceStart,
		SourceDur:   slotDur,
		OutputDur:   slotDur * scale,
		VideoFilter: buildVideoFilter(strategy, ctx),
		OutPath:     chunkPath,
	}
	if err := r.transcoder.EncodeSegmentChunk(spec); err != nil {
		utils.Warn("配音块转码失败，丢弃 [%.2f, %.2f]: %v", sliceStart, sliceStart+slotDur, err)
	} else {
		*chunks = append(*chunks, chunkPath)
	}
	return slotDur
}

// interpolatedChunk 走补帧路径：先精确截取原始片段，补帧拉伸后再配上配音
func (r *Reconstructor) interpolatedChunk(videoPath string, segment models.AudioSegment, sliceStart, slotDur, audioDur float64, chunkDir, chunkPath string, chunks *[]string) bool {
	rawPath := filepath.Join(chunkDir, filepath.Base(chunkPath)+".raw.mp4")
	if err := r.transcoder.EncodeRawSlice(videoPath, sliceStart, slotDur, rawPath); err != nil {
		utils.Warn("截取补帧原始片段失败: %v", err)
		return false
	}
	defer os.Remove(rawPath)

	stretched, err := r.interp.Interpolate(rawPath, audioDur)
	if err != nil {
		utils.Warn("补帧拉伸失败: %v", err)
		return false
	}
	defer os.Remove(stretched)

	spec := media.SegmentChunkSpec{
		VideoPath: stretched,
		AudioPath: segment.Path,
		Start:     0,
		SourceDur: audioDur,
		OutputDur: audioDur,
		OutPath:   chunkPath,
	}
	if err := r.transcoder.EncodeSegmentChunk(spec); err != nil {
		utils.Warn("补帧块转码失败: %v", err)
		return false
	}
	*chunks = append(*chunks, chunkPath)
	return true
}
