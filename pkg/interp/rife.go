package interp

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/media"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

// DefaultExecutable rife-ncnn-vulkan可执行文件名
const DefaultExecutable = "rife-ncnn-vulkan"

type frameTranscoder interface {
	ExtractFrameSequence(videoPath, frameDir string) error
	EncodeFrameSequence(frameDir string, fps float64, outPath string) error
}

type videoProber interface {
	VideoInfo(path string) (media.VideoInfo, error)
}

// RIFE 调用rife-ncnn-vulkan做光流补帧，把视频拉伸到目标时长
type RIFE struct {
	ExePath    string
	ModelDir   string
	CacheDir   string
	prober     videoProber
	transcoder frameTranscoder
}

// NewRIFE 创建补帧器，exePath为空时在PATH中查找默认可执行文件
func NewRIFE(exePath, modelDir, cacheDir string, prober videoProber, transcoder frameTranscoder) (*RIFE, error) {
	if exePath == "" {
		found, err := exec.LookPath(DefaultExecutable)
		if err != nil {
			return nil, fmt.Errorf("未找到补帧程序 %s: %w", DefaultExecutable, err)
		}
		exePath = found
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(".cache", "rife")
	}
	return &RIFE{
		ExePath:    exePath,
		ModelDir:   modelDir,
		CacheDir:   cacheDir,
		prober:     prober,
		transcoder: transcoder,
	}, nil
}

// TargetFrameCount 按时长比例换算目标帧数，补帧只增不减
func TargetFrameCount(origFrames int, origDuration, targetDuration float64) int {
	if origFrames <= 0 || origDuration <= 0 {
		return origFrames
	}
	target := int(math.Round(float64(origFrames) * targetDuration / origDuration))
	if target < origFrames {
		return origFrames
	}
	return target
}

// Interpolate 把视频补帧拉伸到目标时长，返回结果文件路径
// 工作目录无论成败都会清理
func (r *RIFE) Interpolate(videoPath string, targetDuration float64) (string, error) {
	info, err := r.prober.VideoInfo(videoPath)
	if err != nil {
		return "", fmt.Errorf("探测补帧输入失败: %w", err)
	}
	if info.Frames <= 0 || info.Duration <= 0 || info.FPS <= 0 {
		return "", fmt.Errorf("补帧输入缺少帧信息: %s", videoPath)
	}

	targetFrames := TargetFrameCount(info.Frames, info.Duration, targetDuration)

	workDir := filepath.Join(r.CacheDir, "work_"+uuid.NewString()[:8])
	inDir := filepath.Join(workDir, "in")
	outDir := filepath.Join(workDir, "out")
	for _, dir := range []string{inDir, outDir} {
		if err := utils.EnsureDirExists(dir); err != nil {
			return "", err
		}
	}
	defer os.RemoveAll(workDir)

	if err := r.transcoder.ExtractFrameSequence(videoPath, inDir); err != nil {
		return "", err
	}

	args := []string{
		"-i", inDir,
		"-o", outDir,
		"-n", strconv.Itoa(targetFrames),
		"-g", "0",
	}
	if r.ModelDir != "" {
		args = append(args, "-m", r.ModelDir)
	}

	utils.Debug("补帧: %d -> %d 帧, %s", info.Frames, targetFrames, filepath.Base(videoPath))
	cmd := exec.Command(r.ExePath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("补帧程序执行失败: %w: %s", err, strings.TrimSpace(string(output)))
	}

	ext := filepath.Ext(videoPath)
	outPath := strings.TrimSuffix(videoPath, ext) + "_interp" + ext
	if err := r.transcoder.EncodeFrameSequence(outDir, info.FPS, outPath); err != nil {
		return "", err
	}

	return outPath, nil
}
