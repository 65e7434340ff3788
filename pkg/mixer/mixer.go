package mixer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

const (
	// DefaultSampleRate 混音底轨的默认采样率
	DefaultSampleRate = 44100
	// 底轨固定双声道
	numChannels = 2
	// 混音后整体增益
	mixGain = 1.2
)

type pcmTranscoder interface {
	DecodeToPCM(inPath, outPath string, sampleRate int) error
}

// Mixer 把配音段按起始时间混入一条静音底轨
type Mixer struct {
	transcoder pcmTranscoder
	SampleRate int
	TempDir    string
}

// NewMixer 创建混音器
func NewMixer(transcoder pcmTranscoder, sampleRate int, tempDir string) *Mixer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Mixer{transcoder: transcoder, SampleRate: sampleRate, TempDir: tempDir}
}

// Mix 生成总时长的混音轨并写入outPath
// 各段叠加后统一提升增益，峰值超限时整体归一化
func (m *Mixer) Mix(segments []models.AudioSegment, totalDuration float64, outPath string) error {
	if len(segments) == 0 {
		return fmt.Errorf("没有可混音的音频段")
	}
	if totalDuration <= 0 {
		return fmt.Errorf("混音总时长非法: %.3f", totalDuration)
	}

	totalFrames := int(totalDuration*float64(m.SampleRate)) + 1
	buffer := make([]float64, totalFrames*numChannels)

	mixed := 0
	for i, segment := range segments {
		wavPath := filepath.Join(m.TempDir, fmt.Sprintf("mix_%03d.wav", i))
		if err := m.transcoder.DecodeToPCM(segment.Path, wavPath, m.SampleRate); err != nil {
			utils.Warn("音频段解码失败，跳过: %s: %v", segment.Path, err)
			continue
		}

		samples, err := readPCM(wavPath)
		os.Remove(wavPath)
		if err != nil {
			utils.Warn("音频段读取失败，跳过: %s: %v", segment.Path, err)
			continue
		}

		offset := int(segment.Start*float64(m.SampleRate)) * numChannels
		if offset >= len(buffer) {
			utils.Warn("音频段起点 %.2f 秒超出视频结尾，跳过: %s", segment.Start, segment.Path)
			continue
		}
		for j, s := range samples {
			idx := offset + j
			if idx < 0 {
				continue
			}
			if idx >= len(buffer) {
				break
			}
			buffer[idx] += s
		}
		mixed++
	}

	if mixed == 0 {
		return fmt.Errorf("没有任何音频段成功混入（共 %d 段）", len(segments))
	}

	peak := 0.0
	for i := range buffer {
		buffer[i] *= mixGain
		if v := buffer[i]; v > peak {
			peak = v
		} else if -v > peak {
			peak = -v
		}
	}
	if peak > 1.0 {
		utils.Debug("混音峰值 %.3f 超限，整体归一化", peak)
		for i := range buffer {
			buffer[i] /= peak
		}
	}

	if err := writePCM(outPath, buffer, m.SampleRate); err != nil {
		return fmt.Errorf("写入混音结果失败: %w", err)
	}

	utils.Info("混音完成: %d/%d 段, 时长 %.2f 秒", mixed, len(segments), totalDuration)
	return nil
}

// readPCM 读取16bit WAV并归一化为[-1, 1]的交织立体声采样
func readPCM(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("WAV文件没有采样数据: %s", path)
	}

	samples := make([]float64, 0, len(buf.Data))
	if buf.Format != nil && buf.Format.NumChannels == 1 {
		// 单声道复制到双声道
		for _, v := range buf.Data {
			s := float64(v) / 32768.0
			samples = append(samples, s, s)
		}
	} else {
		for _, v := range buf.Data {
			samples = append(samples, float64(v)/32768.0)
		}
	}
	return samples, nil
}

// writePCM 把交织立体声采样写成16bit WAV
func writePCM(path string, buffer []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(buffer)),
	}
	for i, s := range buffer {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		intBuf.Data[i] = v
	}

	if err := encoder.Write(intBuf); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}
