package mixer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
)

// copyTranscoder 直接复制已是目标格式的WAV文件
type copyTranscoder struct {
	failAll bool
}

func (c *copyTranscoder) DecodeToPCM(inPath, outPath string, sampleRate int) error {
	if c.failAll {
		return fmt.Errorf("解码失败")
	}
	src, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func writeTestWav(t *testing.T, path string, seconds, amplitude float64, sampleRate int) {
	t.Helper()
	frames := int(seconds * float64(sampleRate))
	buffer := make([]float64, frames*numChannels)
	for i := range buffer {
		buffer[i] = amplitude
	}
	require.NoError(t, writePCM(path, buffer, sampleRate))
}

func TestMixRejectsEmptyInput(t *testing.T) {
	m := NewMixer(&copyTranscoder{}, 8000, t.TempDir())
	err := m.Mix(nil, 2.0, filepath.Join(t.TempDir(), "out.wav"))
	assert.Error(t, err)
}

func TestMixFailsWhenAllSegmentsBroken(t *testing.T) {
	dir := t.TempDir()
	m := NewMixer(&copyTranscoder{failAll: true}, 8000, dir)
	segments := []models.AudioSegment{{Start: 0, Path: filepath.Join(dir, "missing.wav")}}
	err := m.Mix(segments, 1.0, filepath.Join(dir, "out.wav"))
	assert.Error(t, err)
}

func TestMixPlacesSegmentAtOffset(t *testing.T) {
	dir := t.TempDir()
	segPath := filepath.Join(dir, "seg.wav")
	writeTestWav(t, segPath, 0.5, 0.5, 8000)

	m := NewMixer(&copyTranscoder{}, 8000, dir)
	outPath := filepath.Join(dir, "out.wav")
	err := m.Mix([]models.AudioSegment{{Start: 1.0, Path: segPath}}, 2.0, outPath)
	require.NoError(t, err)

	samples, err := readPCM(outPath)
	require.NoError(t, err)

	// 段窗口之外保持静音
	assert.InDelta(t, 0.0, samples[100], 1e-6)
	assert.InDelta(t, 0.0, samples[len(samples)-100], 1e-6)

	// 段窗口内为原始振幅乘增益
	inside := int(1.1*8000) * numChannels
	assert.InDelta(t, 0.6, samples[inside], 0.01)
}

func TestMixSkipsSegmentBeyondVideoEnd(t *testing.T) {
	dir := t.TempDir()
	segPath := filepath.Join(dir, "seg.wav")
	writeTestWav(t, segPath, 0.5, 0.5, 8000)

	m := NewMixer(&copyTranscoder{}, 8000, dir)
	outPath := filepath.Join(dir, "out.wav")

	// 起点在视频结尾之后的段不计入有效段
	segments := []models.AudioSegment{
		{Start: 0.0, Path: segPath},
		{Start: 5.0, Path: segPath},
	}
	err := m.Mix(segments, 1.0, outPath)
	require.NoError(t, err)

	// 只有越界段时视为没有任何有效段
	err = m.Mix([]models.AudioSegment{{Start: 5.0, Path: segPath}}, 1.0, outPath)
	assert.Error(t, err)
}

func TestMixNormalizesWhenPeakExceedsOne(t *testing.T) {
	dir := t.TempDir()
	segPath := filepath.Join(dir, "seg.wav")
	writeTestWav(t, segPath, 0.5, 0.5, 8000)

	m := NewMixer(&copyTranscoder{}, 8000, dir)
	outPath := filepath.Join(dir, "out.wav")

	// 两段完全重叠，叠加后峰值1.2，应整体归一化到1.0
	segments := []models.AudioSegment{
		{Start: 0.0, Path: segPath},
		{Start: 0.0, Path: segPath},
	}
	err := m.Mix(segments, 1.0, outPath)
	require.NoError(t, err)

	samples, err := readPCM(outPath)
	require.NoError(t, err)

	inside := int(0.2*8000) * numChannels
	assert.InDelta(t, 1.0, samples[inside], 0.01)
}
