package reconstruct

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/media"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
)

type gapCall struct {
	start, duration float64
}

type fakeTranscoder struct {
	gaps    []gapCall
	specs   []media.SegmentChunkSpec
	raws    []gapCall
	concat  []string
	failGap bool
	failSeg bool
}

func (f *fakeTranscoder) EncodeGapChunk(videoPath string, start, duration float64, outPath string) error {
	if f.failGap {
		return fmt.Errorf("gap失败")
	}
	f.gaps = append(f.gaps, gapCall{start, duration})
	return nil
}

func (f *fakeTranscoder) EncodeSegmentChunk(spec media.SegmentChunkSpec) error {
	if f.failSeg {
		return fmt.Errorf("seg失败")
	}
	f.specs = append(f.specs, spec)
	return nil
}

func (f *fakeTranscoder) EncodeRawSlice(videoPath string, start, duration float64, outPath string) error {
	f.raws = append(f.raws, gapCall{start, duration})
	return nil
}

func (f *fakeTranscoder) ConcatChunks(chunkPaths []string, outPath string) error {
	f.concat = append([]string{}, chunkPaths...)
	return nil
}

type fakeProber struct {
	durations map[string]float64
}

func (f *fakeProber) MediaDuration(path string) (float64, error) {
	if d, ok := f.durations[path]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("未知文件: %s", path)
}

type fakeInterp struct {
	calls  int
	target float64
	fail   bool
}

func (f *fakeInterp) Interpolate(videoPath string, targetDuration float64) (string, error) {
	f.calls++
	f.target = targetDuration
	if f.fail {
		return "", fmt.Errorf("补帧失败")
	}
	return videoPath + ".interp.mp4", nil
}

func TestRebuildGapSegmentTail(t *testing.T) {
	ft := &fakeTranscoder{}
	prober := &fakeProber{durations: map[string]float64{
		"/v/in.mp4":  10.0,
		"/a/seg.wav": 3.0,
	}}
	r := NewReconstructor(ft, prober, nil, 30, t.TempDir())

	segments := []models.AudioSegment{{Start: 2.0, Path: "/a/seg.wav", Duration: 3.0}}
	err := r.Rebuild("/v/in.mp4", segments, models.StrategySpeedChange, "/v/out.mp4")
	require.NoError(t, err)

	// 开头间隙 [0, 2) 和结尾 [5, 10)
	require.Len(t, ft.gaps, 2)
	assert.InDelta(t, 0.0, ft.gaps[0].start, 1e-9)
	assert.InDelta(t, 2.0, ft.gaps[0].duration, 1e-9)
	assert.InDelta(t, 5.0, ft.gaps[1].start, 1e-9)
	assert.InDelta(t, 5.0, ft.gaps[1].duration, 1e-9)

	// 配音段 [2, 5)，时长一致不加滤镜
	require.Len(t, ft.specs, 1)
	assert.InDelta(t, 2.0, ft.specs[0].Start, 1e-9)
	assert.InDelta(t, 3.0, ft.specs[0].SourceDur, 1e-9)
	assert.InDelta(t, 3.0, ft.specs[0].OutputDur, 1e-9)
	assert.Equal(t, "", ft.specs[0].VideoFilter)

	// 三块按时间顺序拼接
	require.Len(t, ft.concat, 3)
	assert.Contains(t, ft.concat[0], "gap")
	assert.Contains(t, ft.concat[1], "seg")
	assert.Contains(t, ft.concat[2], "tail")
}

func TestRebuildNoSegmentsKeepsWholeVideo(t *testing.T) {
	ft := &fakeTranscoder{}
	prober := &fakeProber{durations: map[string]float64{"/v/in.mp4": 8.0}}
	r := NewReconstructor(ft, prober, nil, 30, t.TempDir())

	err := r.Rebuild("/v/in.mp4", nil, models.StrategySpeedChange, "/v/out.mp4")
	require.NoError(t, err)

	require.Len(t, ft.gaps, 1)
	assert.InDelta(t, 0.0, ft.gaps[0].start, 1e-9)
	assert.InDelta(t, 8.0, ft.gaps[0].duration, 1e-9)
	assert.Len(t, ft.concat, 1)
}

func TestRebuildOverlappingSlotsStayContiguous(t *testing.T) {
	ft := &fakeTranscoder{}
	prober := &fakeProber{durations: map[string]float64{
		"/v/in.mp4": 10.0,
		"/a/a.wav":  3.0,
		"/a/b.wav":  2.0,
	}}
	r := NewReconstructor(ft, prober, nil, 30, t.TempDir())

	// 第二段起点落在第一段槽位内部，截取起点应被推到游标处
	segments := []models.AudioSegment{
		{Start: 0.0, Path: "/a/a.wav", Duration: 3.0},
		{Start: 1.0, Path: "/a/b.wav", Duration: 2.0},
	}
	err := r.Rebuild("/v/in.mp4", segments, models.StrategySpeedChange, "/v/out.mp4")
	require.NoError(t, err)

	require.Len(t, ft.specs, 2)
	assert.InDelta(t, 0.0, ft.specs[0].Start, 1e-9)
	assert.InDelta(t, 3.0, ft.specs[0].SourceDur, 1e-9)
	assert.InDelta(t, 3.0, ft.specs[1].Start, 1e-9)
	assert.InDelta(t, 2.0, ft.specs[1].SourceDur, 1e-9)

	// 重叠不产生间隙块，结尾从5.0继续
	require.Len(t, ft.gaps, 1)
	assert.InDelta(t, 5.0, ft.gaps[0].start, 1e-9)
	assert.InDelta(t, 5.0, ft.gaps[0].duration, 1e-9)
}

func TestRebuildDropsFailedChunks(t *testing.T) {
	ft := &fakeTranscoder{failGap: true}
	prober := &fakeProber{durations: map[string]float64{
		"/v/in.mp4":  10.0,
		"/a/seg.wav": 3.0,
	}}
	r := NewReconstructor(ft, prober, nil, 30, t.TempDir())

	segments := []models.AudioSegment{{Start: 2.0, Path: "/a/seg.wav", Duration: 3.0}}
	err := r.Rebuild("/v/in.mp4", segments, models.StrategySpeedChange, "/v/out.mp4")
	require.NoError(t, err)
	assert.Len(t, ft.concat, 1)
}

func TestRebuildFailsWithoutAnyChunk(t *testing.T) {
	ft := &fakeTranscoder{failGap: true, failSeg: true}
	prober := &fakeProber{durations: map[string]float64{
		"/v/in.mp4":  10.0,
		"/a/seg.wav": 3.0,
	}}
	r := NewReconstructor(ft, prober, nil, 30, t.TempDir())

	segments := []models.AudioSegment{{Start: 2.0, Path: "/a/seg.wav", Duration: 3.0}}
	err := r.Rebuild("/v/in.mp4", segments, models.StrategySpeedChange, "/v/out.mp4")
	assert.Error(t, err)
}

func TestRebuildMissingSlotFallsBackToAudioDuration(t *testing.T) {
	ft := &fakeTranscoder{}
	prober := &fakeProber{durations: map[string]float64{
		"/v/in.mp4":  10.0,
		"/a/seg.wav": 4.0,
	}}
	r := NewReconstructor(ft, prober, nil, 30, t.TempDir())

	segments := []models.AudioSegment{{Start: 0.0, Path: "/a/seg.wav"}}
	err := r.Rebuild("/v/in.mp4", segments, models.StrategySpeedChange, "/v/out.mp4")
	require.NoError(t, err)

	require.Len(t, ft.specs, 1)
	assert.InDelta(t, 4.0, ft.specs[0].SourceDur, 1e-9)
	assert.InDelta(t, 4.0, ft.specs[0].OutputDur, 1e-9)
}

func TestRebuildInterpolatePath(t *testing.T) {
	ft := &fakeTranscoder{}
	fi := &fakeInterp{}
	prober := &fakeProber{durations: map[string]float64{
		"/v/in.mp4":  10.0,
		"/a/seg.wav": 4.0,
	}}
	r := NewReconstructor(ft, prober, fi, 30, t.TempDir())

	segments := []models.AudioSegment{{Start: 2.0, Path: "/a/seg.wav", Duration: 2.0}}
	err := r.Rebuild("/v/in.mp4", segments, models.StrategyFrameInterpolate, "/v/out.mp4")
	require.NoError(t, err)

	// 原始片段按槽位截取，补帧目标为配音时长
	require.Len(t, ft.raws, 1)
	assert.InDelta(t, 2.0, ft.raws[0].start, 1e-9)
	assert.InDelta(t, 2.0, ft.raws[0].duration, 1e-9)
	assert.Equal(t, 1, fi.calls)
	assert.InDelta(t, 4.0, fi.target, 1e-9)

	require.Len(t, ft.specs, 1)
	assert.True(t, strings.HasSuffix(ft.specs[0].VideoPath, ".interp.mp4"))
	assert.InDelta(t, 0.0, ft.specs[0].Start, 1e-9)
}

func TestRebuildInterpolateFallsBackToSetpts(t *testing.T) {
	ft := &fakeTranscoder{}
	fi := &fakeInterp{fail: true}
	prober := &fakeProber{durations: map[string]float64{
		"/v/in.mp4":  10.0,
		"/a/seg.wav": 4.0,
	}}
	r := NewReconstructor(ft, prober, fi, 30, t.TempDir())

	segments := []models.AudioSegment{{Start: 2.0, Path: "/a/seg.wav", Duration: 2.0}}
	err := r.Rebuild("/v/in.mp4", segments, models.StrategyFrameInterpolate, "/v/out.mp4")
	require.NoError(t, err)

	require.Len(t, ft.specs, 1)
	assert.Equal(t, "/v/in.mp4", ft.specs[0].VideoPath)
	assert.Equal(t, "setpts=2.0000*PTS", ft.specs[0].VideoFilter)
}

func TestBuildVideoFilter(t *testing.T) {
	base := filterContext{SlotDur: 2.0, AudioDur: 3.0, FPS: 30}

	near := base
	near.Scale = 1.01
	assert.Equal(t, "", buildVideoFilter(models.StrategyFrameBlend, near))

	small := base
	small.Scale = 1.04
	assert.Equal(t, "setpts=1.0400*PTS", buildVideoFilter(models.StrategyFrameBlend, small))

	blend := base
	blend.Scale = 1.5
	assert.Equal(t, "setpts=1.5000*PTS,minterpolate=fps=30:mi_mode=blend",
		buildVideoFilter(models.StrategyFrameBlend, blend))

	freeze := base
	freeze.Scale = 1.5
	assert.Equal(t, "tpad=stop_mode=clone:stop_duration=1.500",
		buildVideoFilter(models.StrategyFreezeFrame, freeze))

	speed := base
	speed.Scale = 1.5
	assert.Equal(t, "setpts=1.5000*PTS", buildVideoFilter(models.StrategySpeedChange, speed))
}
