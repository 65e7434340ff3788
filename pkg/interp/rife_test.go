package interp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetFrameCount(t *testing.T) {
	// 按比例拉伸
	assert.Equal(t, 120, TargetFrameCount(60, 2.0, 4.0))
	assert.Equal(t, 90, TargetFrameCount(60, 2.0, 3.0))

	// 目标时长更短时保持原帧数，补帧不做抽帧
	assert.Equal(t, 60, TargetFrameCount(60, 2.0, 1.0))

	// 非法输入原样返回
	assert.Equal(t, 0, TargetFrameCount(0, 2.0, 4.0))
	assert.Equal(t, 60, TargetFrameCount(60, 0, 4.0))
}

func TestNewRIFERequiresExecutable(t *testing.T) {
	// 显式给出路径时不做查找
	r, err := NewRIFE("/opt/rife/rife-ncnn-vulkan", "", "", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "/opt/rife/rife-ncnn-vulkan", r.ExePath)
	assert.Equal(t, filepath.Join(".cache", "rife"), r.CacheDir)
}
