package asr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeRegionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	return path
}

func TestFileRegionProviderRegions(t *testing.T) {
	path := writeRegionsFile(t, `[
		{"start": 5.0, "end": 8.0, "words": [{"word": "后", "start": 5.1, "end": 5.4}]},
		{"start": 0.0, "end": 2.5, "words": [
			{"word": "你好", "start": 0.2, "end": 0.8},
			{"word": "。"}
		]}
	]`)

	provider := NewFileRegionProvider(path)
	regions, err := provider.Regions()
	assert.NoError(t, err)
	assert.Len(t, regions, 2)

	// 区间按开始时间排序
	assert.Equal(t, 0.0, regions[0].Start)
	assert.Equal(t, 5.0, regions[1].Start)

	// 缺失时间戳的词标记为未定时
	assert.True(t, regions[0].Words[0].Timed)
	assert.False(t, regions[0].Words[1].Timed)
}

func TestFileRegionProviderSkipsInvalidRegion(t *testing.T) {
	path := writeRegionsFile(t, `[
		{"start": 3.0, "end": 1.0, "words": []},
		{"start": 0.0, "end": 1.0, "words": [{"word": "hi", "start": 0.1, "end": 0.3}]}
	]`)

	regions, err := NewFileRegionProvider(path).Regions()
	assert.NoError(t, err)
	assert.Len(t, regions, 1)
	assert.Equal(t, "hi", regions[0].Words[0].Text)
}

func TestFileRegionProviderMissingFile(t *testing.T) {
	_, err := NewFileRegionProvider("/no/such/file.json").Regions()
	assert.Error(t, err)
}
