package models


// Result 合成任务的结果统计信息
type Result struct {
	JobPath       string            `json:"job_path"`        // 任务清单路径
	VideoPath     string            `json:"video_path"`      // 原始视频路径
	OutputPath    string            `json:"output_path"`     // 合成结果路径
	Strategy      string            `json:"strategy"`        // 使用的重构策略
	OutputFiles   map[string]string `json:"output_files"`    // 附加输出文件路径（字幕等）
	SegmentCount  int               `json:"segment_count"`   // 配音段数量
	DurationMs    int64             `json:"duration_ms"`     // 视频时长（毫秒）
	ProcessTimeMs int64             `json:"process_time_ms"` // 处理时间（毫秒）
}
