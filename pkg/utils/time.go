package utils

import (
	"fmt"
	"time"
)

// FormatTimeDuration 格式化时间长度为易读格式
func FormatTimeDuration(seconds float64) string {
    hours := int(seconds) / 3600
    minutes := (int(seconds) % 3600) / 60
    secs := int(seconds) % 60

    if hours > 0 {
        return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
    } else if minutes > 0 {
        return fmt.Sprintf("%dm %ds", minutes, secs)
    }
    return fmt.Sprintf("%ds", secs)
}

// GetCurrentTimeString 获取当前时间的字符串表示
func GetCurrentTimeString() string {
    return time.Now().Format("2006-01-02 15:04:05")
}

// FormatFileSize 将字节大小格式化为人类可读格式
func FormatFileSize(sizeBytes int64) string {
    const (
        B  int64 = 1
        KB int64 = 1024 * B
        MB int64 = 1024 * KB
        GB int64 = 1024 * MB
    )

    var (
        unit     string
        unitSize int64
    )

    switch {
    case sizeBytes >= GB:
        unit = "GB"
        unitSize = GB
    case sizeBytes >= MB:
        unit = "MB"
        unitSize = MB
    case sizeBytes >= KB:
        unit = "KB"
        unitSize = KB
    default:
        unit = "B"
        unitSize = B
    }

    return fmt.Sprintf("%.2f %s", float64(sizeBytes)/float64(unitSize), unit)
}
