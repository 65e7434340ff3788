package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadJSONFile 加载JSON文件到out指向的结构体
func LoadJSONFile(filePath string, out interface{}) error {
    data, err := os.ReadFile(filePath)
    if err != nil {
        return fmt.Errorf("读取文件失败: %w", err)
    }

    if err := json.Unmarshal(data, out); err != nil {
        return fmt.Errorf("解析JSON失败: %w", err)
    }

    return nil
}

// SaveJSONFile 保存数据到JSON文件
func SaveJSONFile(filePath string, data interface{}) error {
    // 确保目录存在
    dir := filepath.Dir(filePath)
    if err := os.MkdirAll(dir, 0755); err != nil {
        return fmt.Errorf("创建目录失败: %w", err)
    }

    jsonData, err := json.MarshalIndent(data, "", "  ")
    if err != nil {
        return fmt.Errorf("序列化JSON失败: %w", err)
    }

    if err := os.WriteFile(filePath, jsonData, 0644); err != nil {
        return fmt.Errorf("写入文件失败: %w", err)
    }

    return nil
}

// CheckFileExists 检查文件是否存在
func CheckFileExists(filePath string) bool {
    info, err := os.Stat(filePath)
    if os.IsNotExist(err) {
        return false
    }
    return err == nil && !info.IsDir()
}

// CheckDirExists 检查目录是否存在
func CheckDirExists(dirPath string) bool {
    info, err := os.Stat(dirPath)
    if os.IsNotExist(err) {
        return false
    }
    return err == nil && info.IsDir()
}

// EnsureDirExists 确保目录存在，如果不存在则创建
func EnsureDirExists(dirPath string) error {
    if dirPath == "" {
        return nil // 空路径视为可选
    }

    if !CheckDirExists(dirPath) {
        return os.MkdirAll(dirPath, 0755)
    }

    return nil
}

// RemoveOrphanedWorkDirs 清理指定前缀的残留工作目录
// 上一次运行被强制终止时可能留下 work_xxx / chunks_xxx 目录，
// 按前缀识别后可以安全删除
func RemoveOrphanedWorkDirs(root string, prefix string) int {
    entries, err := os.ReadDir(root)
    if err != nil {
        return 0
    }

    removed := 0
    for _, entry := range entries {
        if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
            continue
        }
        if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
            Warn("清理残留目录失败 %s: %v", entry.Name(), err)
            continue
        }
        removed++
    }

    if removed > 0 {
        Info("已清理 %d 个残留工作目录", removed)
    }
    return removed
}
