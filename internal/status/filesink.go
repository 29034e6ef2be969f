package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// NopSink 丢弃所有报告的接收器（状态文件被禁用时使用）
type NopSink struct{}

var _ Sink = NopSink{}

// Publish 实现 Sink 接口
func (NopSink) Publish(Report) error { return nil }

// FileSink 将状态报告原子写入 JSON 文件
//
// 先写同目录临时文件再原子重命名，读取方永远不会看到半截文件。
type FileSink struct {
	path string
}

var _ Sink = (*FileSink)(nil)

// NewFileSink 创建文件接收器
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("status file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create status dir: %w", err)
		}
	}
	return &FileSink{path: path}, nil
}

// Path 返回状态文件路径
func (s *FileSink) Path() string {
	return s.path
}

// Publish 实现 Sink 接口
func (s *FileSink) Publish(report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	// 写入临时文件
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}

	// 原子重命名
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename status: %w", err)
	}
	return nil
}
