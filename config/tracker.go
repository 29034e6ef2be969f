// Package config 提供 meshbridge 的统一配置管理
package config

import (
	"fmt"
	"time"
)

// TrackerConfig 消息去重跟踪配置
//
// 去重窗口和审计日志的边界各自独立：窗口决定去重正确性，
// 审计日志只服务于统计，永远不影响去重判定。
type TrackerConfig struct {
	// MaxAge 去重窗口内消息的最大存活时间
	// 超龄的消息与从未见过的消息不可区分（有界内存的取舍）
	// 默认值: 10m
	MaxAge Duration `json:"max_age"`

	// MaxMessages 去重窗口的最大条目数
	// 默认值: 1000
	MaxMessages int `json:"max_messages"`

	// AuditCapacity 审计日志容量（仅统计用途，独立于去重窗口）
	// 默认值: 10000
	AuditCapacity int `json:"audit_capacity"`
}

// DefaultTrackerConfig 返回默认的跟踪配置
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxAge:        Duration(10 * time.Minute),
		MaxMessages:   1000,
		AuditCapacity: 10000,
	}
}

// Validate 验证跟踪配置的有效性
func (c *TrackerConfig) Validate() error {
	if c.MaxAge <= 0 {
		return fmt.Errorf("tracker: max_age must be > 0")
	}
	if c.MaxMessages < 1 {
		return fmt.Errorf("tracker: max_messages must be >= 1")
	}
	if c.AuditCapacity < c.MaxMessages {
		return fmt.Errorf("tracker: audit_capacity must be >= max_messages")
	}
	return nil
}
