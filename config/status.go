// Package config 提供 meshbridge 的统一配置管理
package config

import (
	"fmt"
	"time"
)

// StatusConfig 状态上报与控制循环配置
//
// 单一控制循环以 tick_interval 为节拍驱动：
// 每 health_every_ticks 个节拍执行一次健康检查，
// 每 status_every_ticks 个节拍写出一次状态快照。
type StatusConfig struct {
	// TickInterval 控制循环节拍
	// 默认值: 1s
	TickInterval Duration `json:"tick_interval"`

	// HealthEveryTicks 健康检查的节拍间隔
	// 默认值: 30
	HealthEveryTicks int `json:"health_every_ticks"`

	// StatusEveryTicks 状态快照的节拍间隔
	// 默认值: 10
	StatusEveryTicks int `json:"status_every_ticks"`

	// StatusPath 状态文件路径（原子写入），为空时不写状态文件
	// 默认值: "meshbridge_status.json"
	StatusPath string `json:"status_path"`
}

// DefaultStatusConfig 返回默认的状态配置
func DefaultStatusConfig() StatusConfig {
	return StatusConfig{
		TickInterval:     Duration(1 * time.Second),
		HealthEveryTicks: 30,
		StatusEveryTicks: 10,
		StatusPath:       "meshbridge_status.json",
	}
}

// Validate 验证状态配置的有效性
func (c *StatusConfig) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("status: tick_interval must be > 0")
	}
	if c.HealthEveryTicks < 1 {
		return fmt.Errorf("status: health_every_ticks must be >= 1")
	}
	if c.StatusEveryTicks < 1 {
		return fmt.Errorf("status: status_every_ticks must be >= 1")
	}
	return nil
}
