// Package config 提供 meshbridge 的统一配置管理
package config

import (
	"fmt"
	"time"
)

// RetryConfig 连接重试与恢复配置
//
// 连接失败后按 initial_delay * 2^attempt 指数退避重试。
// 启动阶段使用较大的尝试次数，恢复阶段使用较小的尝试次数。
type RetryConfig struct {
	// StartupMaxAttempts 启动阶段的最大连接尝试次数
	// 耗尽后启动失败（致命错误）
	// 默认值: 5
	StartupMaxAttempts int `json:"startup_max_attempts"`

	// RecoveryMaxAttempts 恢复阶段的最大连接尝试次数
	// 默认值: 3
	RecoveryMaxAttempts int `json:"recovery_max_attempts"`

	// InitialDelay 指数退避的基础延迟
	// 第 n 次失败后等待 initial_delay * 2^n（n 从 0 开始）
	// 默认值: 1s
	InitialDelay Duration `json:"initial_delay"`

	// RebootGrace 设备重启后的等待时间
	// 默认值: 10s
	RebootGrace Duration `json:"reboot_grace"`

	// ReconnectGrace 不支持重启时关闭后的等待时间（较短）
	// 默认值: 3s
	ReconnectGrace Duration `json:"reconnect_grace"`

	// DetectMaxWait 自动发现凑齐两台电台的总等待上限
	// 默认值: 30s
	DetectMaxWait Duration `json:"detect_max_wait"`

	// DetectInterval 自动发现两轮扫描之间的间隔
	// 默认值: 2s
	DetectInterval Duration `json:"detect_interval"`
}

// DefaultRetryConfig 返回默认的重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		StartupMaxAttempts:  5,
		RecoveryMaxAttempts: 3,
		InitialDelay:        Duration(1 * time.Second),
		RebootGrace:         Duration(10 * time.Second),
		ReconnectGrace:      Duration(3 * time.Second),
		DetectMaxWait:       Duration(30 * time.Second),
		DetectInterval:      Duration(2 * time.Second),
	}
}

// Validate 验证重试配置的有效性
func (c *RetryConfig) Validate() error {
	if c.StartupMaxAttempts < 1 {
		return fmt.Errorf("retry: startup_max_attempts must be >= 1")
	}
	if c.RecoveryMaxAttempts < 1 {
		return fmt.Errorf("retry: recovery_max_attempts must be >= 1")
	}
	if c.InitialDelay <= 0 {
		return fmt.Errorf("retry: initial_delay must be > 0")
	}
	if c.DetectMaxWait <= 0 {
		return fmt.Errorf("retry: detect_max_wait must be > 0")
	}
	if c.DetectInterval <= 0 {
		return fmt.Errorf("retry: detect_interval must be > 0")
	}
	return nil
}
