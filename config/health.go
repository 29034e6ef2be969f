// Package config 提供 meshbridge 的统一配置管理
package config

import (
	"fmt"
	"time"
)

// HealthConfig 链路健康监控配置
//
// 配置链路级别的存活探测，用于检测链路故障并触发自动恢复。
type HealthConfig struct {
	// FailureThreshold 连续探测失败阈值
	// 达到此阈值后升级为重启/重连
	// 默认值: 3
	FailureThreshold int `json:"failure_threshold"`

	// ProbeTimeout 单次探测超时
	// 默认值: 5s
	ProbeTimeout Duration `json:"probe_timeout"`

	// SendTimeout 单次消息发送超时
	// 一条链路上被阻塞的发送不会拖住另一条链路的处理
	// 默认值: 10s
	SendTimeout Duration `json:"send_timeout"`
}

// DefaultHealthConfig 返回默认的健康监控配置
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		ProbeTimeout:     Duration(5 * time.Second),
		SendTimeout:      Duration(10 * time.Second),
	}
}

// Validate 验证健康监控配置的有效性
func (c *HealthConfig) Validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("health: failure_threshold must be >= 1")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("health: probe_timeout must be > 0")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("health: send_timeout must be > 0")
	}
	return nil
}
