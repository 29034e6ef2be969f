// Package config 提供 meshbridge 的统一配置管理
//
// 各关注点（去重跟踪、健康监控、重试恢复、状态上报）的配置
// 分文件定义，统一聚合为 Config。所有配置均可通过 JSON 文件加载。
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config meshbridge 统一配置
type Config struct {
	// Tracker 消息去重跟踪配置
	Tracker TrackerConfig `json:"tracker"`

	// Health 链路健康监控配置
	Health HealthConfig `json:"health"`

	// Retry 连接重试与恢复配置
	Retry RetryConfig `json:"retry"`

	// Status 状态上报与控制循环配置
	Status StatusConfig `json:"status"`
}

// NewConfig 返回带默认值的配置
func NewConfig() *Config {
	return &Config{
		Tracker: DefaultTrackerConfig(),
		Health:  DefaultHealthConfig(),
		Retry:   DefaultRetryConfig(),
		Status:  DefaultStatusConfig(),
	}
}

// Validate 验证配置的有效性
//
// 依次验证各子配置，返回第一个发现的错误。
func (c *Config) Validate() error {
	if err := c.Tracker.Validate(); err != nil {
		return err
	}
	if err := c.Health.Validate(); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if err := c.Status.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadFile 从 JSON 文件加载配置
//
// 未出现在文件中的字段保留默认值。
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}
