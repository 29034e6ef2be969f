package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig_Defaults 测试默认配置
func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 10*time.Minute, cfg.Tracker.MaxAge.Duration())
	assert.Equal(t, 1000, cfg.Tracker.MaxMessages)
	assert.Equal(t, 10000, cfg.Tracker.AuditCapacity)
	assert.Equal(t, 3, cfg.Health.FailureThreshold)
	assert.Equal(t, 5, cfg.Retry.StartupMaxAttempts)
	assert.Equal(t, 3, cfg.Retry.RecoveryMaxAttempts)
	assert.Equal(t, time.Second, cfg.Status.TickInterval.Duration())

	require.NoError(t, cfg.Validate())
}

// TestConfig_Validate 测试配置验证
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max_age 为零", func(c *Config) { c.Tracker.MaxAge = 0 }},
		{"max_messages 为零", func(c *Config) { c.Tracker.MaxMessages = 0 }},
		{"audit 容量小于窗口容量", func(c *Config) { c.Tracker.AuditCapacity = c.Tracker.MaxMessages - 1 }},
		{"失败阈值为零", func(c *Config) { c.Health.FailureThreshold = 0 }},
		{"探测超时为零", func(c *Config) { c.Health.ProbeTimeout = 0 }},
		{"启动尝试次数为零", func(c *Config) { c.Retry.StartupMaxAttempts = 0 }},
		{"退避基础延迟为零", func(c *Config) { c.Retry.InitialDelay = 0 }},
		{"发现扫描间隔为零", func(c *Config) { c.Retry.DetectInterval = 0 }},
		{"节拍为零", func(c *Config) { c.Status.TickInterval = 0 }},
		{"健康检查间隔为零", func(c *Config) { c.Status.HealthEveryTicks = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestDuration_JSON 测试 Duration 的 JSON 编解码
func TestDuration_JSON(t *testing.T) {
	// 字符串格式
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"90s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	// 数字格式（纳秒）
	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, d.Duration())

	// 非法字符串
	assert.Error(t, json.Unmarshal([]byte(`"not-a-duration"`), &d))

	// 输出为字符串
	data, err := json.Marshal(Duration(5 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"5m0s"`, string(data))
}

// TestLoadFile 测试配置文件加载
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
		"tracker": {"max_age": "5m", "max_messages": 100},
		"health": {"failure_threshold": 5},
		"status": {"status_path": "/tmp/bridge.json"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// 文件中出现的字段被覆盖
	assert.Equal(t, 5*time.Minute, cfg.Tracker.MaxAge.Duration())
	assert.Equal(t, 100, cfg.Tracker.MaxMessages)
	assert.Equal(t, 5, cfg.Health.FailureThreshold)
	assert.Equal(t, "/tmp/bridge.json", cfg.Status.StatusPath)

	// 未出现的字段保留默认值
	assert.Equal(t, 10000, cfg.Tracker.AuditCapacity)
	assert.Equal(t, 3, cfg.Retry.RecoveryMaxAttempts)
}

// TestLoadFile_Invalid 测试非法配置文件
func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	// 文件不存在
	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	// JSON 语法错误
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0600))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	// 验证失败
	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"tracker":{"max_messages":0}}`), 0600))
	_, err = LoadFile(invalid)
	assert.Error(t, err)
}
