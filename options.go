package meshbridge

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/status"
	"github.com/dep2p/go-meshbridge/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 配置
	cfg *config.Config

	// 显式端点（两者要么都设置，要么都为空走自动发现）
	endpointA string
	endpointB string

	// 传输实现（默认 tcpradio）
	transport interfaces.Transport

	// 发现实现（默认 mdnsscan）
	discovery interfaces.DeviceDiscovery

	// 状态接收器（默认文件接收器）
	sink status.Sink

	// 时钟（默认真实时钟，测试注入模拟时钟）
	clock clock.Clock
}

// defaultOptions 返回默认选项
func defaultOptions() *options {
	return &options{
		cfg:   config.NewConfig(),
		clock: clock.New(),
	}
}

// apply 应用选项并验证
func (o *options) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return o.cfg.Validate()
}

// WithConfig 使用给定配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		o.cfg = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.cfg = cfg
		return nil
	}
}

// WithEndpoints 使用显式的两个电台端点，跳过自动发现
func WithEndpoints(endpointA, endpointB string) Option {
	return func(o *options) error {
		if endpointA == "" || endpointB == "" {
			return fmt.Errorf("both endpoints are required")
		}
		if endpointA == endpointB {
			return fmt.Errorf("endpoints must differ")
		}
		o.endpointA = endpointA
		o.endpointB = endpointB
		return nil
	}
}

// WithTransport 使用自定义传输实现
func WithTransport(transport interfaces.Transport) Option {
	return func(o *options) error {
		if transport == nil {
			return fmt.Errorf("transport cannot be nil")
		}
		o.transport = transport
		return nil
	}
}

// WithDiscovery 使用自定义发现实现
func WithDiscovery(discovery interfaces.DeviceDiscovery) Option {
	return func(o *options) error {
		if discovery == nil {
			return fmt.Errorf("discovery cannot be nil")
		}
		o.discovery = discovery
		return nil
	}
}

// WithStatusSink 使用自定义状态接收器
func WithStatusSink(sink status.Sink) Option {
	return func(o *options) error {
		if sink == nil {
			return fmt.Errorf("sink cannot be nil")
		}
		o.sink = sink
		return nil
	}
}

// WithStatusPath 设置状态文件路径
func WithStatusPath(path string) Option {
	return func(o *options) error {
		if path == "" {
			return fmt.Errorf("status path cannot be empty")
		}
		o.cfg.Status.StatusPath = path
		return nil
	}
}

// WithClock 使用自定义时钟（测试用）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.clock = clk
		return nil
	}
}
