package meshbridge

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/discovery/mdnsscan"
	"github.com/dep2p/go-meshbridge/internal/relay"
	"github.com/dep2p/go-meshbridge/internal/status"
	"github.com/dep2p/go-meshbridge/internal/supervisor"
	"github.com/dep2p/go-meshbridge/internal/tracker"
	"github.com/dep2p/go-meshbridge/internal/transport/tcpradio"
	"github.com/dep2p/go-meshbridge/pkg/interfaces"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

// buildFxApp 构建 Fx 应用
//
// 装配顺序（按依赖）：
//  1. 配置与时钟注入
//  2. 传输层（默认 tcpradio，可由选项替换）
//  3. 发现层（默认 mdnsscan）与端点解析（显式或自动发现）
//  4. 核心组件：Tracker → Supervisor → Relay → Reporter
func (b *Bridge) buildFxApp(opts *options) *fx.App {
	modules := []fx.Option{
		// 配置注入
		fx.Supply(opts.cfg),
		fx.Provide(func() clock.Clock { return opts.clock }),
	}

	// 传输层
	if opts.transport != nil {
		modules = append(modules, fx.Provide(func() interfaces.Transport { return opts.transport }))
	} else {
		modules = append(modules, tcpradio.Module)
	}

	// 发现层
	if opts.discovery != nil {
		modules = append(modules, fx.Provide(func() interfaces.DeviceDiscovery { return opts.discovery }))
	} else {
		modules = append(modules, mdnsscan.Module)
	}

	// 端点解析：显式端点直接使用，否则通过发现服务自动检测
	modules = append(modules, fx.Provide(func(cfg *config.Config, disc interfaces.DeviceDiscovery) (supervisor.Endpoints, error) {
		return resolveEndpoints(opts, cfg, disc)
	}))

	// 状态接收器
	if opts.sink != nil {
		modules = append(modules, fx.Provide(func() status.Sink { return opts.sink }))
	} else {
		modules = append(modules, fx.Provide(func(cfg *config.Config) (status.Sink, error) {
			if cfg.Status.StatusPath == "" {
				return status.NopSink{}, nil
			}
			return status.NewFileSink(cfg.Status.StatusPath)
		}))
	}

	// 核心组件
	modules = append(modules,
		tracker.Module,
		supervisor.Module,
		relay.Module,
		status.Module,

		fx.Populate(&b.tracker, &b.sup, &b.relay, &b.reporter),

		// 静默 Fx 自身的装配日志
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...)
}

// resolveEndpoints 解析两条链路的端点
func resolveEndpoints(opts *options, cfg *config.Config, disc interfaces.DeviceDiscovery) (supervisor.Endpoints, error) {
	if opts.endpointA != "" && opts.endpointB != "" {
		return supervisor.Endpoints{
			types.LinkA: opts.endpointA,
			types.LinkB: opts.endpointB,
		}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Retry.DetectMaxWait.Duration())
	defer cancel()
	return autoDetect(ctx, disc, cfg.Retry.DetectInterval.Duration())
}
