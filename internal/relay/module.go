package relay

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/supervisor"
	"github.com/dep2p/go-meshbridge/internal/tracker"
)

// Params 转发器依赖参数
type Params struct {
	fx.In

	Tracker    *tracker.Tracker
	Supervisor *supervisor.Supervisor
	Cfg        *config.Config
}

// Module 是 relay 的 Fx 模块
var Module = fx.Module("relay",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建转发器
func NewFromParams(p Params) *Relay {
	return New(p.Tracker, p.Supervisor, p.Cfg.Health)
}
