package tracker

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-meshbridge/config"
)

// Params 追踪器依赖参数
type Params struct {
	fx.In

	Cfg   *config.Config
	Clock clock.Clock `optional:"true"`
}

// Module 是 tracker 的 Fx 模块
var Module = fx.Module("tracker",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建追踪器
func NewFromParams(p Params) (*Tracker, error) {
	return New(p.Cfg.Tracker, p.Clock)
}
