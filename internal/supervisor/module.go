package supervisor

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/pkg/interfaces"
)

// Params 监督器依赖参数
type Params struct {
	fx.In

	Transport interfaces.Transport
	Endpoints Endpoints
	Cfg       *config.Config
	Clock     clock.Clock `optional:"true"`
}

// Module 是 supervisor 的 Fx 模块
var Module = fx.Module("supervisor",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建监督器
func NewFromParams(p Params) (*Supervisor, error) {
	return New(p.Transport, p.Endpoints, p.Cfg.Retry, p.Cfg.Health, p.Clock)
}
