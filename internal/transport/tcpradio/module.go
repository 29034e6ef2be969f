package tcpradio

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-meshbridge/pkg/interfaces"
)

// Module 是 tcpradio 的 Fx 模块
var Module = fx.Module("tcpradio",
	fx.Provide(
		fx.Annotate(
			New,
			fx.As(new(interfaces.Transport)),
		),
	),
)
