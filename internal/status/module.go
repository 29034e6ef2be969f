package status

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-meshbridge/internal/supervisor"
	"github.com/dep2p/go-meshbridge/internal/tracker"
)

// Params 报告器依赖参数
//
// Sink 由应用装配层提供：默认是指向状态文件的 FileSink，
// 测试可注入内存接收器。
type Params struct {
	fx.In

	Supervisor *supervisor.Supervisor
	Tracker    *tracker.Tracker
	Sink       Sink
	Clock      clock.Clock `optional:"true"`
}

// Module 是 status 的 Fx 模块
var Module = fx.Module("status",
	fx.Provide(NewReporterFromParams),
)

// NewReporterFromParams 从参数创建报告器
func NewReporterFromParams(p Params) *Reporter {
	return NewReporter(p.Supervisor, p.Tracker, p.Sink, p.Clock)
}
