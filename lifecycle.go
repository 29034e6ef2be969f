package meshbridge

import (
	"context"
)

// run 单一周期控制循环
//
// 以固定节拍驱动两类周期动作：每 HealthEveryTicks 拍做一轮健康
// 检查，每 StatusEveryTicks 拍发布一次状态报告。两类动作都不会
// 阻塞节拍本身：健康检查的升级在链路自身的协程中进行，状态发布
// 失败只记录日志。
func (b *Bridge) run(ctx context.Context) {
	cfg := b.cfg.Status
	ticker := b.clock.Ticker(cfg.TickInterval.Duration())
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			if tick%uint64(cfg.HealthEveryTicks) == 0 {
				b.sup.HealthCheck(ctx)
			}
			if tick%uint64(cfg.StatusEveryTicks) == 0 {
				b.reporter.Emit()
			}
		}
	}
}
