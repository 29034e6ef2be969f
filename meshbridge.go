package meshbridge

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/relay"
	"github.com/dep2p/go-meshbridge/internal/status"
	"github.com/dep2p/go-meshbridge/internal/supervisor"
	"github.com/dep2p/go-meshbridge/internal/tracker"
	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

var log = logger.Logger("meshbridge")

// Bridge 文本消息桥接器
//
// 持有全部核心组件并驱动单一的周期控制循环。并发模型：
// 每条链路一个转发分发协程，控制循环协程驱动健康检查与状态
// 上报，监督器的重启升级在各自链路的独立协程中完成。
type Bridge struct {
	cfg *config.Config
	app *fx.App

	tracker  *tracker.Tracker
	sup      *supervisor.Supervisor
	relay    *relay.Relay
	reporter *status.Reporter

	clock clock.Clock

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New 创建桥接器
//
// 未显式给出端点时，通过发现服务自动选取两台可用电台；
// 发现或装配失败直接返回错误，不会留下半初始化的实例。
func New(opts ...Option) (*Bridge, error) {
	o := defaultOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	b := &Bridge{
		cfg:   o.cfg,
		clock: o.clock,
	}
	b.app = b.buildFxApp(o)

	// 立即装配依赖图，端点解析（含自动发现）在此完成
	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := b.app.Start(startCtx); err != nil {
		return nil, err
	}

	return b, nil
}

// Start 建立两条链路并启动控制循环
//
// 任一链路在启动重试内连不上即返回错误；成功后桥接器进入
// 运行态，开始转发与周期健康检查。
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.started {
		return ErrAlreadyStarted
	}

	if err := b.sup.Startup(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.started = true

	// 每条链路一个转发分发循环
	for _, id := range types.Links() {
		b.wg.Add(1)
		go func(id types.LinkID) {
			defer b.wg.Done()
			b.relay.Run(loopCtx, id)
		}(id)
	}

	// 单一控制循环：驱动健康检查与状态上报
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run(loopCtx)
	}()

	b.reporter.SetRunning(true)
	b.reporter.Emit()
	log.Info("桥接器已启动",
		"endpoint_a", b.sup.Link(types.LinkA).Endpoint(),
		"endpoint_b", b.sup.Link(types.LinkB).Endpoint())
	return nil
}

// Close 停止控制循环并关闭两条链路（幂等）
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	b.started = false
	cancel := b.cancel
	b.mu.Unlock()

	if started {
		b.reporter.SetRunning(false)
		cancel()
		b.wg.Wait()
		// 落盘最终状态（running=false）
		b.reporter.Emit()
	}

	b.sup.Shutdown()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer stopCancel()
	if err := b.app.Stop(stopCtx); err != nil {
		log.Warn("停止 Fx 应用失败", "err", err)
	}

	log.Info("桥接器已关闭")
	return nil
}

// Running 报告桥接器是否处于运行态
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started && !b.closed
}

// SendText 通过指定链路直接发送一条文本消息
//
// 绕过去重簿记，供操作者使用；返回发送是否成功。
func (b *Bridge) SendText(ctx context.Context, id types.LinkID, text string, channel int) bool {
	if !b.Running() {
		return false
	}
	return b.relay.SendDirect(ctx, id, text, channel)
}

// Status 返回当前状态快照
func (b *Bridge) Status() status.Report {
	return b.reporter.Snapshot()
}

// Stats 返回去重与转发统计
func (b *Bridge) Stats() tracker.Stats {
	return b.tracker.Stats()
}

// Recent 返回窗口内最近的 n 条消息记录
func (b *Bridge) Recent(n int) []tracker.Record {
	return b.tracker.Recent(n)
}

// Endpoint 返回指定链路的端点
func (b *Bridge) Endpoint(id types.LinkID) string {
	link := b.sup.Link(id)
	if link == nil {
		return ""
	}
	return link.Endpoint()
}

// NodeInfo 返回指定链路当前连接的设备信息
//
// 链路暂无句柄时返回零值。
func (b *Bridge) NodeInfo(id types.LinkID) types.DeviceInfo {
	link := b.sup.Link(id)
	if link == nil {
		return types.DeviceInfo{}
	}
	conn := link.Conn()
	if conn == nil {
		return types.DeviceInfo{}
	}
	return conn.Info()
}
