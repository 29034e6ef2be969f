// Package supervisor 实现链路连接监督
//
// 监督器独占持有两条链路的连接句柄和运行状态，负责：
//   - 启动阶段带指数退避的连接重试
//   - 周期性存活探测与连续失败计数
//   - 达到阈值后的自动重启/重连升级
//
// 一条链路的重启/重连只阻塞该链路自身的监督路径，完成后原子替换
// 句柄；另一条链路的转发路径不受影响。稳态下任何失败都不会越过
// 本包边界向上抛出。
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/interfaces"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

var log = logger.Logger("supervisor")

// inboxSize 链路收件队列缓冲大小
const inboxSize = 64

// Endpoints 链路端点映射（两条链路都必须出现）
type Endpoints map[types.LinkID]string

// Supervisor 链路连接监督器
type Supervisor struct {
	transport interfaces.Transport
	retry     config.RetryConfig
	health    config.HealthConfig
	clock     clock.Clock

	links map[types.LinkID]*Link

	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建链路连接监督器
func New(transport interfaces.Transport, endpoints Endpoints, retry config.RetryConfig, health config.HealthConfig, clk clock.Clock) (*Supervisor, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if clk == nil {
		clk = clock.New()
	}

	links := make(map[types.LinkID]*Link, 2)
	for _, id := range types.Links() {
		endpoint, ok := endpoints[id]
		if !ok || endpoint == "" {
			return nil, fmt.Errorf("missing endpoint for link %q", id)
		}
		links[id] = newLink(id, endpoint, inboxSize)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		transport: transport,
		retry:     retry,
		health:    health,
		clock:     clk,
		links:     links,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Link 返回指定链路（链路固定存在，未知标识返回 nil）
func (s *Supervisor) Link(id types.LinkID) *Link {
	return s.links[id]
}

// Links 返回全部链路（固定顺序 a, b）
func (s *Supervisor) Links() []*Link {
	out := make([]*Link, 0, len(s.links))
	for _, id := range types.Links() {
		out = append(out, s.links[id])
	}
	return out
}

// Connected 报告两条链路是否都有可用句柄
func (s *Supervisor) Connected() bool {
	for _, l := range s.links {
		if l.Conn() == nil {
			return false
		}
	}
	return true
}

// ============================================================================
//                              启动
// ============================================================================

// Startup 建立两条链路的初始连接
//
// 任一链路耗尽启动重试次数即为致命错误：关闭已连上的链路后原样
// 返回 *ConnectionError，由调用方决定退出。
func (s *Supervisor) Startup(ctx context.Context) error {
	var connected []*Link

	for _, link := range s.Links() {
		log.Info("正在连接链路", "link", link.ID(), "endpoint", link.Endpoint())

		conn, err := s.ConnectWithRetry(ctx, link.Endpoint(), s.retry.StartupMaxAttempts, s.retry.InitialDelay.Duration())
		if err != nil {
			for _, prev := range connected {
				s.closeLink(prev)
			}
			return err
		}

		s.attach(link, conn, StateConnected)
		connected = append(connected, link)
		log.Info("链路连接成功", "link", link.ID(), "node", conn.Info().NodeID)
	}

	return nil
}

// ConnectWithRetry 带指数退避的连接
//
// 第 n 次失败后等待 initialDelay * 2^n（n 从 0 开始）再重试；
// 耗尽 maxAttempts 次后返回携带最后一次底层错误的 *ConnectionError。
func (s *Supervisor) ConnectWithRetry(ctx context.Context, endpoint string, maxAttempts int, initialDelay time.Duration) (interfaces.Conn, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		conn, err := s.transport.Open(ctx, endpoint)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if attempt < maxAttempts-1 {
			delay := initialDelay << attempt
			log.Warn("连接失败，退避后重试",
				"endpoint", endpoint,
				"attempt", attempt+1,
				"max", maxAttempts,
				"delay", delay,
				"err", err)
			if werr := s.wait(ctx, delay); werr != nil {
				return nil, &ConnectionError{Endpoint: endpoint, Attempts: attempt + 1, Err: werr}
			}
		}
	}

	log.Error("连接重试耗尽", "endpoint", endpoint, "attempts", maxAttempts, "err", lastErr)
	return nil, &ConnectionError{Endpoint: endpoint, Attempts: maxAttempts, Err: lastErr}
}

// ============================================================================
//                              健康检查
// ============================================================================

// HealthCheck 对每条链路执行一次存活探测
//
// 探测成功将失败计数清零；探测失败（或句柄缺失）递增计数。
// 计数达到阈值时升级：在独立协程中重启该链路（带重入保护），
// 另一条链路不受影响。
func (s *Supervisor) HealthCheck(ctx context.Context) {
	for _, link := range s.Links() {
		if link.isRebooting() {
			continue
		}

		err := s.probe(ctx, link)
		now := s.clock.Now()

		if err == nil {
			link.probeSuccess(now)
			continue
		}

		n := link.probeFailure(now)
		log.Warn("链路健康探测失败",
			"link", link.ID(),
			"failures", n,
			"threshold", s.health.FailureThreshold,
			"err", err)

		// 升级恰好发生在计数从阈值-1 到阈值的转换上
		if n == s.health.FailureThreshold {
			if !link.beginReboot() {
				continue
			}
			go func(l *Link) {
				s.rebootLocked(s.ctx, l)
			}(link)
		}
	}
}

// probe 对单条链路执行一次探测
func (s *Supervisor) probe(ctx context.Context, link *Link) error {
	conn := link.Conn()
	if conn == nil {
		return ErrNoHandle
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.health.ProbeTimeout.Duration())
	defer cancel()
	return conn.Probe(probeCtx)
}

// ============================================================================
//                              重启升级
// ============================================================================

// RebootLink 重启指定链路并重连
//
// 支持重启能力时：发出重启指令、关闭旧句柄、等待重启静默期后重连；
// 不支持时：直接关闭、较短等待后重连。返回是否恢复出可用句柄；
// 失败只记录日志，链路保持无句柄状态，等待后续健康检查再次升级。
func (s *Supervisor) RebootLink(ctx context.Context, id types.LinkID) bool {
	link, ok := s.links[id]
	if !ok {
		return false
	}
	if !link.beginReboot() {
		return false
	}
	return s.rebootLocked(ctx, link)
}

// rebootLocked 执行重启流程；调用方必须已通过 beginReboot 获得重启权
func (s *Supervisor) rebootLocked(ctx context.Context, link *Link) bool {
	// 无论结果如何，完成时失败计数清零（见 endReboot）
	defer link.endReboot()

	log.Info("正在重启链路", "link", link.ID(), "endpoint", link.Endpoint())

	grace := s.retry.ReconnectGrace.Duration()
	if conn := link.Conn(); conn != nil {
		if rb, ok := conn.(interfaces.Rebooter); ok {
			rebootCtx, cancel := context.WithTimeout(ctx, s.health.ProbeTimeout.Duration())
			if err := rb.Reboot(rebootCtx); err != nil {
				log.Warn("重启指令失败", "link", link.ID(), "err", err)
			} else {
				grace = s.retry.RebootGrace.Duration()
			}
			cancel()
		}
		if err := conn.Close(); err != nil {
			log.Warn("关闭旧句柄失败", "link", link.ID(), "err", err)
		}
		link.setConn(nil, StateRebooting)
	}

	if err := s.wait(ctx, grace); err != nil {
		link.setConn(nil, StateDisconnected)
		return false
	}

	conn, err := s.ConnectWithRetry(ctx, link.Endpoint(), s.retry.RecoveryMaxAttempts, s.retry.InitialDelay.Duration())
	if err != nil {
		log.Error("链路重连失败，等待下一轮健康检查", "link", link.ID(), "err", err)
		link.setConn(nil, StateDisconnected)
		return false
	}

	// 重连后立即探测一次：健康则回到 Connected，否则记为 Degraded(0)
	state := StateConnected
	probeCtx, cancel := context.WithTimeout(ctx, s.health.ProbeTimeout.Duration())
	if perr := conn.Probe(probeCtx); perr != nil {
		log.Warn("重连后的探测未通过", "link", link.ID(), "err", perr)
		state = StateDegraded
	}
	cancel()

	s.attach(link, conn, state)
	log.Info("链路已恢复", "link", link.ID(), "state", state)
	return true
}

// ============================================================================
//                              关闭
// ============================================================================

// Shutdown 关闭两条链路
//
// 单条链路关闭失败只记录日志，不妨碍关闭另一条。
func (s *Supervisor) Shutdown() {
	s.cancel()
	for _, link := range s.Links() {
		s.closeLink(link)
	}
}

// closeLink 关闭单条链路的句柄
func (s *Supervisor) closeLink(link *Link) {
	conn := link.Conn()
	link.setConn(nil, StateDisconnected)
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		log.Warn("关闭链路失败", "link", link.ID(), "err", err)
		return
	}
	log.Info("链路已关闭", "link", link.ID())
}

// ============================================================================
//                              内部辅助
// ============================================================================

// attach 安装新句柄并启动收件泵
func (s *Supervisor) attach(link *Link, conn interfaces.Conn, state State) {
	link.setConn(conn, state)
	go s.pump(link, conn)
}

// pump 将连接的入站消息复制到链路的稳定收件队列
//
// 连接关闭（入站通道关闭）时退出；句柄更换后由 attach 启动新泵。
func (s *Supervisor) pump(link *Link, conn interfaces.Conn) {
	for msg := range conn.Inbound() {
		msg.Link = link.ID()
		select {
		case link.inbox <- msg:
		case <-s.ctx.Done():
			return
		}
	}
}

// wait 可取消的等待
func (s *Supervisor) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := s.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}
