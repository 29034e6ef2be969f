package supervisor

import (
	"sync"
	"time"

	"github.com/dep2p/go-meshbridge/pkg/interfaces"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

// ============================================================================
//                              链路状态机
// ============================================================================

// State 链路状态
//
// 状态机：Connected –探测失败→ Degraded(n) –n==阈值→ Rebooting
// –重启结果（成败皆是）→ Connected 或 Degraded(0)。
// 任意 Degraded(n) 上的探测成功回到 Connected 并清零计数。
// 进程运行期间不存在永久性终态，升级会无限重试。
type State int32

const (
	// StateDisconnected 无可用句柄
	StateDisconnected State = iota

	// StateConnected 连接正常
	StateConnected

	// StateDegraded 探测失败累积中
	StateDegraded

	// StateRebooting 重启/重连进行中
	StateRebooting
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateRebooting:
		return "rebooting"
	default:
		return "disconnected"
	}
}

// ============================================================================
//                              链路
// ============================================================================

// Counters 链路收发计数
type Counters struct {
	Received uint64 `json:"received"`
	Sent     uint64 `json:"sent"`
	Errors   uint64 `json:"errors"`
}

// Link 单条链路的运行状态
//
// 由 Supervisor 独占持有；Relay 通过 Conn() 借用当前句柄发送，
// 通过 Inbox() 消费稳定收件队列。句柄更换不影响收件队列。
type Link struct {
	id       types.LinkID
	endpoint string

	mu        sync.Mutex
	conn      interfaces.Conn // nil 表示句柄缺失
	state     State
	failCount int
	lastProbe time.Time
	rebooting bool
	counters  Counters

	// inbox 稳定收件队列，泵协程将当前句柄的入站消息复制到这里
	inbox chan types.InboundMessage
}

// newLink 创建链路
func newLink(id types.LinkID, endpoint string, inboxSize int) *Link {
	return &Link{
		id:       id,
		endpoint: endpoint,
		state:    StateDisconnected,
		inbox:    make(chan types.InboundMessage, inboxSize),
	}
}

// ID 返回链路标识
func (l *Link) ID() types.LinkID {
	return l.id
}

// Endpoint 返回链路端点
func (l *Link) Endpoint() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endpoint
}

// Conn 返回当前连接句柄（可能为 nil）
func (l *Link) Conn() interfaces.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

// State 返回当前状态
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// FailCount 返回连续探测失败计数
func (l *Link) FailCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failCount
}

// LastProbe 返回最近一次探测时间
func (l *Link) LastProbe() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastProbe
}

// Inbox 返回稳定收件队列
func (l *Link) Inbox() <-chan types.InboundMessage {
	return l.inbox
}

// Counters 返回收发计数快照
func (l *Link) Counters() Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters
}

// IncReceived 递增接收计数
func (l *Link) IncReceived() {
	l.mu.Lock()
	l.counters.Received++
	l.mu.Unlock()
}

// IncSent 递增发送计数
func (l *Link) IncSent() {
	l.mu.Lock()
	l.counters.Sent++
	l.mu.Unlock()
}

// IncErrors 递增错误计数
func (l *Link) IncErrors() {
	l.mu.Lock()
	l.counters.Errors++
	l.mu.Unlock()
}

// ============================================================================
//                              内部状态转换
// ============================================================================

// setConn 替换连接句柄（原子替换，nil 表示清除）
func (l *Link) setConn(conn interfaces.Conn, state State) {
	l.mu.Lock()
	l.conn = conn
	l.state = state
	l.mu.Unlock()
}

// probeSuccess 记录探测成功：计数清零，回到 Connected
func (l *Link) probeSuccess(now time.Time) {
	l.mu.Lock()
	l.failCount = 0
	l.lastProbe = now
	l.state = StateConnected
	l.mu.Unlock()
}

// probeFailure 记录探测失败，返回新的失败计数
func (l *Link) probeFailure(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failCount++
	l.lastProbe = now
	if l.state == StateConnected {
		l.state = StateDegraded
	}
	return l.failCount
}

// beginReboot 进入重启状态；已有重启在进行时返回 false
func (l *Link) beginReboot() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rebooting {
		return false
	}
	l.rebooting = true
	l.state = StateRebooting
	return true
}

// endReboot 结束重启：无论结果如何，失败计数立即清零，
// 这样升级只会在再次累积到阈值后重试（限制重启风暴）。
func (l *Link) endReboot() {
	l.mu.Lock()
	l.rebooting = false
	l.failCount = 0
	if l.conn == nil {
		l.state = StateDisconnected
	}
	l.mu.Unlock()
}

// isRebooting 报告是否有重启在进行
func (l *Link) isRebooting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rebooting
}
