// Package memnet 提供内存传输实现
//
// 用于测试：Hub 管理若干虚拟电台，电台的连接失败、探测失败、
// 发送失败和重启行为都可以按需脚本化。不涉及任何真实 IO。
package memnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/dep2p/go-meshbridge/pkg/interfaces"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

// inboundBuffer 虚拟连接的入站缓冲
const inboundBuffer = 16

// ============================================================================
//                              Hub
// ============================================================================

// Hub 虚拟电台集线器
type Hub struct {
	mu     sync.Mutex
	radios map[string]*Radio
}

// NewHub 创建集线器
func NewHub() *Hub {
	return &Hub{radios: make(map[string]*Radio)}
}

// AddRadio 注册一台虚拟电台
func (h *Hub) AddRadio(endpoint string) *Radio {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := &Radio{
		endpoint: endpoint,
		info:     types.DeviceInfo{NodeID: "!" + endpoint, HWModel: "memnet", NumChannels: 8},
	}
	h.radios[endpoint] = r
	return r
}

// Radio 查找虚拟电台
func (h *Hub) Radio(endpoint string) *Radio {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.radios[endpoint]
}

// Transport 返回指向本集线器的传输实现
func (h *Hub) Transport() interfaces.Transport {
	return &transport{hub: h}
}

// transport 实现 interfaces.Transport
type transport struct {
	hub *Hub
}

// Open 建立到虚拟电台的连接
func (t *transport) Open(_ context.Context, endpoint string) (interfaces.Conn, error) {
	t.hub.mu.Lock()
	radio, ok := t.hub.radios[endpoint]
	t.hub.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memnet: no radio at %q", endpoint)
	}
	return radio.open()
}

// ============================================================================
//                              Radio
// ============================================================================

// SentMessage 电台捕获的一次发送
type SentMessage struct {
	Text    string
	Channel int
}

// Radio 虚拟电台
//
// 零值行为：连接成功、探测成功、发送成功、不支持重启。
type Radio struct {
	endpoint string

	mu           sync.Mutex
	info         types.DeviceInfo
	failConnects int
	probeErr     error
	sendErr      error
	rebootable   bool
	rebootErr    error
	rebootCount  int
	openCount    int
	sent         []SentMessage
	conn         *conn
}

// SetInfo 设置设备信息
func (r *Radio) SetInfo(info types.DeviceInfo) {
	r.mu.Lock()
	r.info = info
	r.mu.Unlock()
}

// FailNextConnects 令接下来的 n 次连接失败
func (r *Radio) FailNextConnects(n int) {
	r.mu.Lock()
	r.failConnects = n
	r.mu.Unlock()
}

// SetProbeErr 设置探测结果（nil 表示成功）
func (r *Radio) SetProbeErr(err error) {
	r.mu.Lock()
	r.probeErr = err
	r.mu.Unlock()
}

// SetSendErr 设置发送结果（nil 表示成功）
func (r *Radio) SetSendErr(err error) {
	r.mu.Lock()
	r.sendErr = err
	r.mu.Unlock()
}

// SetRebootable 设置是否支持重启能力
func (r *Radio) SetRebootable(rebootable bool) {
	r.mu.Lock()
	r.rebootable = rebootable
	r.mu.Unlock()
}

// SetRebootErr 设置重启指令的结果
func (r *Radio) SetRebootErr(err error) {
	r.mu.Lock()
	r.rebootErr = err
	r.mu.Unlock()
}

// RebootCount 返回收到的重启指令次数
func (r *Radio) RebootCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebootCount
}

// OpenCount 返回成功建立的连接次数
func (r *Radio) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openCount
}

// Sent 返回捕获的发送记录
func (r *Radio) Sent() []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SentMessage, len(r.sent))
	copy(out, r.sent)
	return out
}

// Inject 向当前连接注入一条入站消息
//
// 没有活动连接时静默丢弃（模拟设备离线时的流量）。
func (r *Radio) Inject(msg types.InboundMessage) {
	r.mu.Lock()
	c := r.conn
	r.mu.Unlock()
	if c != nil {
		c.inject(msg)
	}
}

// open 建立一条新连接
func (r *Radio) open() (interfaces.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failConnects > 0 {
		r.failConnects--
		return nil, fmt.Errorf("memnet: connect refused by %q", r.endpoint)
	}

	c := &conn{
		radio:   r,
		inbound: make(chan types.InboundMessage, inboundBuffer),
	}
	r.conn = c
	r.openCount++

	if r.rebootable {
		return &rebootableConn{conn: c}, nil
	}
	return c, nil
}

// ============================================================================
//                              连接
// ============================================================================

// conn 虚拟连接
type conn struct {
	radio *Radio

	mu      sync.Mutex
	closed  bool
	inbound chan types.InboundMessage
}

var _ interfaces.Conn = (*conn)(nil)

// Endpoint 返回端点标识
func (c *conn) Endpoint() string {
	return c.radio.endpoint
}

// Send 捕获一次发送
func (c *conn) Send(_ context.Context, text string, channel int) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("memnet: conn closed")
	}

	c.radio.mu.Lock()
	defer c.radio.mu.Unlock()
	if c.radio.sendErr != nil {
		return c.radio.sendErr
	}
	c.radio.sent = append(c.radio.sent, SentMessage{Text: text, Channel: channel})
	return nil
}

// Probe 执行脚本化探测
func (c *conn) Probe(_ context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("memnet: conn closed")
	}

	c.radio.mu.Lock()
	defer c.radio.mu.Unlock()
	return c.radio.probeErr
}

// Inbound 返回入站通道
func (c *conn) Inbound() <-chan types.InboundMessage {
	return c.inbound
}

// Info 返回设备信息
func (c *conn) Info() types.DeviceInfo {
	c.radio.mu.Lock()
	defer c.radio.mu.Unlock()
	return c.radio.info
}

// Close 关闭连接并关闭入站通道
func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.inbound)
	c.mu.Unlock()

	c.radio.mu.Lock()
	if c.radio.conn == c {
		c.radio.conn = nil
	}
	c.radio.mu.Unlock()
	return nil
}

// inject 投递一条入站消息（连接已关闭时丢弃）
func (c *conn) inject(msg types.InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.inbound <- msg:
	default:
	}
}

// rebootableConn 带重启能力的虚拟连接
type rebootableConn struct {
	*conn
}

var _ interfaces.Rebooter = (*rebootableConn)(nil)

// Reboot 记录一次重启指令
func (c *rebootableConn) Reboot(_ context.Context) error {
	c.radio.mu.Lock()
	defer c.radio.mu.Unlock()
	c.radio.rebootCount++
	return c.radio.rebootErr
}
