// Package tcpradio 实现基于 TCP 的电台传输
//
// 协议为长度前缀分帧的 JSON 信封：建链后桥发送 hello 帧，电台以
// info 帧应答设备信息；此后入站文本/位置/遥测帧持续推送，ping/pong
// 帧承载存活探测，reboot 帧承载重启指令。
package tcpradio

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/interfaces"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

var log = logger.Logger("tcpradio")

const (
	// dialTimeout 建链超时
	dialTimeout = 10 * time.Second

	// handshakeTimeout 握手应答超时
	handshakeTimeout = 5 * time.Second

	// inboundBuffer 入站缓冲；满时丢弃最新帧
	inboundBuffer = 64
)

// Transport 基于 TCP 的电台传输
type Transport struct{}

var _ interfaces.Transport = (*Transport)(nil)

// New 创建 TCP 电台传输
func New() *Transport {
	return &Transport{}
}

// Open 建立到电台的连接并完成握手
func (t *Transport) Open(ctx context.Context, endpoint string) (interfaces.Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Conn{
		netConn:  netConn,
		endpoint: endpoint,
		inbound:  make(chan types.InboundMessage, inboundBuffer),
		pending:  make(map[uint64]chan struct{}),
	}

	if err := c.handshake(); err != nil {
		netConn.Close()
		return nil, fmt.Errorf("handshake with %s: %w", endpoint, err)
	}

	go c.readLoop()
	log.Info("电台连接就绪", "endpoint", endpoint, "node", c.info.NodeID)
	return c, nil
}

// ============================================================================
//                              连接
// ============================================================================

// Conn 到单台电台的 TCP 连接
type Conn struct {
	netConn  net.Conn
	endpoint string
	info     types.DeviceInfo

	inbound chan types.InboundMessage

	writeMu sync.Mutex
	seq     atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan struct{}
	closed  bool
}

var (
	_ interfaces.Conn     = (*Conn)(nil)
	_ interfaces.Rebooter = (*Conn)(nil)
)

// handshake 发送 hello 并等待 info 应答
func (c *Conn) handshake() error {
	if err := c.writeFrame(&frame{Type: frameHello}); err != nil {
		return err
	}

	if err := c.netConn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return err
	}
	defer c.netConn.SetReadDeadline(time.Time{})

	f, err := readFrame(c.netConn)
	if err != nil {
		return err
	}
	if f.Type != frameInfo || f.Info == nil {
		return fmt.Errorf("unexpected handshake frame %q", f.Type)
	}
	c.info = *f.Info
	return nil
}

// Endpoint 返回电台地址
func (c *Conn) Endpoint() string {
	return c.endpoint
}

// Info 返回握手时取得的设备信息
func (c *Conn) Info() types.DeviceInfo {
	return c.info
}

// Inbound 返回入站消息通道
func (c *Conn) Inbound() <-chan types.InboundMessage {
	return c.inbound
}

// Send 发送一条文本消息（仅写出，不等待电台确认）
func (c *Conn) Send(ctx context.Context, text string, channel int) error {
	return c.writeFrameCtx(ctx, &frame{
		Type:    frameSend,
		Text:    text,
		Channel: channel,
	})
}

// Probe 发送 ping 并等待对应的 pong
func (c *Conn) Probe(ctx context.Context) error {
	seq := c.seq.Add(1)
	ack := make(chan struct{}, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return net.ErrClosed
	}
	c.pending[seq] = ack
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	if err := c.writeFrameCtx(ctx, &frame{Type: framePing, Seq: seq}); err != nil {
		return err
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reboot 发出重启指令
//
// 电台收到后自行断开，本端句柄随后由监督器关闭并更换。
func (c *Conn) Reboot(ctx context.Context) error {
	return c.writeFrameCtx(ctx, &frame{Type: frameReboot})
}

// Close 关闭连接
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.netConn.Close()
}

// writeFrame 串行写出一帧
func (c *Conn) writeFrame(f *frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.netConn, f)
}

// writeFrameCtx 带 ctx 截止时间的写出
func (c *Conn) writeFrameCtx(ctx context.Context, f *frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.netConn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer c.netConn.SetWriteDeadline(time.Time{})
	}
	return writeFrame(c.netConn, f)
}

// readLoop 持续读取入站帧并分发
//
// 连接断开时退出并关闭入站通道，监督器据此结束收件泵。
func (c *Conn) readLoop() {
	defer close(c.inbound)

	for {
		f, err := readFrame(c.netConn)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Warn("电台连接中断", "endpoint", c.endpoint, "err", err)
			}
			return
		}
		c.dispatch(f)
	}
}

// dispatch 分发一帧
func (c *Conn) dispatch(f *frame) {
	switch f.Type {
	case framePong:
		c.mu.Lock()
		ack := c.pending[f.Seq]
		c.mu.Unlock()
		if ack != nil {
			select {
			case ack <- struct{}{}:
			default:
			}
		}

	case frameText, framePos, frameTele:
		msg := types.InboundMessage{
			Kind:    payloadKind(f.Type),
			ID:      f.ID,
			From:    f.From,
			To:      f.To,
			Channel: f.Channel,
			Text:    f.Text,
			RxTime:  time.Now(),
		}
		select {
		case c.inbound <- msg:
		default:
			log.Warn("入站缓冲已满，丢弃消息", "endpoint", c.endpoint, "id", f.ID)
		}

	default:
		log.Debug("忽略未知帧", "endpoint", c.endpoint, "type", f.Type)
	}
}
