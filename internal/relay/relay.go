// Package relay 实现两条链路之间的消息转发
//
// 转发契约为至多一次、尽力而为：去重判定通过后恰好尝试一次发送，
// 失败不重试、不排队，只递增目标链路的错误计数。副作用仅限于
// 去重窗口/审计日志和每链路计数器。
package relay

import (
	"context"
	"time"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/supervisor"
	"github.com/dep2p/go-meshbridge/internal/tracker"
	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

var log = logger.Logger("relay")

// Relay 消息转发器
type Relay struct {
	tracker     *tracker.Tracker
	sup         *supervisor.Supervisor
	sendTimeout time.Duration
}

// New 创建消息转发器
func New(trk *tracker.Tracker, sup *supervisor.Supervisor, health config.HealthConfig) *Relay {
	return &Relay{
		tracker:     trk,
		sup:         sup,
		sendTimeout: health.SendTimeout.Duration(),
	}
}

// Run 消费单条链路的收件队列并逐条转发
//
// 每条链路一个分发循环；ctx 取消或收件队列耗尽时退出。
func (r *Relay) Run(ctx context.Context, id types.LinkID) {
	link := r.sup.Link(id)
	log.Debug("转发分发循环启动", "link", id)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-link.Inbox():
			if !ok {
				return
			}
			r.OnInbound(ctx, msg)
		}
	}
}

// OnInbound 处理一条入站消息
//
// 非文本载荷静默丢弃；已见过的标识丢弃（环路/重复抑制）；
// 其余记录、递增源链路接收计数并向对端链路转发一次。
func (r *Relay) OnInbound(ctx context.Context, msg types.InboundMessage) {
	if msg.Kind != types.PayloadText || msg.Text == "" {
		log.Debug("忽略非文本载荷", "link", msg.Link, "kind", msg.Kind)
		return
	}

	src := r.sup.Link(msg.Link)
	dst := r.sup.Link(msg.Link.Other())
	if src == nil || dst == nil {
		return
	}

	if r.tracker.HasSeen(msg.ID) {
		log.Debug("丢弃重复消息", "link", msg.Link, "id", msg.ID)
		return
	}

	r.tracker.Add(msg.ID, msg.Link, msg.Link.Other(), msg.From, msg.To, msg.Text, msg.Channel)
	src.IncReceived()

	if err := r.send(ctx, dst, msg.Text, msg.Channel); err != nil {
		dst.IncErrors()
		log.Warn("消息转发失败",
			"from", msg.Link,
			"to", dst.ID(),
			"id", msg.ID,
			"err", err)
		return
	}

	r.tracker.MarkForwarded(msg.ID)
	dst.IncSent()
	log.Info("消息已转发",
		"from", msg.Link,
		"to", dst.ID(),
		"id", msg.ID,
		"channel", msg.Channel)
}

// SendDirect 绕过去重簿记的直接发送
//
// 供操作者主动发消息使用，不触碰任何计数器。
func (r *Relay) SendDirect(ctx context.Context, id types.LinkID, text string, channel int) bool {
	link := r.sup.Link(id)
	if link == nil {
		return false
	}
	if err := r.send(ctx, link, text, channel); err != nil {
		log.Warn("直接发送失败", "link", id, "err", err)
		return false
	}
	return true
}

// send 借用链路当前句柄发送一次
func (r *Relay) send(ctx context.Context, link *supervisor.Link, text string, channel int) error {
	conn := link.Conn()
	if conn == nil {
		return supervisor.ErrNoHandle
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return conn.Send(sendCtx, text, channel)
}
