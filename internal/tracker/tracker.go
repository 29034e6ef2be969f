// Package tracker 实现消息去重跟踪
//
// 跟踪器维护两个各自独立有界的存储：
//   - 去重窗口：按到达顺序排列的近期消息记录，受 MaxAge 和 MaxMessages
//     双重约束，是环路/重复抑制的唯一依据
//   - 审计日志：容量更大的固定上限存储（最旧先淘汰），仅用于统计，
//     永远不参与去重判定
//
// 超出窗口存活期的消息与从未见过的消息不可区分，这是有界内存的取舍。
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

var log = logger.Logger("tracker")

// ============================================================================
//                              消息记录
// ============================================================================

// Record 单条消息记录
//
// 首次见到某个消息标识时创建；被去重窗口淘汰（超龄或超容量）时销毁。
// 审计日志中的副本存活更久，但只服务于统计。
type Record struct {
	// ID 消息标识（链路内不保证全局唯一，按不透明可比较键处理）
	ID uint32

	// SourceLink 来源链路
	SourceLink types.LinkID

	// DestLink 目标链路
	DestLink types.LinkID

	// From 发送方节点标识
	From string

	// To 接收方节点标识
	To string

	// Text 文本内容
	Text string

	// Channel 信道索引
	Channel int

	// Timestamp 到达时间
	Timestamp time.Time

	// Forwarded 是否已转发（至多置真一次）
	Forwarded bool
}

// Stats 跟踪统计
//
// TotalSeen / TotalForwarded 来自审计日志（有界但较大），
// CurrentlyTracked 是去重窗口的当前大小。
type Stats struct {
	TotalSeen        int `json:"total_seen"`
	TotalForwarded   int `json:"total_forwarded"`
	CurrentlyTracked int `json:"currently_tracked"`
}

// ============================================================================
//                              跟踪器
// ============================================================================

// Tracker 消息去重跟踪器
//
// 所有操作互斥（每次调用一个临界区），可安全并发调用。
type Tracker struct {
	mu sync.Mutex

	maxAge      time.Duration
	maxMessages int

	// window 去重窗口，按到达顺序追加，只从头部淘汰
	window []*Record

	// index 窗口内记录的标识索引
	index map[uint32]*Record

	// audit 审计日志，按插入序号淘汰最旧条目
	audit    *lru.Cache[uint64, *Record]
	auditSeq uint64

	clock clock.Clock
}

// New 创建消息去重跟踪器
func New(cfg config.TrackerConfig, clk clock.Clock) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}

	audit, err := lru.New[uint64, *Record](cfg.AuditCapacity)
	if err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	return &Tracker{
		maxAge:      cfg.MaxAge.Duration(),
		maxMessages: cfg.MaxMessages,
		window:      make([]*Record, 0, cfg.MaxMessages),
		index:       make(map[uint32]*Record),
		audit:       audit,
		clock:       clk,
	}, nil
}

// Add 记录一条新消息
//
// 记录同时进入去重窗口和审计日志，随后执行一次淘汰。
// 返回存入的记录。
func (t *Tracker) Add(id uint32, source, dest types.LinkID, from, to, text string, channel int) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := &Record{
		ID:         id,
		SourceLink: source,
		DestLink:   dest,
		From:       from,
		To:         to,
		Text:       text,
		Channel:    channel,
		Timestamp:  t.clock.Now(),
	}

	t.window = append(t.window, rec)
	t.index[id] = rec

	t.auditSeq++
	t.audit.Add(t.auditSeq, rec)

	t.cleanup()

	// 容量淘汰：窗口超限时丢弃最旧条目
	for len(t.window) > t.maxMessages {
		t.evictFront()
	}

	return rec
}

// HasSeen 报告消息标识是否在当前窗口内
//
// 先执行超龄淘汰，再查询。超龄消息与从未见过的消息不可区分。
func (t *Tracker) HasSeen(id uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanup()
	_, ok := t.index[id]
	return ok
}

// MarkForwarded 标记窗口内的消息为已转发
//
// 返回是否找到该记录。幂等：首次之后的调用无进一步效果，但仍返回 true。
func (t *Tracker) MarkForwarded(id uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.index[id]
	if !ok {
		return false
	}
	if !rec.Forwarded {
		rec.Forwarded = true
	}
	return true
}

// Stats 返回跟踪统计
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	forwarded := 0
	for _, rec := range t.audit.Values() {
		if rec.Forwarded {
			forwarded++
		}
	}

	return Stats{
		TotalSeen:        t.audit.Len(),
		TotalForwarded:   forwarded,
		CurrentlyTracked: len(t.window),
	}
}

// Recent 返回窗口内最近的 n 条记录（副本）
func (t *Tracker) Recent(n int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.window) {
		n = len(t.window)
	}

	out := make([]Record, 0, n)
	for _, rec := range t.window[len(t.window)-n:] {
		out = append(out, *rec)
	}
	return out
}

// cleanup 从窗口头部淘汰超龄记录
//
// 窗口按到达顺序追加（时间戳单调不减），因此头部淘汰是
// 合法的过期策略。
func (t *Tracker) cleanup() {
	cutoff := t.clock.Now().Add(-t.maxAge)
	for len(t.window) > 0 && !t.window[0].Timestamp.After(cutoff) {
		t.evictFront()
	}
}

// evictFront 淘汰窗口头部的一条记录
func (t *Tracker) evictFront() {
	rec := t.window[0]
	t.window = t.window[1:]

	// 同一标识可能已被更新的记录覆盖，只删除仍指向本记录的索引
	if cur, ok := t.index[rec.ID]; ok && cur == rec {
		delete(t.index, rec.ID)
	}

	log.Debug("淘汰窗口记录", "id", rec.ID, "age", t.clock.Now().Sub(rec.Timestamp))
}
