// Package status 实现运行状态报告
//
// 报告器按固定间隔汇总转发计数、链路状态和去重统计，组装成不可变
// 的状态报告交给外部接收器（默认是原子写入的 JSON 状态文件）。
// 接收器失败只记录日志，绝不中断控制循环。
package status

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-meshbridge/internal/supervisor"
	"github.com/dep2p/go-meshbridge/internal/tracker"
	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

var log = logger.Logger("status")

// ============================================================================
//                              状态报告
// ============================================================================

// Stats 两条链路的收发计数与去重统计
type Stats struct {
	A       supervisor.Counters `json:"a"`
	B       supervisor.Counters `json:"b"`
	Tracker tracker.Stats       `json:"tracker"`
}

// Report 一次状态快照
//
// 字段与状态文件的 JSON 结构一一对应。
type Report struct {
	Running         bool              `json:"running"`
	RadiosConnected bool              `json:"radios_connected"`
	UptimeSeconds   float64           `json:"uptime_seconds"`
	Stats           Stats             `json:"stats"`
	Timestamp       int64             `json:"timestamp"`
	Ports           map[string]string `json:"ports"`
	HealthFailures  map[string]int    `json:"health_failures"`
}

// Sink 状态报告接收器
type Sink interface {
	// Publish 投递一份报告
	Publish(report Report) error
}

// ============================================================================
//                              报告器
// ============================================================================

// Reporter 状态报告器
type Reporter struct {
	sup   *supervisor.Supervisor
	trk   *tracker.Tracker
	sink  Sink
	clock clock.Clock

	start   time.Time
	running atomic.Bool
}

// NewReporter 创建状态报告器
func NewReporter(sup *supervisor.Supervisor, trk *tracker.Tracker, sink Sink, clk clock.Clock) *Reporter {
	if clk == nil {
		clk = clock.New()
	}
	return &Reporter{
		sup:   sup,
		trk:   trk,
		sink:  sink,
		clock: clk,
		start: clk.Now(),
	}
}

// SetRunning 设置运行标志（由控制循环在启动/停止时调用）
func (r *Reporter) SetRunning(running bool) {
	r.running.Store(running)
}

// Snapshot 组装一次状态快照
func (r *Reporter) Snapshot() Report {
	now := r.clock.Now()
	linkA := r.sup.Link(types.LinkA)
	linkB := r.sup.Link(types.LinkB)

	return Report{
		Running:         r.running.Load(),
		RadiosConnected: r.sup.Connected(),
		UptimeSeconds:   now.Sub(r.start).Seconds(),
		Stats: Stats{
			A:       linkA.Counters(),
			B:       linkB.Counters(),
			Tracker: r.trk.Stats(),
		},
		Timestamp: now.Unix(),
		Ports: map[string]string{
			string(types.LinkA): linkA.Endpoint(),
			string(types.LinkB): linkB.Endpoint(),
		},
		HealthFailures: map[string]int{
			string(types.LinkA): linkA.FailCount(),
			string(types.LinkB): linkB.FailCount(),
		},
	}
}

// Publish 将报告交给接收器（失败记录日志，不上抛）
func (r *Reporter) Publish(report Report) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Publish(report); err != nil {
		log.Warn("状态报告发布失败", "err", err)
	}
}

// Emit 快照并发布
func (r *Reporter) Emit() {
	r.Publish(r.Snapshot())
}
