package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

// newTestTracker 创建使用模拟时钟的跟踪器
func newTestTracker(t *testing.T, mutate func(*config.TrackerConfig)) (*Tracker, *clock.Mock) {
	t.Helper()

	cfg := config.DefaultTrackerConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mock := clock.NewMock()
	tr, err := New(cfg, mock)
	require.NoError(t, err)
	return tr, mock
}

// addText 以默认元数据添加一条文本记录
func addText(tr *Tracker, id uint32) *Record {
	return tr.Add(id, types.LinkA, types.LinkB, "!node1", "!broadcast", "hello", 0)
}

// TestTracker_HasSeen 测试基本去重
func TestTracker_HasSeen(t *testing.T) {
	tr, _ := newTestTracker(t, nil)

	assert.False(t, tr.HasSeen(42))

	addText(tr, 42)
	assert.True(t, tr.HasSeen(42))
	assert.False(t, tr.HasSeen(43))
}

// TestTracker_MaxAge 测试窗口存活期边界
//
// maxAge=10m：t0 添加 id=42，t0+9m59s 仍可见，
// 清理越过 t0+10m 后不可见。
func TestTracker_MaxAge(t *testing.T) {
	tr, mock := newTestTracker(t, nil)

	addText(tr, 42)

	mock.Add(9*time.Minute + 59*time.Second)
	assert.True(t, tr.HasSeen(42))

	mock.Add(2 * time.Second) // t0+10m1s
	assert.False(t, tr.HasSeen(42))

	// 超龄后与从未见过不可区分：重新添加后重新可见
	addText(tr, 42)
	assert.True(t, tr.HasSeen(42))
}

// TestTracker_MaxMessages 测试容量淘汰
//
// maxMessages=3：依次添加 1,2,3,4（无过期）→ 窗口为 {2,3,4}。
func TestTracker_MaxMessages(t *testing.T) {
	tr, _ := newTestTracker(t, func(c *config.TrackerConfig) {
		c.MaxMessages = 3
		c.AuditCapacity = 10
	})

	for id := uint32(1); id <= 4; id++ {
		addText(tr, id)
	}

	assert.False(t, tr.HasSeen(1))
	assert.True(t, tr.HasSeen(2))
	assert.True(t, tr.HasSeen(3))
	assert.True(t, tr.HasSeen(4))
	assert.Equal(t, 3, tr.Stats().CurrentlyTracked)
}

// TestTracker_WindowNeverExceedsCapacity 测试窗口大小不变式
func TestTracker_WindowNeverExceedsCapacity(t *testing.T) {
	tr, _ := newTestTracker(t, func(c *config.TrackerConfig) {
		c.MaxMessages = 5
		c.AuditCapacity = 100
	})

	for id := uint32(0); id < 50; id++ {
		addText(tr, id)
		assert.LessOrEqual(t, tr.Stats().CurrentlyTracked, 5)
	}
}

// TestTracker_MarkForwarded 测试转发标记的幂等性
func TestTracker_MarkForwarded(t *testing.T) {
	tr, _ := newTestTracker(t, nil)

	// 未知标识
	assert.False(t, tr.MarkForwarded(7))

	addText(tr, 7)

	// 首次标记
	assert.True(t, tr.MarkForwarded(7))
	assert.Equal(t, 1, tr.Stats().TotalForwarded)

	// 重复标记：无进一步效果，仍返回 true
	assert.True(t, tr.MarkForwarded(7))
	assert.Equal(t, 1, tr.Stats().TotalForwarded)
}

// TestTracker_MarkForwarded_Evicted 测试窗口淘汰后无法标记
func TestTracker_MarkForwarded_Evicted(t *testing.T) {
	tr, mock := newTestTracker(t, nil)

	addText(tr, 9)
	mock.Add(11 * time.Minute)
	tr.HasSeen(0) // 触发清理

	assert.False(t, tr.MarkForwarded(9))
}

// TestTracker_Stats 测试统计口径
func TestTracker_Stats(t *testing.T) {
	tr, mock := newTestTracker(t, nil)

	for id := uint32(1); id <= 3; id++ {
		addText(tr, id)
	}
	tr.MarkForwarded(1)
	tr.MarkForwarded(2)

	stats := tr.Stats()
	assert.Equal(t, 3, stats.TotalSeen)
	assert.Equal(t, 2, stats.TotalForwarded)
	assert.Equal(t, 3, stats.CurrentlyTracked)

	// 窗口过期不影响审计统计
	mock.Add(11 * time.Minute)
	tr.HasSeen(0)

	stats = tr.Stats()
	assert.Equal(t, 3, stats.TotalSeen)
	assert.Equal(t, 2, stats.TotalForwarded)
	assert.Equal(t, 0, stats.CurrentlyTracked)
}

// TestTracker_AuditIndependentBound 测试审计日志独立有界
func TestTracker_AuditIndependentBound(t *testing.T) {
	tr, _ := newTestTracker(t, func(c *config.TrackerConfig) {
		c.MaxMessages = 2
		c.AuditCapacity = 4
	})

	for id := uint32(1); id <= 10; id++ {
		addText(tr, id)
	}

	stats := tr.Stats()
	// 审计日志淘汰最旧条目，容量独立于窗口
	assert.Equal(t, 4, stats.TotalSeen)
	assert.Equal(t, 2, stats.CurrentlyTracked)
}

// TestTracker_Recent 测试最近消息视图
func TestTracker_Recent(t *testing.T) {
	tr, _ := newTestTracker(t, nil)

	for id := uint32(1); id <= 5; id++ {
		addText(tr, id)
	}

	recent := tr.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, uint32(3), recent[0].ID)
	assert.Equal(t, uint32(5), recent[2].ID)

	// n 超过窗口大小时返回全部
	assert.Len(t, tr.Recent(100), 5)
}

// TestTracker_Concurrent 测试并发安全
func TestTracker_Concurrent(t *testing.T) {
	tr, _ := newTestTracker(t, func(c *config.TrackerConfig) {
		c.MaxMessages = 64
		c.AuditCapacity = 256
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base uint32) {
			defer wg.Done()
			for i := uint32(0); i < 100; i++ {
				id := base*1000 + i
				if !tr.HasSeen(id) {
					addText(tr, id)
					tr.MarkForwarded(id)
				}
			}
		}(uint32(g))
	}
	wg.Wait()

	assert.LessOrEqual(t, tr.Stats().CurrentlyTracked, 64)
}
