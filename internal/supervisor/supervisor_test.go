package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-meshbridge/config"
	"github.com/dep2p/go-meshbridge/internal/transport/memnet"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

// newTestSupervisor 创建使用内存传输和毫秒级配置的监督器
func newTestSupervisor(t *testing.T) (*Supervisor, *memnet.Hub) {
	t.Helper()

	hub := memnet.NewHub()
	hub.AddRadio("mem-a")
	hub.AddRadio("mem-b")

	retry := config.RetryConfig{
		StartupMaxAttempts:  3,
		RecoveryMaxAttempts: 2,
		InitialDelay:        config.Duration(2 * time.Millisecond),
		RebootGrace:         config.Duration(2 * time.Millisecond),
		ReconnectGrace:      config.Duration(1 * time.Millisecond),
	}
	health := config.HealthConfig{
		FailureThreshold: 3,
		ProbeTimeout:     config.Duration(100 * time.Millisecond),
		SendTimeout:      config.Duration(100 * time.Millisecond),
	}

	sup, err := New(hub.Transport(), Endpoints{
		types.LinkA: "mem-a",
		types.LinkB: "mem-b",
	}, retry, health, nil)
	require.NoError(t, err)

	t.Cleanup(sup.Shutdown)
	return sup, hub
}

// TestNew_MissingEndpoint 测试缺失端点
func TestNew_MissingEndpoint(t *testing.T) {
	hub := memnet.NewHub()
	_, err := New(hub.Transport(), Endpoints{types.LinkA: "mem-a"},
		config.DefaultRetryConfig(), config.DefaultHealthConfig(), nil)
	assert.Error(t, err)
}

// TestConnectWithRetry_FirstAttempt 测试首次连接成功
func TestConnectWithRetry_FirstAttempt(t *testing.T) {
	sup, hub := newTestSupervisor(t)

	conn, err := sup.ConnectWithRetry(context.Background(), "mem-a", 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "mem-a", conn.Endpoint())
	assert.Equal(t, 1, hub.Radio("mem-a").OpenCount())
}

// TestConnectWithRetry_EventualSuccess 测试退避后成功
func TestConnectWithRetry_EventualSuccess(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	hub.Radio("mem-a").FailNextConnects(2)

	start := time.Now()
	conn, err := sup.ConnectWithRetry(context.Background(), "mem-a", 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.NotNil(t, conn)

	// 两次失败后的退避：10ms + 20ms
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

// TestConnectWithRetry_Exhausted 测试重试耗尽
func TestConnectWithRetry_Exhausted(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	hub.Radio("mem-a").FailNextConnects(10)

	_, err := sup.ConnectWithRetry(context.Background(), "mem-a", 3, time.Millisecond)
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "mem-a", connErr.Endpoint)
	assert.Equal(t, 3, connErr.Attempts)
	assert.NotNil(t, errors.Unwrap(connErr))
}

// TestStartup 测试两条链路的初始连接
func TestStartup(t *testing.T) {
	sup, _ := newTestSupervisor(t)

	require.NoError(t, sup.Startup(context.Background()))
	assert.True(t, sup.Connected())
	assert.Equal(t, StateConnected, sup.Link(types.LinkA).State())
	assert.Equal(t, StateConnected, sup.Link(types.LinkB).State())
}

// TestStartup_SecondLinkFatal 测试第二条链路失败时关闭第一条
func TestStartup_SecondLinkFatal(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	hub.Radio("mem-b").FailNextConnects(10)

	err := sup.Startup(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)

	// 已连上的链路 A 被关闭
	assert.Nil(t, sup.Link(types.LinkA).Conn())
	assert.False(t, sup.Connected())
}

// TestHealthCheck_SuccessResetsFailures 测试探测成功清零计数
func TestHealthCheck_SuccessResetsFailures(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	radio := hub.Radio("mem-a")
	link := sup.Link(types.LinkA)

	radio.SetProbeErr(errors.New("radio silent"))
	sup.HealthCheck(context.Background())
	sup.HealthCheck(context.Background())
	assert.Equal(t, 2, link.FailCount())
	assert.Equal(t, StateDegraded, link.State())

	radio.SetProbeErr(nil)
	sup.HealthCheck(context.Background())
	assert.Equal(t, 0, link.FailCount())
	assert.Equal(t, StateConnected, link.State())

	// 链路 B 全程不受影响
	assert.Equal(t, 0, sup.Link(types.LinkB).FailCount())
	assert.Equal(t, StateConnected, sup.Link(types.LinkB).State())
}

// TestHealthCheck_EscalatesAtThreshold 测试恰好在阈值处升级
//
// 连续 3 次探测失败（阈值 3）→ 恰好一次重启尝试，完成后计数为 0。
func TestHealthCheck_EscalatesAtThreshold(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	radio := hub.Radio("mem-a")
	radio.SetRebootable(true)
	radio.SetProbeErr(errors.New("radio silent"))
	link := sup.Link(types.LinkA)

	// 前两次失败不触发升级
	sup.HealthCheck(context.Background())
	sup.HealthCheck(context.Background())
	assert.Equal(t, 0, radio.RebootCount())
	assert.Equal(t, 2, link.FailCount())

	// 第三次失败触发升级
	sup.HealthCheck(context.Background())
	require.Eventually(t, func() bool {
		return radio.RebootCount() == 1 && !link.isRebooting()
	}, time.Second, time.Millisecond)

	// 重启尝试完成后计数立即清零
	assert.Equal(t, 0, link.FailCount())

	// 探测仍失败：重连后的初始探测未通过 → Degraded(0)
	assert.Equal(t, StateDegraded, link.State())

	// 再累积一轮阈值才会再次升级
	sup.HealthCheck(context.Background())
	sup.HealthCheck(context.Background())
	assert.Equal(t, 1, radio.RebootCount())
	sup.HealthCheck(context.Background())
	require.Eventually(t, func() bool {
		return radio.RebootCount() == 2 && !link.isRebooting()
	}, time.Second, time.Millisecond)
}

// TestHealthCheck_AbsentHandle 测试句柄缺失按失败计数
func TestHealthCheck_AbsentHandle(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	link := sup.Link(types.LinkA)
	link.setConn(nil, StateDisconnected)

	sup.HealthCheck(context.Background())
	assert.Equal(t, 1, link.FailCount())
}

// TestRebootLink_Rebootable 测试带重启能力的恢复
func TestRebootLink_Rebootable(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	radio := hub.Radio("mem-a")
	radio.SetRebootable(true)

	ok := sup.RebootLink(context.Background(), types.LinkA)
	assert.True(t, ok)
	assert.Equal(t, 1, radio.RebootCount())
	assert.Equal(t, 2, radio.OpenCount())
	assert.Equal(t, StateConnected, sup.Link(types.LinkA).State())
	assert.Equal(t, 0, sup.Link(types.LinkA).FailCount())
}

// TestRebootLink_Unsupported 测试无重启能力时直接关闭重连
func TestRebootLink_Unsupported(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	radio := hub.Radio("mem-a")

	ok := sup.RebootLink(context.Background(), types.LinkA)
	assert.True(t, ok)
	assert.Equal(t, 0, radio.RebootCount())
	assert.Equal(t, 2, radio.OpenCount())
	assert.Equal(t, StateConnected, sup.Link(types.LinkA).State())
}

// TestRebootLink_RebootCommandFails 测试重启指令失败仍继续重连
func TestRebootLink_RebootCommandFails(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	radio := hub.Radio("mem-a")
	radio.SetRebootable(true)
	radio.SetRebootErr(errors.New("device busy"))

	ok := sup.RebootLink(context.Background(), types.LinkA)
	assert.True(t, ok)
	assert.Equal(t, 2, radio.OpenCount())
	assert.Equal(t, 0, sup.Link(types.LinkA).FailCount())
}

// TestRebootLink_ReconnectFails 测试重连失败后保持无句柄
func TestRebootLink_ReconnectFails(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	radio := hub.Radio("mem-a")
	radio.FailNextConnects(10)

	ok := sup.RebootLink(context.Background(), types.LinkA)
	assert.False(t, ok)
	assert.Nil(t, sup.Link(types.LinkA).Conn())
	assert.Equal(t, StateDisconnected, sup.Link(types.LinkA).State())

	// 失败的重启尝试同样清零计数
	assert.Equal(t, 0, sup.Link(types.LinkA).FailCount())

	// 另一条链路不受影响
	assert.NotNil(t, sup.Link(types.LinkB).Conn())
}

// TestInbox_SurvivesReboot 测试收件队列跨句柄更换保持稳定
func TestInbox_SurvivesReboot(t *testing.T) {
	sup, hub := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	radio := hub.Radio("mem-a")
	link := sup.Link(types.LinkA)

	radio.Inject(types.InboundMessage{Link: types.LinkA, Kind: types.PayloadText, ID: 1, Text: "before"})
	msg := <-link.Inbox()
	assert.Equal(t, "before", msg.Text)

	require.True(t, sup.RebootLink(context.Background(), types.LinkA))

	radio.Inject(types.InboundMessage{Link: types.LinkA, Kind: types.PayloadText, ID: 2, Text: "after"})
	select {
	case msg = <-link.Inbox():
		assert.Equal(t, "after", msg.Text)
	case <-time.After(time.Second):
		t.Fatal("句柄更换后收件队列未收到消息")
	}
}

// TestShutdown 测试关闭两条链路
func TestShutdown(t *testing.T) {
	sup, _ := newTestSupervisor(t)
	require.NoError(t, sup.Startup(context.Background()))

	sup.Shutdown()
	assert.Nil(t, sup.Link(types.LinkA).Conn())
	assert.Nil(t, sup.Link(types.LinkB).Conn())
	assert.False(t, sup.Connected())
}
