// Package interfaces 定义 meshbridge 与外部协作者之间的契约
//
// 传输层（连接建立、线缆编解码、能力查询）和设备发现服务
// 不属于核心范围，核心只依赖本包定义的接口。
package interfaces

import (
	"context"

	"github.com/dep2p/go-meshbridge/pkg/types"
)

// ============================================================================
//                              Transport 接口
// ============================================================================

// Transport 链路传输接口
//
// Transport 抽象了到单台电台设备的底层通信（如 TCP 或串口）。
// Open 建立连接并返回连接句柄；连接失败返回错误。
type Transport interface {
	// Open 建立到指定端点的连接
	Open(ctx context.Context, endpoint string) (Conn, error)
}

// Conn 链路连接句柄
//
// 句柄由 ConnectionSupervisor 独占持有，Relay 仅借用以发送。
// 实现必须允许并发调用 Send 与 Probe。
type Conn interface {
	// Endpoint 返回连接的端点标识
	Endpoint() string

	// Send 在指定信道发送文本消息
	// 发送可能阻塞到实现定义的超时，通过 ctx 限定
	Send(ctx context.Context, text string, channel int) error

	// Probe 执行一次廉价的存活探测
	// 返回 nil 表示探测成功
	Probe(ctx context.Context) error

	// Inbound 返回入站消息通道
	// 消息已在传输层边界解码；连接关闭后通道被关闭
	Inbound() <-chan types.InboundMessage

	// Info 返回设备信息
	Info() types.DeviceInfo

	// Close 关闭连接
	Close() error
}

// Rebooter 可选的重启能力
//
// 支持远程重启的传输实现额外实现本接口。
// Supervisor 通过类型断言探测该能力；不支持时直接走关闭重连路径。
type Rebooter interface {
	// Reboot 请求设备重启
	Reboot(ctx context.Context) error
}
