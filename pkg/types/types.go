// Package types 定义 meshbridge 的共享基础类型
//
// 包括链路标识、载荷类型和解码后的入站消息结构。
// 入站消息在传输层边界解码一次，上层组件不再接触原始字节。
package types

import "time"

// ============================================================================
//                              链路标识
// ============================================================================

// LinkID 链路标识
//
// 桥接器恰好连接两条链路："a" 和 "b"。
type LinkID string

const (
	// LinkA 链路 A
	LinkA LinkID = "a"

	// LinkB 链路 B
	LinkB LinkID = "b"
)

// Other 返回对端链路
//
// 链路 A 的对端是 B，链路 B 的对端是 A。
func (l LinkID) Other() LinkID {
	if l == LinkA {
		return LinkB
	}
	return LinkA
}

// Valid 检查链路标识是否合法
func (l LinkID) Valid() bool {
	return l == LinkA || l == LinkB
}

// Links 返回全部链路标识（固定顺序 a, b）
func Links() []LinkID {
	return []LinkID{LinkA, LinkB}
}

// ============================================================================
//                              载荷类型
// ============================================================================

// PayloadKind 载荷类型
//
// 在传输层边界解码时确定。只有文本载荷会被转发，
// 其余类型（位置、遥测、未知）由 Relay 静默丢弃。
type PayloadKind int

const (
	// PayloadUnknown 未知载荷
	PayloadUnknown PayloadKind = iota

	// PayloadText 文本消息
	PayloadText

	// PayloadPosition 位置上报
	PayloadPosition

	// PayloadTelemetry 遥测数据
	PayloadTelemetry
)

// String 返回载荷类型名称
func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadPosition:
		return "position"
	case PayloadTelemetry:
		return "telemetry"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              入站消息
// ============================================================================

// InboundMessage 解码后的入站消息
//
// 由传输层在接收时解码并填充，经链路收件队列送达 Relay。
// ID 在单条链路内不保证全局唯一，按不透明可比较键处理。
type InboundMessage struct {
	// Link 接收该消息的链路
	Link LinkID

	// Kind 载荷类型
	Kind PayloadKind

	// ID 消息标识
	ID uint32

	// From 发送方节点标识
	From string

	// To 接收方节点标识
	To string

	// Channel 信道索引
	Channel int

	// Text 文本内容（仅 PayloadText 有效）
	Text string

	// RxTime 到达时间
	RxTime time.Time
}

// ============================================================================
//                              设备信息
// ============================================================================

// DeviceInfo 设备验证信息
//
// 由设备发现服务的 Verify 或传输连接的 Info 返回。
type DeviceInfo struct {
	// NodeID 节点标识
	NodeID string `json:"node_id"`

	// HWModel 硬件型号
	HWModel string `json:"hw_model"`

	// NumChannels 信道数量
	NumChannels int `json:"num_channels"`

	// FirmwareVersion 固件版本
	FirmwareVersion string `json:"firmware_version"`
}
