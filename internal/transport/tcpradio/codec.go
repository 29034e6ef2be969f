package tcpradio

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dep2p/go-meshbridge/pkg/types"
)

// MaxFrameSize 单帧最大字节数
const MaxFrameSize = 64 * 1024

// ErrFrameTooLarge 帧超出大小限制
var ErrFrameTooLarge = errors.New("tcpradio: frame too large")

// 帧类型
const (
	frameHello  = "hello"  // 桥 → 电台：握手请求
	frameInfo   = "info"   // 电台 → 桥：设备信息应答
	frameSend   = "send"   // 桥 → 电台：发送文本
	framePing   = "ping"   // 桥 → 电台：存活探测
	framePong   = "pong"   // 电台 → 桥：探测应答
	frameReboot = "reboot" // 桥 → 电台：重启指令
	frameText   = "text"   // 电台 → 桥：入站文本消息
	framePos    = "position"
	frameTele   = "telemetry"
)

// frame 线上帧
//
// 所有帧共用一个信封；未用到的字段省略。Seq 用于 ping/pong 关联。
type frame struct {
	Type    string            `json:"type"`
	Seq     uint64            `json:"seq,omitempty"`
	ID      uint32            `json:"id,omitempty"`
	From    string            `json:"from,omitempty"`
	To      string            `json:"to,omitempty"`
	Channel int               `json:"channel,omitempty"`
	Text    string            `json:"text,omitempty"`
	Info    *types.DeviceInfo `json:"info,omitempty"`
}

// writeFrame 写出一帧：4 字节大端长度前缀 + JSON 帧体
func writeFrame(w io.Writer, f *frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if len(data) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := w.Write(lenBuf); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// readFrame 读入一帧
func readFrame(r io.Reader) (*frame, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf)
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	return &f, nil
}

// payloadKind 帧类型到载荷种类的映射
func payloadKind(frameType string) types.PayloadKind {
	switch frameType {
	case frameText:
		return types.PayloadText
	case framePos:
		return types.PayloadPosition
	case frameTele:
		return types.PayloadTelemetry
	default:
		return types.PayloadUnknown
	}
}
