package meshbridge

import "errors"

// 定义错误
var (
	// ErrAlreadyStarted 桥接器已启动
	ErrAlreadyStarted = errors.New("meshbridge: already started")

	// ErrNotStarted 桥接器尚未启动
	ErrNotStarted = errors.New("meshbridge: not started")

	// ErrClosed 桥接器已关闭
	ErrClosed = errors.New("meshbridge: closed")

	// ErrNotEnoughRadios 自动发现找到的可用电台不足两台
	ErrNotEnoughRadios = errors.New("meshbridge: need two usable radios")
)
