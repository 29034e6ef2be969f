package supervisor

import (
	"errors"
	"fmt"
)

// 定义错误
var (
	// ErrNoHandle 链路没有可用连接句柄
	ErrNoHandle = errors.New("link has no usable handle")

	// ErrLinkUnknown 未知链路
	ErrLinkUnknown = errors.New("unknown link")

	// ErrAlreadyStarted 监督器已启动
	ErrAlreadyStarted = errors.New("supervisor already started")
)

// ConnectionError 连接失败错误
//
// 在耗尽全部重试次数后返回，携带最后一次底层错误。
// 启动阶段出现即为致命错误，由调用方负责退出。
type ConnectionError struct {
	// Endpoint 目标端点
	Endpoint string

	// Attempts 已尝试次数
	Attempts int

	// Err 最后一次底层错误
	Err error
}

// Error 实现 error 接口
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

// Unwrap 返回底层错误
func (e *ConnectionError) Unwrap() error {
	return e.Err
}
