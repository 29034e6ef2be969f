package interfaces

import (
	"context"

	"github.com/dep2p/go-meshbridge/pkg/types"
)

// ============================================================================
//                              设备发现接口
// ============================================================================

// DeviceDiscovery 设备发现服务
//
// 用于在未显式指定端点时自动定位电台设备。
// 核心只在启动阶段调用本接口，运行期间不再依赖。
type DeviceDiscovery interface {
	// Enumerate 枚举候选端点（有序）
	Enumerate(ctx context.Context) ([]string, error)

	// Verify 验证端点上确实存在可用设备
	// 返回验证结果和设备信息
	Verify(ctx context.Context, endpoint string) (bool, types.DeviceInfo)
}
