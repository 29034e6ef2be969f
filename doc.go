// Package meshbridge 实现两台网状电台之间的文本消息桥接
//
// 桥接器在两条链路（链路 a 与链路 b）之间双向转发文本消息，
// 核心由四个部分组成：
//   - 去重追踪器：有界滑动窗口抑制重复与回环，独立审计日志供统计
//   - 转发器：至多一次、尽力而为的跨链路转发
//   - 连接监督器：启动重试、周期探测、阈值升级重启
//   - 状态报告器：周期性原子写入 JSON 状态文件
//
// 基本用法：
//
//	bridge, err := meshbridge.New(
//		meshbridge.WithEndpoints("192.168.1.10:4403", "192.168.1.11:4403"),
//	)
//	if err != nil {
//		// 处理错误
//	}
//	if err := bridge.Start(context.Background()); err != nil {
//		// 处理错误
//	}
//	defer bridge.Close()
//
// 不指定端点时，New 会通过 mDNS 自动发现局域网内的前两台可用电台。
package meshbridge
