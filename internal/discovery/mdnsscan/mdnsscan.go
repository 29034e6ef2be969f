// Package mdnsscan 实现基于 mDNS 的电台发现
//
// 扫描局域网内以 _meshradio._tcp 注册的电台服务，按 host:port
// 生成有序的候选端点列表；verify 通过实际建链加一次探测确认
// 候选端点确实是可用电台。
package mdnsscan

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/dep2p/go-meshbridge/internal/util/logger"
	"github.com/dep2p/go-meshbridge/pkg/interfaces"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

var log = logger.Logger("mdnsscan")

const (
	// ServiceTag 电台的 mDNS 服务标签
	ServiceTag = "_meshradio._tcp"

	// queryTimeout 单次 mDNS 查询时长
	queryTimeout = 3 * time.Second

	// verifyTimeout 单个候选端点的验证时长
	verifyTimeout = 5 * time.Second

	// entryBuffer mDNS 结果通道缓冲
	entryBuffer = 16
)

// Scanner 基于 mDNS 的电台发现服务
type Scanner struct {
	transport interfaces.Transport
}

var _ interfaces.DeviceDiscovery = (*Scanner)(nil)

// New 创建发现服务（transport 用于 verify 时实际建链）
func New(transport interfaces.Transport) *Scanner {
	return &Scanner{transport: transport}
}

// Enumerate 扫描并返回有序的候选端点列表
func (s *Scanner) Enumerate(ctx context.Context) ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, entryBuffer)

	var endpoints []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			endpoint := entryEndpoint(entry)
			if endpoint == "" || seen[endpoint] {
				continue
			}
			seen[endpoint] = true
			endpoints = append(endpoints, endpoint)
			log.Debug("发现候选电台", "endpoint", endpoint, "name", entry.Name)
		}
	}()

	params := &mdns.QueryParam{
		Service:             ServiceTag,
		Domain:              "local",
		Timeout:             queryTimeout,
		Entries:             entries,
		WantUnicastResponse: true,
	}
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}

	// 固定排序保证多次扫描结果顺序一致
	sort.Strings(endpoints)
	log.Info("电台扫描完成", "candidates", len(endpoints))
	return endpoints, nil
}

// Verify 确认候选端点是一台可用电台
//
// 实际建链并做一次探测；任何一步失败都视为不可用，不上抛错误。
func (s *Scanner) Verify(ctx context.Context, endpoint string) (bool, types.DeviceInfo) {
	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	conn, err := s.transport.Open(verifyCtx, endpoint)
	if err != nil {
		log.Debug("候选端点验证失败", "endpoint", endpoint, "err", err)
		return false, types.DeviceInfo{}
	}
	defer conn.Close()

	if err := conn.Probe(verifyCtx); err != nil {
		log.Debug("候选端点探测未通过", "endpoint", endpoint, "err", err)
		return false, types.DeviceInfo{}
	}
	return true, conn.Info()
}

// entryEndpoint 从 mDNS 记录提取 host:port 端点
func entryEndpoint(entry *mdns.ServiceEntry) string {
	if entry.Port == 0 {
		return ""
	}
	if entry.AddrV4 != nil {
		return net.JoinHostPort(entry.AddrV4.String(), strconv.Itoa(entry.Port))
	}
	if entry.AddrV6 != nil {
		return net.JoinHostPort(entry.AddrV6.String(), strconv.Itoa(entry.Port))
	}
	if entry.Host != "" {
		return net.JoinHostPort(entry.Host, strconv.Itoa(entry.Port))
	}
	return ""
}
