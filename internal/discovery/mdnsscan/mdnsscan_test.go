package mdnsscan

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-meshbridge/internal/transport/memnet"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

// TestVerify 测试可用电台的验证
func TestVerify(t *testing.T) {
	hub := memnet.NewHub()
	radio := hub.AddRadio("192.168.1.10:4403")
	radio.SetInfo(types.DeviceInfo{NodeID: "!abcd1234", HWModel: "heltec"})

	scanner := New(hub.Transport())

	ok, info := scanner.Verify(context.Background(), "192.168.1.10:4403")
	require.True(t, ok)
	assert.Equal(t, "!abcd1234", info.NodeID)
	assert.Equal(t, "heltec", info.HWModel)

	// 验证结束后不残留连接
	assert.Equal(t, 1, radio.OpenCount())
}

// TestVerify_ConnectFails 测试建链失败视为不可用
func TestVerify_ConnectFails(t *testing.T) {
	hub := memnet.NewHub()
	scanner := New(hub.Transport())

	ok, info := scanner.Verify(context.Background(), "192.168.1.99:4403")
	assert.False(t, ok)
	assert.Empty(t, info.NodeID)
}

// TestVerify_ProbeFails 测试探测未通过视为不可用
func TestVerify_ProbeFails(t *testing.T) {
	hub := memnet.NewHub()
	hub.AddRadio("192.168.1.10:4403").SetProbeErr(errors.New("radio silent"))

	scanner := New(hub.Transport())

	ok, _ := scanner.Verify(context.Background(), "192.168.1.10:4403")
	assert.False(t, ok)
}

// TestEntryEndpoint 测试 mDNS 记录到端点的提取
func TestEntryEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  string
	}{
		{
			name:  "IPv4 优先",
			entry: &mdns.ServiceEntry{AddrV4: net.ParseIP("192.168.1.10"), Port: 4403, Host: "radio.local."},
			want:  "192.168.1.10:4403",
		},
		{
			name:  "回退 IPv6",
			entry: &mdns.ServiceEntry{AddrV6: net.ParseIP("fe80::1"), Port: 4403},
			want:  "[fe80::1]:4403",
		},
		{
			name:  "回退主机名",
			entry: &mdns.ServiceEntry{Host: "radio.local.", Port: 4403},
			want:  "radio.local.:4403",
		},
		{
			name:  "无端口丢弃",
			entry: &mdns.ServiceEntry{AddrV4: net.ParseIP("192.168.1.10")},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entryEndpoint(tt.entry))
		})
	}
}
