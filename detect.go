package meshbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-meshbridge/internal/supervisor"
	"github.com/dep2p/go-meshbridge/pkg/interfaces"
	"github.com/dep2p/go-meshbridge/pkg/types"
)

// autoDetect 通过发现服务自动选取两台可用电台
//
// 电台上电比桥接进程慢是常态：单次扫描不足两台时等待后重扫，
// 直到凑齐两台或 ctx 超时；最终仍不足返回 ErrNotEnoughRadios。
func autoDetect(ctx context.Context, disc interfaces.DeviceDiscovery, interval time.Duration) (supervisor.Endpoints, error) {
	for {
		endpoints, err := detectOnce(ctx, disc)
		if err == nil {
			return endpoints, nil
		}
		if !errors.Is(err, ErrNotEnoughRadios) {
			return nil, err
		}

		log.Info("可用电台不足两台，等待后重新扫描", "retry_in", interval)
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(interval):
		}
	}
}

// detectOnce 执行一轮扫描与验证
func detectOnce(ctx context.Context, disc interfaces.DeviceDiscovery) (supervisor.Endpoints, error) {
	candidates, err := disc.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate radios: %w", err)
	}
	log.Info("自动发现候选电台", "candidates", len(candidates))

	var verified []string
	for _, endpoint := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, info := disc.Verify(ctx, endpoint)
		if !ok {
			log.Debug("候选电台验证未通过", "endpoint", endpoint)
			continue
		}
		log.Info("电台验证通过", "endpoint", endpoint, "node", info.NodeID, "hw", info.HWModel)

		verified = append(verified, endpoint)
		if len(verified) == 2 {
			break
		}
	}

	if len(verified) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughRadios, len(verified))
	}

	return supervisor.Endpoints{
		types.LinkA: verified[0],
		types.LinkB: verified[1],
	}, nil
}
