package rpc

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// probeTimeout bounds a single health check.
const probeTimeout = 5 * time.Second

// HealthCheck probes a single node within probeTimeout. A healthy node
// answers and hosts code at builder. Lag against other nodes is judged by
// the Picker.
func HealthCheck(ctx context.Context, url string, builder common.Address) (Endpoint, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ep, err := probe(timeoutCtx, chain.NewEVMClient(url), builder)
	ep.Checked = true
	if err != nil {
		ep.Healthy = false
	}
	return ep, err
}

// probe measures eth_blockNumber latency, then reads the chain id and the
// builder's code.
func probe(ctx context.Context, c *chain.EVMClient, builder common.Address) (Endpoint, error) {
	ep := Endpoint{URL: c.URL()}

	start := time.Now()
	block, err := c.BlockNumber(ctx)
	if err != nil {
		return ep, err
	}
	ep.Latency = time.Since(start)
	ep.BlockNumber = block

	if ep.ChainID, err = c.ChainID(ctx); err != nil {
		return ep, err
	}

	if builder == (common.Address{}) {
		ep.Healthy = true
		return ep, nil
	}
	code, err := c.GetCode(ctx, builder)
	if err != nil {
		return ep, err
	}
	ep.HasBuilder = len(code) > 0
	ep.Healthy = ep.HasBuilder
	return ep, nil
}
