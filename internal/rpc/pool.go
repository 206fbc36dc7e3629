package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Connector returns the backend that queries the builder through url.
type Connector func(url string) builder.Backend

// Pool is a builder.Backend over several probed endpoints. Each query goes
// to the endpoint its Picker chooses; an endpoint that cannot be reached is
// marked down and the query moves on to the next pick.
type Pool struct {
	picker  *Picker
	connect Connector
	log     *zap.Logger

	mu        sync.Mutex
	endpoints []Endpoint
	backends  map[string]builder.Backend
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the pool's logger.
func WithLogger(l *zap.Logger) PoolOption {
	return func(p *Pool) { p.log = l }
}

// Dial health-checks urls and returns a Pool over them. It fails with
// ErrNoHealthyRPC, joined with each endpoint's problem, when none of them
// can serve builder queries.
func Dial(ctx context.Context, urls []string, builderAddr common.Address, algo Algorithm, connect Connector, opts ...PoolOption) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoHealthyRPC
	}
	results := Benchmark(ctx, urls, builderAddr)

	p := &Pool{
		picker:    NewPicker(algo),
		connect:   connect,
		log:       zap.NewNop(),
		endpoints: ResultsToEndpoints(results),
		backends:  make(map[string]builder.Backend),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.picker.OnBenchmark(func() {
		p.log.Debug("ranking rpc endpoints", zap.Int("endpoints", len(p.endpoints)))
	})

	for _, r := range results {
		p.log.Debug("probed rpc endpoint",
			zap.String("url", r.URL),
			zap.Uint64("chain_id", r.ChainID),
			zap.Uint64("block", r.BlockNumber),
			zap.Duration("latency", r.Latency),
			zap.Bool("builder", r.HasBuilder),
			zap.Error(r.Err))
	}

	p.mu.Lock()
	_, err := p.picker.Pick(p.endpoints)
	p.mu.Unlock()
	if err != nil {
		return nil, errors.Join(append([]error{err}, problems(results, builderAddr)...)...)
	}
	return p, nil
}

// Call implements builder.Backend.
func (p *Pool) Call(ctx context.Context, input []byte) ([]byte, error) {
	var lastErr error
	for {
		url, backend, err := p.next()
		if err != nil {
			return nil, errors.Join(err, lastErr)
		}
		ret, err := backend.Call(ctx, input)
		if err == nil || ctx.Err() != nil || !errors.Is(err, chain.ErrNodeUnavailable) {
			return ret, err
		}
		p.log.Warn("rpc endpoint failed, trying the next one", zap.String("url", url), zap.Error(err))
		p.markDown(url)
		lastErr = err
	}
}

// Healthy returns the endpoints still eligible for queries, in configured
// order.
func (p *Pool) Healthy() []Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Endpoint
	for _, e := range eligible(p.endpoints) {
		out = append(out, *e)
	}
	return out
}

func (p *Pool) next() (string, builder.Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.picker.Pick(p.endpoints)
	if err != nil {
		return "", nil, err
	}
	b, ok := p.backends[e.URL]
	if !ok {
		b = p.connect(e.URL)
		p.backends[e.URL] = b
	}
	return e.URL, b, nil
}

func (p *Pool) markDown(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.endpoints {
		if p.endpoints[i].URL == url {
			p.endpoints[i].Checked = true
			p.endpoints[i].Healthy = false
		}
	}
}

func problems(results []BenchmarkResult, builderAddr common.Address) []error {
	var out []error
	for _, r := range results {
		switch {
		case r.Err != nil:
			out = append(out, fmt.Errorf("%s: %w", r.URL, r.Err))
		case !r.Healthy:
			out = append(out, fmt.Errorf("%s: no builder code at %s", r.URL, builderAddr.Hex()))
		}
	}
	return out
}
