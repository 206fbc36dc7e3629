package rpc

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// BenchmarkResult is one probed endpoint.
type BenchmarkResult struct {
	Endpoint
	Err error
}

// Benchmark health-checks all urls in parallel. Results keep the order of
// urls.
func Benchmark(ctx context.Context, urls []string, builder common.Address) []BenchmarkResult {
	results := make([]BenchmarkResult, len(urls))
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			ep, err := HealthCheck(ctx, u, builder)
			results[idx] = BenchmarkResult{Endpoint: ep, Err: err}
		}(i, url)
	}

	wg.Wait()
	return results
}

// ResultsToEndpoints converts benchmark results to picker Endpoints. All
// of them count as checked; failed probes are unhealthy.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		ep := r.Endpoint
		ep.Checked = true
		if r.Err != nil {
			ep.Healthy = false
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints
}
