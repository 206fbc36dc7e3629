package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ResultsToEndpoints
// ---------------------------------------------------------------------------

func TestResultsToEndpointsEmpty(t *testing.T) {
	assert.Empty(t, ResultsToEndpoints(nil))
	assert.Empty(t, ResultsToEndpoints([]BenchmarkResult{}))
}

func TestResultsToEndpointsKeepsProbe(t *testing.T) {
	results := []BenchmarkResult{
		{Endpoint: Endpoint{URL: "https://rpc1.example.com", Latency: 50 * time.Millisecond, BlockNumber: 100, ChainID: 1, HasBuilder: true, Healthy: true}},
	}
	endpoints := ResultsToEndpoints(results)
	require.Len(t, endpoints, 1)

	ep := endpoints[0]
	assert.Equal(t, "https://rpc1.example.com", ep.URL)
	assert.Equal(t, 50*time.Millisecond, ep.Latency)
	assert.Equal(t, uint64(100), ep.BlockNumber)
	assert.True(t, ep.HasBuilder)
	assert.True(t, ep.Healthy)
	assert.True(t, ep.Checked)
}

func TestResultsToEndpointsErrorIsUnhealthy(t *testing.T) {
	results := []BenchmarkResult{
		{Endpoint: Endpoint{URL: "https://dead.rpc.example.com", Healthy: true}, Err: errors.New("connection refused")},
		{},
	}
	endpoints := ResultsToEndpoints(results)
	require.Len(t, endpoints, 2)
	for _, ep := range endpoints {
		assert.False(t, ep.Healthy)
		assert.True(t, ep.Checked)
	}
}

// ---------------------------------------------------------------------------
// Benchmark
// ---------------------------------------------------------------------------

func TestBenchmarkPreservesOrder(t *testing.T) {
	a := nodeServer(t, 1, 100, "0x6080")
	b := nodeServer(t, 1, 100, "0x")
	urls := []string{a.URL, b.URL, "http://127.0.0.1:19995"}

	results := Benchmark(context.Background(), urls, builderAddr)
	require.Len(t, results, 3)
	for i, u := range urls {
		assert.Equal(t, u, results[i].URL)
	}
	assert.True(t, results[0].Healthy)
	assert.False(t, results[1].Healthy)
	assert.Error(t, results[2].Err)
}
