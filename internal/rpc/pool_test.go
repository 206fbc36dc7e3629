package rpc

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type backendFunc func(ctx context.Context, input []byte) ([]byte, error)

func (f backendFunc) Call(ctx context.Context, input []byte) ([]byte, error) { return f(ctx, input) }

// recorder hands out backends that answer with their own URL and counts
// which URL served each query. URLs in down fail as unreachable.
type recorder struct {
	mu   sync.Mutex
	hits map[string]int
	down map[string]bool
}

func newRecorder(down ...string) *recorder {
	r := &recorder{hits: make(map[string]int), down: make(map[string]bool)}
	for _, u := range down {
		r.down[u] = true
	}
	return r
}

func (r *recorder) connect(url string) builder.Backend {
	return backendFunc(func(context.Context, []byte) ([]byte, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.hits[url]++
		if r.down[url] {
			return nil, fmt.Errorf("%w: connection refused", chain.ErrNodeUnavailable)
		}
		return []byte(url), nil
	})
}

func (r *recorder) count(url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[url]
}

func TestDialNoURLs(t *testing.T) {
	_, err := Dial(context.Background(), nil, builderAddr, AlgorithmFastest, newRecorder().connect)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestDialSingleURLWithoutBuilder(t *testing.T) {
	empty := nodeServer(t, 1, 100, "0x")

	_, err := Dial(context.Background(), []string{empty.URL}, builderAddr, AlgorithmFastest, newRecorder().connect)
	require.ErrorIs(t, err, ErrNoHealthyRPC)
	assert.ErrorContains(t, err, "no builder code at "+builderAddr.Hex())
}

func TestDialAllUnreachable(t *testing.T) {
	_, err := Dial(context.Background(), []string{"http://127.0.0.1:19996", "http://127.0.0.1:19997"}, builderAddr, "", newRecorder().connect)
	require.ErrorIs(t, err, ErrNoHealthyRPC)
	assert.ErrorContains(t, err, "127.0.0.1:19996")
	assert.ErrorContains(t, err, "127.0.0.1:19997")
}

func TestPoolSkipsNodeWithoutBuilder(t *testing.T) {
	missing := nodeServer(t, 1, 100, "0x")
	deployed := nodeServer(t, 1, 100, "0x6080")
	rec := newRecorder()

	pool, err := Dial(context.Background(), []string{missing.URL, deployed.URL}, builderAddr, AlgorithmFailover, rec.connect,
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ret, err := pool.Call(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, deployed.URL, string(ret))
	assert.Zero(t, rec.count(missing.URL))
	require.Len(t, pool.Healthy(), 1)
}

func TestPoolRoundRobinSpreadsQueries(t *testing.T) {
	a := nodeServer(t, 8453, 100, "0x6080")
	b := nodeServer(t, 8453, 101, "0x6080")
	rec := newRecorder()

	pool, err := Dial(context.Background(), []string{a.URL, b.URL}, builderAddr, AlgorithmRoundRobin, rec.connect)
	require.NoError(t, err)

	for range 4 {
		_, err := pool.Call(context.Background(), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, rec.count(a.URL))
	assert.Equal(t, 2, rec.count(b.URL))
}

func TestPoolFailsOverWhenNodeDrops(t *testing.T) {
	primary := nodeServer(t, 1, 100, "0x6080")
	backup := nodeServer(t, 1, 100, "0x6080")
	rec := newRecorder(primary.URL)

	pool, err := Dial(context.Background(), []string{primary.URL, backup.URL}, builderAddr, AlgorithmFailover, rec.connect,
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	for range 3 {
		ret, err := pool.Call(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, backup.URL, string(ret))
	}
	assert.Equal(t, 1, rec.count(primary.URL), "a dropped node is not retried")
	assert.Len(t, pool.Healthy(), 1)
}

func TestPoolFastestReusesWinner(t *testing.T) {
	a := nodeServer(t, 1, 100, "0x6080")
	b := nodeServer(t, 1, 100, "0x6080")
	rec := newRecorder()

	pool, err := Dial(context.Background(), []string{a.URL, b.URL}, builderAddr, AlgorithmFastest, rec.connect)
	require.NoError(t, err)

	ranked := 0
	pool.picker.OnBenchmark(func() { ranked++ })
	for range 5 {
		_, err := pool.Call(context.Background(), nil)
		require.NoError(t, err)
	}
	assert.Zero(t, ranked, "the winner picked while dialing is cached")
	assert.Equal(t, 5, rec.count(a.URL)+rec.count(b.URL))
	assert.True(t, rec.count(a.URL) == 5 || rec.count(b.URL) == 5)
}

func TestPoolKeepsNodeOnRevert(t *testing.T) {
	node := nodeServer(t, 1, 100, "0x6080")
	calls := 0
	connect := func(string) builder.Backend {
		return backendFunc(func(context.Context, []byte) ([]byte, error) {
			calls++
			return nil, &chain.RevertError{Data: []byte{0xde, 0xad}}
		})
	}

	pool, err := Dial(context.Background(), []string{node.URL}, builderAddr, AlgorithmFastest, connect)
	require.NoError(t, err)

	_, err = pool.Call(context.Background(), nil)
	assert.True(t, chain.IsRevert(err))
	assert.Equal(t, 1, calls)
	assert.Len(t, pool.Healthy(), 1, "a revert is the builder's answer, not a node failure")
}

func TestPoolExhausted(t *testing.T) {
	node := nodeServer(t, 1, 100, "0x6080")
	rec := newRecorder(node.URL)

	pool, err := Dial(context.Background(), []string{node.URL}, builderAddr, AlgorithmFastest, rec.connect)
	require.NoError(t, err)

	_, err = pool.Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
	assert.ErrorIs(t, err, chain.ErrNodeUnavailable)

	_, err = pool.Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}
