// Package rpc chooses which node the rpc backend sends builder queries to
// when several are configured.
package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint can serve builder queries.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm names a selection strategy.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"
)

const (
	// maxLag is how far behind the tallest node an endpoint may be.
	maxLag = 3
	// winnerTTL bounds how long a fastest pick is reused.
	winnerTTL = 5 * time.Minute
)

// ParseAlgorithm validates an algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	}
	return "", fmt.Errorf("unknown rpc algorithm %q (want %s, %s or %s)", s, AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover)
}

// Endpoint is a node plus what probing learned about it. Fields other than
// URL are zero until the endpoint has been Checked.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     uint64
	HasBuilder  bool
	Healthy     bool
	Checked     bool
}

// usable reports whether e has not been ruled out by a probe.
func (e *Endpoint) usable() bool { return !e.Checked || e.Healthy }

// Picker applies one Algorithm across calls. Round-robin position and the
// cached fastest winner live on the Picker, so reuse it between picks.
type Picker struct {
	algo Algorithm

	mu          sync.Mutex
	next        int
	winner      string
	winnerUntil time.Time
	onBenchmark func()
}

// NewPicker returns a Picker for algo.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo}
}

// OnBenchmark registers fn to run whenever the fastest pick is recomputed
// instead of served from cache.
func (p *Picker) OnBenchmark(fn func()) {
	p.mu.Lock()
	p.onBenchmark = fn
	p.mu.Unlock()
}

// Pick chooses one of endpoints. The returned pointer aliases the slice.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		winner *Endpoint
		ok     bool
	)
	switch p.algo {
	case AlgorithmRoundRobin:
		winner, ok = p.rotate(eligible(endpoints))
	case AlgorithmFailover:
		winner, ok = first(eligible(endpoints))
	default:
		winner, ok = p.fastest(endpoints)
	}
	if !ok {
		return nil, ErrNoHealthyRPC
	}
	return winner, nil
}

func (p *Picker) fastest(endpoints []Endpoint) (*Endpoint, bool) {
	pool := eligible(endpoints)
	if p.winner != "" && time.Now().Before(p.winnerUntil) {
		for _, e := range pool {
			if e.URL == p.winner {
				return e, true
			}
		}
	}
	if p.onBenchmark != nil {
		p.onBenchmark()
	}

	top := tallest(pool)
	var best *Endpoint
	var bestScore float64
	for _, e := range pool {
		if s := score(e, top); best == nil || s > bestScore {
			best, bestScore = e, s
		}
	}
	if best == nil {
		return nil, false
	}
	p.winner = best.URL
	p.winnerUntil = time.Now().Add(winnerTTL)
	return best, true
}

func (p *Picker) rotate(pool []*Endpoint) (*Endpoint, bool) {
	if len(pool) == 0 {
		return nil, false
	}
	e := pool[p.next%len(pool)]
	p.next = (p.next + 1) % len(pool)
	return e, true
}

func first(pool []*Endpoint) (*Endpoint, bool) {
	if len(pool) == 0 {
		return nil, false
	}
	return pool[0], true
}

// eligible keeps usable endpoints in their configured order. Probed
// endpoints on a minority chain are dropped first, then those lagging the
// tallest survivor by more than maxLag blocks.
func eligible(endpoints []Endpoint) []*Endpoint {
	var pool []*Endpoint
	for i := range endpoints {
		if endpoints[i].usable() {
			pool = append(pool, &endpoints[i])
		}
	}

	chainID := majorityChain(pool)
	sameChain := pool[:0]
	for _, e := range pool {
		if e.Checked && e.ChainID != 0 && e.ChainID != chainID {
			continue
		}
		sameChain = append(sameChain, e)
	}

	top := tallest(sameChain)
	out := sameChain[:0]
	for _, e := range sameChain {
		if e.Checked && top-e.BlockNumber > maxLag {
			continue
		}
		out = append(out, e)
	}
	return out
}

// majorityChain is the chain id reported by most endpoints. Ties go to the
// id seen first. Endpoints that reported no id do not vote.
func majorityChain(pool []*Endpoint) uint64 {
	votes := make(map[uint64]int)
	var best uint64
	for _, e := range pool {
		if e.ChainID == 0 {
			continue
		}
		votes[e.ChainID]++
		if best == 0 || votes[e.ChainID] > votes[best] {
			best = e.ChainID
		}
	}
	return best
}

func tallest(pool []*Endpoint) uint64 {
	var top uint64
	for _, e := range pool {
		top = max(top, e.BlockNumber)
	}
	return top
}

// score rewards low latency. Each block of lag costs one point.
func score(e *Endpoint, top uint64) float64 {
	var s float64
	if us := e.Latency.Microseconds(); us > 0 {
		s = 1_000_000 / float64(us)
	}
	return s - float64(top-e.BlockNumber)
}
