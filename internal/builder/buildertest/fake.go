// Package buildertest provides an in-memory builder.Backend for tests.
package buildertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
)

// Handler answers one decoded builder query.
type Handler func(q *builder.Query) (*builder.BuilderResult, error)

// Backend dispatches queries to per-method handlers and records them.
type Backend struct {
	mu       sync.Mutex
	handlers map[string]Handler
	queries  []*builder.Query
}

// New returns an empty fake backend.
func New() *Backend {
	return &Backend{handlers: make(map[string]Handler)}
}

// Handle registers h for a builder method ("transfer", "cometSupply", ...).
func (b *Backend) Handle(method string, h Handler) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method] = h
	return b
}

// Queries returns every query received so far.
func (b *Backend) Queries() []*builder.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*builder.Query(nil), b.queries...)
}

// Call implements builder.Backend.
func (b *Backend) Call(ctx context.Context, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := builder.DecodeQuery(input)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.queries = append(b.queries, q)
	h, ok := b.handlers[q.Intent.Method()]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("buildertest: no handler for %s", q.Intent.Method())
	}

	res, err := h(q)
	if err != nil {
		return nil, err
	}
	return builder.EncodeResult(q.Intent.Method(), res)
}

// Revert returns the error a handler should return to make the builder
// revert with the named custom error.
func Revert(name string, args ...interface{}) error {
	data, err := builder.EncodeError(name, args...)
	if err != nil {
		panic(err)
	}
	return &chain.RevertError{Data: data}
}
