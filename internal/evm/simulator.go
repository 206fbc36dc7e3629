// Package evm runs builder bytecode in an in-process EVM so scenarios can be
// executed without a node.
package evm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/core/vm/runtime"
)

// DefaultGasLimit is generous: the builder is a large view contract.
const DefaultGasLimit = 1_000_000_000

// Simulator executes calls against a single contract's runtime bytecode.
// Every call runs in its own fresh state, so a Simulator may be shared
// across goroutines.
type Simulator struct {
	code     []byte
	origin   common.Address
	gasLimit uint64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithOrigin sets tx.origin / msg.sender for every call.
func WithOrigin(addr common.Address) Option {
	return func(s *Simulator) { s.origin = addr }
}

// WithGasLimit overrides DefaultGasLimit.
func WithGasLimit(gas uint64) Option {
	return func(s *Simulator) {
		if gas > 0 {
			s.gasLimit = gas
		}
	}
}

// New creates a Simulator for the given runtime bytecode.
func New(code []byte, opts ...Option) (*Simulator, error) {
	if len(code) == 0 {
		return nil, errors.New("evm: empty bytecode")
	}
	s := &Simulator{code: code, gasLimit: DefaultGasLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoadFile reads hex-encoded runtime bytecode (with or without 0x, surrounding
// whitespace ignored) and creates a Simulator for it.
func LoadFile(path string, opts ...Option) (*Simulator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bytecode: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(text, "0x") {
		text = "0x" + text
	}
	code, err := hexutil.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decoding bytecode %s: %w", path, err)
	}
	return New(code, opts...)
}

// Call runs input against the bytecode in a fresh state and returns the
// return data. A revert yields *chain.RevertError with the revert payload.
func (s *Simulator) Call(ctx context.Context, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := &runtime.Config{
		Origin:   s.origin,
		GasLimit: s.gasLimit,
	}
	ret, _, err := runtime.Execute(s.code, input, cfg)
	if err != nil {
		if errors.Is(err, vm.ErrExecutionReverted) {
			return nil, &chain.RevertError{Data: common.CopyBytes(ret), Message: err.Error()}
		}
		return nil, fmt.Errorf("evm: %w", err)
	}
	return ret, nil
}
