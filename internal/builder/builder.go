// Package builder is the client side of the external QuarkBuilder contract:
// it packs intents and account state into a query, runs it through a
// Backend and unpacks the resulting quark operations.
package builder

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"reflect"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/QuarkBuilder.json
var builderJSON []byte

// ABI is the parsed QuarkBuilder ABI.
var ABI = func() abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(builderJSON))
	if err != nil {
		panic(fmt.Sprintf("builder: parsing embedded ABI: %v", err))
	}
	return parsed
}()

// Backend executes a raw query against the builder contract. Reverts must
// be reported as *chain.RevertError.
type Backend interface {
	Call(ctx context.Context, input []byte) ([]byte, error)
}

// RPCBackend queries a builder deployed on a node via eth_call.
type RPCBackend struct {
	client  *chain.EVMClient
	builder common.Address
	from    common.Address
	gas     uint64
}

// NewRPCBackend creates a backend calling builder through client.
func NewRPCBackend(client *chain.EVMClient, builder, from common.Address, gas uint64) *RPCBackend {
	return &RPCBackend{client: client, builder: builder, from: from, gas: gas}
}

// Call implements Backend.
func (b *RPCBackend) Call(ctx context.Context, input []byte) ([]byte, error) {
	return b.client.Call(ctx, chain.CallMsg{
		From: b.from,
		To:   b.builder,
		Data: input,
		Gas:  b.gas,
	})
}

// Client runs builder queries.
type Client struct {
	backend Backend
}

// NewClient returns a Client using backend.
func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

// Build asks the builder to plan intent given the accounts' state on every
// chain and the payment preference. A builder revert is returned as *Error.
func (c *Client) Build(ctx context.Context, intent Intent, accounts []ChainAccounts, payment Payment) (*BuilderResult, error) {
	input, err := EncodeQuery(intent, accounts, payment)
	if err != nil {
		return nil, err
	}

	ret, err := c.backend.Call(ctx, input)
	if err != nil {
		var rev *chain.RevertError
		if errors.As(err, &rev) {
			return nil, DecodeError(rev.Data)
		}
		return nil, fmt.Errorf("querying builder: %w", err)
	}

	return DecodeResult(intent.Method(), ret)
}

// EncodeQuery packs a builder call.
func EncodeQuery(intent Intent, accounts []ChainAccounts, payment Payment) ([]byte, error) {
	if accounts == nil {
		accounts = []ChainAccounts{}
	}
	input, err := ABI.Pack(intent.Method(), intent, accounts, payment)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", intent.Method(), err)
	}
	return input, nil
}

// Query is a decoded builder call, the inverse of EncodeQuery.
type Query struct {
	Intent   Intent
	Accounts []ChainAccounts
	Payment  Payment
}

// DecodeQuery unpacks builder calldata.
func DecodeQuery(input []byte) (*Query, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("query too short: %d bytes", len(input))
	}
	method, err := ABI.MethodById(input[:4])
	if err != nil {
		return nil, err
	}
	vals, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method.Name, err)
	}

	proto, ok := newIntent(method.Name)
	if !ok {
		return nil, fmt.Errorf("no intent type for %s", method.Name)
	}
	intentPtr := abi.ConvertType(vals[0], proto)
	accounts := *abi.ConvertType(vals[1], new([]ChainAccounts)).(*[]ChainAccounts)
	payment := *abi.ConvertType(vals[2], new(Payment)).(*Payment)

	return &Query{
		Intent:   reflect.ValueOf(intentPtr).Elem().Interface().(Intent),
		Accounts: accounts,
		Payment:  payment,
	}, nil
}

// EncodeResult packs the return data of a builder method.
func EncodeResult(method string, res *BuilderResult) ([]byte, error) {
	m, ok := ABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown builder method %q", method)
	}
	return m.Outputs.Pack(*res)
}

// DecodeResult unpacks the return data of a builder method.
func DecodeResult(method string, ret []byte) (*BuilderResult, error) {
	out, err := ABI.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s result: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result arity %d", method, len(out))
	}
	return abi.ConvertType(out[0], new(BuilderResult)).(*BuilderResult), nil
}
