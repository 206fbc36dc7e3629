package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EVMClient is a minimal JSON-RPC client for the node hosting the builder.
type EVMClient struct {
	url    string
	client *http.Client
}

// CallMsg is the payload of an eth_call.
type CallMsg struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
}

// RevertError is returned when a call reverts. Data holds the raw revert
// payload (empty when the node did not report one).
type RevertError struct {
	Data    []byte
	Message string
}

func (e *RevertError) Error() string {
	if reason, err := abi.UnpackRevert(e.Data); err == nil {
		return "execution reverted: " + reason
	}
	if len(e.Data) > 0 {
		return "execution reverted: " + hexutil.Encode(e.Data)
	}
	if e.Message != "" {
		return e.Message
	}
	return "execution reverted"
}

// ErrNodeUnavailable wraps failures to reach a node or read its answer.
// Errors the node itself reports do not carry it.
var ErrNodeUnavailable = errors.New("node unavailable")

// IsRevert reports whether err is (or wraps) a *RevertError.
func IsRevert(err error) bool {
	var rev *RevertError
	return errors.As(err, &rev)
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// Call executes msg via eth_call against the latest block and returns the
// return data. Reverts are reported as *RevertError.
func (c *EVMClient) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	params := map[string]string{
		"to":   msg.To.Hex(),
		"data": hexutil.Encode(msg.Data),
	}
	if msg.From != (common.Address{}) {
		params["from"] = msg.From.Hex()
	}
	if msg.Value != nil && msg.Value.Sign() > 0 {
		params["value"] = hexutil.EncodeBig(msg.Value)
	}
	if msg.Gas > 0 {
		params["gas"] = hexutil.EncodeUint64(msg.Gas)
	}

	raw, err := c.callCtx(ctx, "eth_call", params, "latest")
	if err != nil {
		return nil, err
	}

	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing eth_call result: %w", err)
	}
	return out, nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (uint64, error) {
	return c.quantity(ctx, "eth_chainId")
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.quantity(ctx, "eth_blockNumber")
}

// GetCode returns the runtime bytecode at address. Empty means no contract.
func (c *EVMClient) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	raw, err := c.callCtx(ctx, "eth_getCode", address.Hex(), "latest")
	if err != nil {
		return nil, err
	}
	var code hexutil.Bytes
	if err := json.Unmarshal(raw, &code); err != nil {
		return nil, fmt.Errorf("parsing code: %w", err)
	}
	return code, nil
}

func (c *EVMClient) quantity(ctx context.Context, method string) (uint64, error) {
	raw, err := c.callCtx(ctx, method)
	if err != nil {
		return 0, err
	}
	var n hexutil.Uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("parsing %s result: %w", method, err)
	}
	return uint64(n), nil
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// revertCode is the JSON-RPC error code geth-compatible nodes use for reverts.
const revertCode = 3

func (e *rpcError) asRevert() (*RevertError, bool) {
	if e.Code != revertCode && !strings.Contains(e.Message, "revert") {
		return nil, false
	}
	rev := &RevertError{Message: e.Message}
	var dataHex string
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &dataHex) == nil {
		if data, err := hexutil.Decode(dataHex); err == nil {
			rev.Data = data
		}
	}
	return rev, true
}

func (c *EVMClient) callCtx(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: RPC request failed: %w", ErrNodeUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrNodeUnavailable, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %w", ErrNodeUnavailable, err)
	}

	if rpcResp.Error != nil {
		if rev, ok := rpcResp.Error.asRevert(); ok {
			return nil, rev
		}
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
