package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
		} else {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// rpcErrorServer creates a test HTTP server that always returns a JSON-RPC error.
func rpcErrorServer(t *testing.T, rpcErr map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct{ ID int `json:"id"` }
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   rpcErr,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// rpcBadJSON creates a server that returns malformed JSON.
func rpcBadJSON(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func errorStringPayload(t *testing.T, reason string) []byte {
	t.Helper()
	stringTy, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringTy}}.Pack(reason)
	require.NoError(t, err)
	return append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...)
}

// ---------------------------------------------------------------------------
// Call
// ---------------------------------------------------------------------------

func TestCallReturnsData(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_call": "0xdeadbeef"})
	c := NewEVMClient(srv.URL)

	out, err := c.Call(context.Background(), CallMsg{
		To:   common.HexToAddress("0x01"),
		Data: []byte{0x01, 0x02},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out)
}

func TestCallSendsParams(t *testing.T) {
	var got struct {
		Params []json.RawMessage `json:"params"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	_, err := c.Call(context.Background(), CallMsg{
		From:  common.HexToAddress("0xaa"),
		To:    common.HexToAddress("0xbb"),
		Data:  []byte{0xca, 0xfe},
		Value: big.NewInt(16),
		Gas:   30_000_000,
	})
	require.NoError(t, err)
	require.Len(t, got.Params, 2)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(got.Params[0], &msg))
	assert.Equal(t, common.HexToAddress("0xaa").Hex(), msg["from"])
	assert.Equal(t, common.HexToAddress("0xbb").Hex(), msg["to"])
	assert.Equal(t, "0xcafe", msg["data"])
	assert.Equal(t, "0x10", msg["value"])
	assert.Equal(t, "0x1c9c380", msg["gas"])
	assert.JSONEq(t, `"latest"`, string(got.Params[1]))
}

func TestCallRevertWithData(t *testing.T) {
	payload := errorStringPayload(t, "nope")
	srv := rpcErrorServer(t, map[string]interface{}{
		"code":    3,
		"message": "execution reverted: nope",
		"data":    "0x" + common.Bytes2Hex(payload),
	})
	c := NewEVMClient(srv.URL)

	_, err := c.Call(context.Background(), CallMsg{To: common.HexToAddress("0x01")})
	require.Error(t, err)
	assert.True(t, IsRevert(err))

	var rev *RevertError
	require.ErrorAs(t, err, &rev)
	assert.Equal(t, payload, rev.Data)
	assert.Equal(t, "execution reverted: nope", rev.Error())
}

func TestCallRevertWithoutData(t *testing.T) {
	srv := rpcErrorServer(t, map[string]interface{}{
		"code":    -32000,
		"message": "execution reverted",
	})
	c := NewEVMClient(srv.URL)

	_, err := c.Call(context.Background(), CallMsg{To: common.HexToAddress("0x01")})
	var rev *RevertError
	require.ErrorAs(t, err, &rev)
	assert.Empty(t, rev.Data)
	assert.Equal(t, "execution reverted", rev.Error())
}

func TestCallCustomErrorRendersHex(t *testing.T) {
	rev := &RevertError{Data: []byte{0x12, 0x34, 0x56, 0x78}}
	assert.Equal(t, "execution reverted: 0x12345678", rev.Error())
}

func TestCallRPCError(t *testing.T) {
	srv := rpcErrorServer(t, map[string]interface{}{"code": -32602, "message": "invalid params"})
	c := NewEVMClient(srv.URL)

	_, err := c.Call(context.Background(), CallMsg{To: common.HexToAddress("0x01")})
	require.Error(t, err)
	assert.False(t, IsRevert(err))
	assert.NotErrorIs(t, err, ErrNodeUnavailable)
	assert.Contains(t, err.Error(), "RPC error -32602: invalid params")
}

func TestCallBadJSON(t *testing.T) {
	c := NewEVMClient(rpcBadJSON(t).URL)
	_, err := c.Call(context.Background(), CallMsg{To: common.HexToAddress("0x01")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeUnavailable)
	assert.Contains(t, err.Error(), "parsing response")
}

func TestCallUnreachable(t *testing.T) {
	c := NewEVMClient("http://127.0.0.1:1")
	_, err := c.Call(context.Background(), CallMsg{To: common.HexToAddress("0x01")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeUnavailable)
	assert.Contains(t, err.Error(), "RPC request failed")
}

func TestCallContextCancelled(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_call": "0x"})
	c := NewEVMClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Call(ctx, CallMsg{To: common.HexToAddress("0x01")})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// quantities and code
// ---------------------------------------------------------------------------

func TestChainIDAndBlockNumber(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_chainId":     "0x2105",
		"eth_blockNumber": "0x10",
	})
	c := NewEVMClient(srv.URL)

	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8453), id)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
}

func TestChainIDBadQuantity(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_chainId": "zz"})
	_, err := NewEVMClient(srv.URL).ChainID(context.Background())
	assert.Error(t, err)
}

func TestGetCode(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getCode": "0x6001"})
	code, err := NewEVMClient(srv.URL).GetCode(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, code)
}
