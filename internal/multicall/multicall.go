// Package multicall wraps the Multicall script ABI: encoding and decoding of
// run(address[],bytes[]) and of the four custom errors it reverts with.
package multicall

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/Multicall.json
var multicallJSON []byte

// ABI is the parsed Multicall ABI.
var ABI = mustParse(multicallJSON)

// Run is a decoded run(address[] callContracts, bytes[] callDatas) invocation.
type Run struct {
	CallContracts []common.Address
	CallDatas     [][]byte
}

// Len returns the number of sub-calls.
func (r *Run) Len() int { return len(r.CallContracts) }

func mustParse(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("multicall: parsing embedded ABI: %v", err))
	}
	return parsed
}

// Selector returns the 4-byte selector of run(address[],bytes[]).
func Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], ABI.Methods["run"].ID)
	return sel
}

// EncodeRun builds calldata for run(callContracts, callDatas).
// Mismatched slice lengths fail with ErrInvalidInput, the same check the
// contract performs before executing anything.
func EncodeRun(callContracts []common.Address, callDatas [][]byte) ([]byte, error) {
	if len(callContracts) != len(callDatas) {
		return nil, fmt.Errorf("%w: %d contracts, %d calldatas", ErrInvalidInput, len(callContracts), len(callDatas))
	}
	if callContracts == nil {
		callContracts = []common.Address{}
	}
	if callDatas == nil {
		callDatas = [][]byte{}
	}
	data, err := ABI.Pack("run", callContracts, callDatas)
	if err != nil {
		return nil, fmt.Errorf("packing run: %w", err)
	}
	return data, nil
}

// DecodeRun parses run calldata (selector included).
func DecodeRun(calldata []byte) (*Run, error) {
	method := ABI.Methods["run"]
	if len(calldata) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(calldata))
	}
	if !bytes.Equal(calldata[:4], method.ID) {
		return nil, fmt.Errorf("selector %#x is not Multicall.run", calldata[:4])
	}

	vals, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, fmt.Errorf("unpacking run: %w", err)
	}
	contracts, ok := vals[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected callContracts type %T", vals[0])
	}
	datas, ok := vals[1].([][]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected callDatas type %T", vals[1])
	}
	if len(contracts) != len(datas) {
		return nil, fmt.Errorf("%w: %d contracts, %d calldatas", ErrInvalidInput, len(contracts), len(datas))
	}
	return &Run{CallContracts: contracts, CallDatas: datas}, nil
}

// EncodeResults ABI-encodes the bytes[] returned by run.
func EncodeResults(results [][]byte) ([]byte, error) {
	if results == nil {
		results = [][]byte{}
	}
	return ABI.Methods["run"].Outputs.Pack(results)
}

// DecodeResults unpacks the bytes[] returned by run.
func DecodeResults(ret []byte) ([][]byte, error) {
	vals, err := ABI.Methods["run"].Outputs.Unpack(ret)
	if err != nil {
		return nil, fmt.Errorf("unpacking run results: %w", err)
	}
	out, ok := vals[0].([][]byte)
	if !ok {
		return nil, errors.New("unexpected run result type")
	}
	return out, nil
}
