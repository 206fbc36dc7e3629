package multicall

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// RevertSet is the set of custom errors declared by Multicall.
type RevertSet struct {
	AlreadyInitialized abi.Error
	InvalidCallContext abi.Error
	InvalidInput       abi.Error
	MulticallError     abi.Error
}

// Reverts holds Multicall's revert reasons as parsed from the ABI.
var Reverts = RevertSet{
	AlreadyInitialized: ABI.Errors["AlreadyInitialized"],
	InvalidCallContext: ABI.Errors["InvalidCallContext"],
	InvalidInput:       ABI.Errors["InvalidInput"],
	MulticallError:     ABI.Errors["MulticallError"],
}

// All returns the four errors in declaration order.
func (s RevertSet) All() []abi.Error {
	return []abi.Error{s.AlreadyInitialized, s.InvalidCallContext, s.InvalidInput, s.MulticallError}
}

var (
	// ErrAlreadyInitialized mirrors AlreadyInitialized().
	ErrAlreadyInitialized = errors.New("multicall: already initialized")
	// ErrInvalidCallContext mirrors InvalidCallContext(); run was not delegatecalled.
	ErrInvalidCallContext = errors.New("multicall: invalid call context")
	// ErrInvalidInput mirrors InvalidInput(); contracts and calldatas differ in length.
	ErrInvalidInput = errors.New("multicall: invalid input")
)

// CallError mirrors MulticallError(callIndex, callContract, err): one of the
// sub-calls reverted and Multicall bubbled its revert data up.
type CallError struct {
	CallIndex    *big.Int
	CallContract common.Address
	Err          []byte
}

func (e *CallError) Error() string {
	return fmt.Sprintf("multicall: call %s to %s reverted: %s", e.CallIndex, e.CallContract.Hex(), describeRevert(e.Err))
}

// Unwrap decodes the nested revert data when it is itself a Multicall error.
func (e *CallError) Unwrap() error {
	inner := DecodeRevert(e.Err)
	var unknown *UnknownRevertError
	if errors.As(inner, &unknown) {
		return nil
	}
	return inner
}

// UnknownRevertError is returned by DecodeRevert for payloads that are not
// one of Multicall's errors.
type UnknownRevertError struct {
	Data []byte
}

func (e *UnknownRevertError) Error() string {
	return "multicall: unknown revert " + describeRevert(e.Data)
}

// DecodeRevert maps revert data to ErrAlreadyInitialized,
// ErrInvalidCallContext, ErrInvalidInput or a *CallError. Anything else is
// wrapped in *UnknownRevertError.
func DecodeRevert(data []byte) error {
	if len(data) < 4 {
		return &UnknownRevertError{Data: data}
	}
	sel := data[:4]
	switch {
	case bytes.Equal(sel, Reverts.AlreadyInitialized.ID[:4]):
		return ErrAlreadyInitialized
	case bytes.Equal(sel, Reverts.InvalidCallContext.ID[:4]):
		return ErrInvalidCallContext
	case bytes.Equal(sel, Reverts.InvalidInput.ID[:4]):
		return ErrInvalidInput
	case bytes.Equal(sel, Reverts.MulticallError.ID[:4]):
		vals, err := Reverts.MulticallError.Inputs.Unpack(data[4:])
		if err != nil {
			return &UnknownRevertError{Data: data}
		}
		return &CallError{
			CallIndex:    vals[0].(*big.Int),
			CallContract: vals[1].(common.Address),
			Err:          vals[2].([]byte),
		}
	}
	return &UnknownRevertError{Data: data}
}

// EncodeRevert builds the revert payload for err. err must be one of the
// sentinels or a *CallError.
func EncodeRevert(err error) ([]byte, error) {
	var callErr *CallError
	switch {
	case errors.As(err, &callErr):
		args, packErr := Reverts.MulticallError.Inputs.Pack(callErr.CallIndex, callErr.CallContract, callErr.Err)
		if packErr != nil {
			return nil, fmt.Errorf("packing MulticallError: %w", packErr)
		}
		return append(common.CopyBytes(Reverts.MulticallError.ID[:4]), args...), nil
	case errors.Is(err, ErrAlreadyInitialized):
		return common.CopyBytes(Reverts.AlreadyInitialized.ID[:4]), nil
	case errors.Is(err, ErrInvalidCallContext):
		return common.CopyBytes(Reverts.InvalidCallContext.ID[:4]), nil
	case errors.Is(err, ErrInvalidInput):
		return common.CopyBytes(Reverts.InvalidInput.ID[:4]), nil
	}
	return nil, fmt.Errorf("multicall: %v has no revert encoding", err)
}

// describeRevert renders Error(string) reverts as their reason and anything
// else as hex.
func describeRevert(data []byte) string {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return fmt.Sprintf("%q", reason)
	}
	if len(data) == 0 {
		return "(empty)"
	}
	return "0x" + hex.EncodeToString(data)
}
