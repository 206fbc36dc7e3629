package builder

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Error is a decoded builder revert. Name is empty when the payload did not
// match any known error; Data always holds the raw payload.
type Error struct {
	Name string
	Args []interface{}
	Data []byte
}

func (e *Error) Error() string {
	return "builder reverted: " + e.String()
}

// String renders the revert as Name(arg, ...), the form scenarios expect.
func (e *Error) String() string {
	if e.Name == "" {
		if len(e.Data) == 0 {
			return "(empty revert)"
		}
		return hexutil.Encode(e.Data)
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = formatArg(a)
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Is matches another *Error by name so callers can write
// errors.Is(err, &builder.Error{Name: "MaxCostTooHigh"}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Name != "" && t.Name == e.Name
}

func formatArg(a interface{}) string {
	switch v := a.(type) {
	case *big.Int:
		return v.String()
	case common.Address:
		return v.Hex()
	case []byte:
		return hexutil.Encode(v)
	case string:
		return v
	}
	return fmt.Sprint(a)
}

// ErrorNames returns the builder's custom error names, sorted.
func ErrorNames() []string {
	names := make([]string, 0, len(ABI.Errors))
	for name := range ABI.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeError maps revert data to an *Error. Error(string) reverts are
// reported with Name "Error" and the reason as the only argument.
func DecodeError(data []byte) *Error {
	out := &Error{Data: common.CopyBytes(data)}
	if len(data) < 4 {
		return out
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		out.Name = "Error"
		out.Args = []interface{}{reason}
		return out
	}
	for _, name := range ErrorNames() {
		e := ABI.Errors[name]
		if !bytes.Equal(data[:4], e.ID[:4]) {
			continue
		}
		args, err := e.Inputs.Unpack(data[4:])
		if err != nil {
			return out
		}
		out.Name = name
		out.Args = args
		return out
	}
	return out
}

// EncodeError builds the revert payload of a builder custom error.
func EncodeError(name string, args ...interface{}) ([]byte, error) {
	e, ok := ABI.Errors[name]
	if !ok {
		return nil, fmt.Errorf("unknown builder error %q", name)
	}
	packed, err := e.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", name, err)
	}
	return append(common.CopyBytes(e.ID[:4]), packed...), nil
}
