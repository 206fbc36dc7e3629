package call

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/multicall"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrShortCalldata is returned for calldata without a full selector.
	ErrShortCalldata = errors.New("calldata shorter than a selector")
	// ErrAmbiguousSelector is returned when several scripts share the
	// selector and the target address does not identify one of them.
	ErrAmbiguousSelector = errors.New("selector matches several scripts")
)

// Decoder turns raw script calldata into Calls.
type Decoder struct {
	deployments *scripts.Deployments
	book        *AddressBook
}

// NewDecoder returns a Decoder resolving script targets through deployments
// and naming addresses through book. Either may be nil.
func NewDecoder(deployments *scripts.Deployments, book *AddressBook) *Decoder {
	if deployments == nil {
		deployments = scripts.DefaultDeployments()
	}
	if book == nil {
		book = NewAddressBook()
	}
	return &Decoder{deployments: deployments, book: book}
}

// Decode describes calldata sent to to. The zero address means the target
// is unknown; the selector alone then has to identify the script. Unknown
// selectors yield a Call with Known() == false rather than an error.
func (d *Decoder) Decode(to common.Address, calldata []byte) (Call, error) {
	if len(calldata) < 4 {
		return Call{}, fmt.Errorf("%w: %d bytes", ErrShortCalldata, len(calldata))
	}
	var sel [4]byte
	copy(sel[:], calldata[:4])

	raw := bytes.Clone(calldata)
	unknown := Call{Selector: sel, Target: targetOf(d.book, to), Raw: raw}

	match, ok, err := d.resolve(to, sel)
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return unknown, nil
	}

	c := Call{
		Script:   match.Script.Name,
		Method:   match.Method.RawName,
		Target:   unknown.Target,
		Selector: sel,
		Raw:      raw,
	}

	if c.Script == "Multicall" {
		run, err := multicall.DecodeRun(calldata)
		if err != nil {
			return Call{}, fmt.Errorf("decoding Multicall.run: %w", err)
		}
		for i := range run.CallContracts {
			in, err := d.Decode(run.CallContracts[i], run.CallDatas[i])
			if err != nil {
				return Call{}, fmt.Errorf("multicall call %d: %w", i, err)
			}
			c.Inner = append(c.Inner, in)
		}
		return c, nil
	}

	vals, err := match.Method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return Call{}, fmt.Errorf("unpacking %s.%s: %w", c.Script, c.Method, err)
	}

	for i, input := range match.Method.Inputs {
		c.Args = append(c.Args, Arg{
			Name:  input.Name,
			Type:  input.Type.String(),
			Value: d.render(input.Type, vals[i]),
		})
	}

	if _, wraps := paymentArgs[c.Script]; wraps {
		d.decodeWrapped(&c, vals)
	}
	return c, nil
}

// decodeWrapped decodes the callData argument of a payment wrapper against
// its callContract. A failure is kept on the argument.
func (d *Decoder) decodeWrapped(c *Call, vals []interface{}) {
	target, ok := vals[0].(common.Address)
	if !ok {
		return
	}
	data, ok := vals[1].([]byte)
	if !ok {
		return
	}
	inner, err := d.Decode(target, data)
	for i := range c.Args {
		if c.Args[i].Name != "callData" {
			continue
		}
		if err != nil {
			c.Args[i].Err = err
		} else {
			c.Args[i].Call = &inner
		}
	}
}

func (d *Decoder) resolve(to common.Address, sel [4]byte) (scripts.Match, bool, error) {
	matches := scripts.Lookup(sel)

	if s, deployed := d.deployments.ScriptAt(to); deployed {
		for _, m := range matches {
			if m.Script.Name == s.Name {
				return m, true, nil
			}
		}
		return scripts.Match{}, false, nil
	}

	switch len(matches) {
	case 0:
		return scripts.Match{}, false, nil
	case 1:
		return matches[0], true, nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Script.Name
	}
	return scripts.Match{}, false, fmt.Errorf("%w: %s", ErrAmbiguousSelector, strings.Join(names, ", "))
}

func (d *Decoder) render(t abi.Type, v interface{}) string {
	switch t.T {
	case abi.AddressTy:
		if addr, ok := v.(common.Address); ok {
			return d.book.Render(addr)
		}
	case abi.FixedBytesTy:
		if t.Size == 32 {
			if word, ok := v.([32]byte); ok {
				return d.renderWord(word)
			}
		}
	case abi.UintTy, abi.IntTy:
		if n, ok := v.(*big.Int); ok {
			return n.String()
		}
	case abi.BytesTy:
		if b, ok := v.([]byte); ok {
			return hexutil.Encode(b)
		}
	case abi.SliceTy, abi.ArrayTy:
		return d.renderList(*t.Elem, v)
	}
	return fmt.Sprint(v)
}

// renderWord shows left-padded addresses (e.g. CCTP mint recipients) as
// addresses and anything else as hex.
func (d *Decoder) renderWord(word [32]byte) string {
	var zero [12]byte
	if word != [32]byte{} && [12]byte(word[:12]) == zero {
		return d.book.Render(common.BytesToAddress(word[12:]))
	}
	return hexutil.Encode(word[:])
}

func (d *Decoder) renderList(elem abi.Type, v interface{}) string {
	var parts []string
	switch list := v.(type) {
	case []common.Address:
		for _, a := range list {
			parts = append(parts, d.render(elem, a))
		}
	case []*big.Int:
		for _, n := range list {
			parts = append(parts, d.render(elem, n))
		}
	case [][]byte:
		for _, b := range list {
			parts = append(parts, d.render(elem, b))
		}
	case []string:
		parts = list
	default:
		return fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
