// Package call reconstructs human-readable descriptions of the script calls
// the builder emits from their raw calldata.
package call

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Arg is one decoded argument.
type Arg struct {
	Name  string
	Type  string // canonical ABI type, e.g. "uint256"
	Value string // rendered value
	Call  *Call  // set when the argument is itself decodable calldata
	Err   error  // set when wrapped calldata failed to decode
}

// Call is a decoded script call.
type Call struct {
	Script   string // catalogue name; empty when the selector is unknown
	Method   string
	Target   string // rendered call target, empty when not known
	Selector [4]byte
	Args     []Arg
	Inner    []Call // Multicall sub-calls, in execution order
	Raw      []byte // the calldata as given
}

// DecodeErr returns the first wrapped-calldata decode failure found in c
// or its sub-calls.
func (c Call) DecodeErr() error {
	for _, a := range c.Args {
		if a.Err != nil {
			return fmt.Errorf("%s.%s %s: %w", c.Script, c.Method, a.Name, a.Err)
		}
		if a.Call != nil {
			if err := a.Call.DecodeErr(); err != nil {
				return err
			}
		}
	}
	for _, in := range c.Inner {
		if err := in.DecodeErr(); err != nil {
			return err
		}
	}
	return nil
}

// Known reports whether the call matched a catalogued script.
func (c Call) Known() bool { return c.Script != "" }

// Arg returns the named argument.
func (c Call) Arg(name string) (Arg, bool) {
	for _, a := range c.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// String renders the call in the canonical form used by scenario fixtures:
//
//	TransferActions.transferERC20Token(token=USDC, recipient=bob, amount=1000000)
//	Multicall.run(WrapperActions.wrapETH(...), CometSupplyActions.supply(...))
func (c Call) String() string {
	if !c.Known() {
		s := "unknown(selector=0x" + hex.EncodeToString(c.Selector[:])
		if c.Target != "" {
			s += ", to=" + c.Target
		}
		return s + ")"
	}

	var parts []string
	if len(c.Inner) > 0 {
		for _, in := range c.Inner {
			parts = append(parts, in.String())
		}
	} else {
		for _, a := range c.Args {
			v := a.Value
			if a.Call != nil {
				v = a.Call.String()
			}
			parts = append(parts, a.Name+"="+v)
		}
	}
	return fmt.Sprintf("%s.%s(%s)", c.Script, c.Method, strings.Join(parts, ", "))
}

// Tree renders the call over several lines, nesting sub-calls.
func (c Call) Tree() string {
	var sb strings.Builder
	c.writeTree(&sb, "")
	return sb.String()
}

func (c Call) writeTree(sb *strings.Builder, indent string) {
	if !c.Known() {
		sb.WriteString(indent + c.String() + "\n")
		return
	}
	sb.WriteString(fmt.Sprintf("%s%s.%s\n", indent, c.Script, c.Method))
	for _, a := range c.Args {
		if a.Call != nil {
			sb.WriteString(fmt.Sprintf("%s  %s:\n", indent, a.Name))
			a.Call.writeTree(sb, indent+"    ")
			continue
		}
		if a.Err != nil {
			sb.WriteString(fmt.Sprintf("%s  %s: %s (undecodable: %v)\n", indent, a.Name, a.Value, a.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s  %s: %s\n", indent, a.Name, a.Value))
	}
	for i, in := range c.Inner {
		sb.WriteString(fmt.Sprintf("%s  [%d]\n", indent, i))
		in.writeTree(sb, indent+"    ")
	}
}

// Payment describes the payment wrapper around an operation.
type Payment struct {
	Script string // "Paycall" or "Quotecall"
	Arg    string // "maxPaymentCost" or "quotedAmount"
	Amount string
}

func (p Payment) String() string {
	return fmt.Sprintf("%s(%s=%s)", p.Script, p.Arg, p.Amount)
}

var paymentArgs = map[string]string{
	"Paycall":   "maxPaymentCost",
	"Quotecall": "quotedAmount",
}

// Unwrap strips a Paycall/Quotecall wrapper and flattens (nested)
// Multicalls, returning the payment (nil when unwrapped) and the effective
// calls in execution order.
func Unwrap(c Call) (*Payment, []Call) {
	var payment *Payment
	if argName, ok := paymentArgs[c.Script]; ok && c.Method == "run" {
		amount, _ := c.Arg(argName)
		payment = &Payment{Script: c.Script, Arg: argName, Amount: amount.Value}
		if inner, ok := c.Arg("callData"); ok && inner.Call != nil {
			c = *inner.Call
		} else {
			return payment, nil
		}
	}
	return payment, flatten(c)
}

func flatten(c Call) []Call {
	if c.Script != "Multicall" {
		return []Call{c}
	}
	var out []Call
	for _, in := range c.Inner {
		out = append(out, flatten(in)...)
	}
	return out
}

// Strings renders calls with String.
func Strings(calls []Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

func targetOf(book *AddressBook, to common.Address) string {
	if to == (common.Address{}) {
		return ""
	}
	return book.Render(to)
}
