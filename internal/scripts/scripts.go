// Package scripts is the catalogue of Quark scripts the builder emits calls
// to. Each script's ABI is embedded; selectors are indexed so raw calldata
// can be matched back to a (script, method) pair.
package scripts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/Mohsinsiddi/quarkcheck/internal/multicall"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrUnknownScript is returned when a script name is not in the catalogue.
var ErrUnknownScript = errors.New("unknown script")

//go:embed abi/*.json
var abiFS embed.FS

// Script is one entry of the catalogue.
type Script struct {
	Name        string  // contract name, e.g. "TransferActions"
	Description string  // one-line summary shown by `quarkcheck scripts`
	ABI         abi.ABI // parsed ABI
}

// Match pairs a script with the method whose selector matched.
type Match struct {
	Script *Script
	Method *abi.Method
}

var (
	catalogue  = map[string]*Script{}
	bySelector = map[[4]byte][]Match{}
)

// Function selectors:
//
//	Multicall.run(address[],bytes[])
//	TransferActions.transferNativeToken(address,uint256)
//	TransferActions.transferERC20Token(address,address,uint256)
//	CometSupplyActions.supply / supplyTo / supplyMultipleAssets
//	CometWithdrawActions.withdraw / withdrawTo / withdrawMultipleAssets
//	CometRepayAndWithdrawMultipleAssets.run(address,address[],uint256[],address,uint256)
//	CometSupplyMultipleAssetsAndBorrow.run(address,address[],uint256[],address,uint256)  (same selector as above)
//	CCTPBridgeActions.bridgeUSDC(address,uint256,uint32,bytes32,address)
//	WrapperActions.wrapETH / wrapAllETH / unwrapWETH / unwrapAllWETH
//	ApproveAndSwap.run(address,address,uint256,address,uint256,bytes)
//	Paycall.run(address,bytes,uint256)
//	Quotecall.run(address,bytes,uint256)  (same selector as Paycall)
func init() {
	register(&Script{Name: "Multicall", Description: "Batch several script calls into one operation", ABI: multicall.ABI})
	registerEmbedded("TransferActions", "Native and ERC-20 transfers")
	registerEmbedded("CometSupplyActions", "Supply assets to a Comet market")
	registerEmbedded("CometWithdrawActions", "Withdraw assets from a Comet market")
	registerEmbedded("CometRepayAndWithdrawMultipleAssets", "Repay Comet base debt and withdraw collateral")
	registerEmbedded("CometSupplyMultipleAssetsAndBorrow", "Supply Comet collateral and borrow the base asset")
	registerEmbedded("CCTPBridgeActions", "Bridge USDC through Circle CCTP")
	registerEmbedded("WrapperActions", "Wrap and unwrap native ETH")
	registerEmbedded("ApproveAndSwap", "Approve a router and execute a swap")
	registerEmbedded("Paycall", "Wrap a call and pay its gas in a token, capped by a max cost")
	registerEmbedded("Quotecall", "Wrap a call and pay a pre-quoted amount in a token")
}

func registerEmbedded(name, description string) {
	data, err := abiFS.ReadFile(path.Join("abi", name+".json"))
	if err != nil {
		panic(fmt.Sprintf("scripts: reading ABI %s: %v", name, err))
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("scripts: parsing ABI %s: %v", name, err))
	}
	register(&Script{Name: name, Description: description, ABI: parsed})
}

func register(s *Script) {
	catalogue[s.Name] = s
	for _, name := range sortedMethodNames(s.ABI) {
		m := s.ABI.Methods[name]
		var sel [4]byte
		copy(sel[:], m.ID)
		bySelector[sel] = append(bySelector[sel], Match{Script: s, Method: &m})
	}
}

func sortedMethodNames(a abi.ABI) []string {
	names := make([]string, 0, len(a.Methods))
	for name := range a.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a script by name.
func Get(name string) (*Script, error) {
	s, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	return s, nil
}

// All returns every script sorted by name.
func All() []*Script {
	out := make([]*Script, 0, len(catalogue))
	for _, s := range catalogue {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns every (script, method) pair whose selector is sel, ordered
// by script name. More than one match means the selector is shared and the
// target address is needed to tell them apart.
func Lookup(sel [4]byte) []Match {
	matches := append([]Match(nil), bySelector[sel]...)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Script.Name < matches[j].Script.Name })
	return matches
}

// Methods returns the script's methods sorted by name.
func (s *Script) Methods() []abi.Method {
	names := sortedMethodNames(s.ABI)
	out := make([]abi.Method, 0, len(names))
	for _, name := range names {
		out = append(out, s.ABI.Methods[name])
	}
	return out
}
