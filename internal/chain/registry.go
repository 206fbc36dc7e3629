package chain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrChainNotFound is returned when a chain is not in the registry.
	ErrChainNotFound = errors.New("chain not found")
	// ErrUnknownAsset is returned when a symbol is not listed on a chain.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrUnknownComet is returned when a Comet market is not listed on a chain.
	ErrUnknownComet = errors.New("unknown comet market")
)

// NativeETH is the sentinel address Quark uses for the native asset.
var NativeETH = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Asset is a token known on a chain.
type Asset struct {
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Address  common.Address `json:"address"`
	USDPrice string         `json:"usd_price"` // decimal dollars, overridable per scenario
}

// IsNative reports whether the asset is the chain's native currency.
func (a Asset) IsNative() bool { return a.Address == NativeETH }

// Comet is a Compound III market.
type Comet struct {
	Name        string         `json:"name"` // e.g. "cUSDCv3"
	Address     common.Address `json:"address"`
	BaseSymbol  string         `json:"base_symbol"`
	Collaterals []string       `json:"collaterals"`
}

// Chain holds the metadata the builder needs for a single network.
type Chain struct {
	Name           string         `json:"name"`
	DisplayName    string         `json:"display_name"`
	ChainID        uint64         `json:"chain_id"`
	Testnet        bool           `json:"testnet"`
	CCTPDomain     uint32         `json:"cctp_domain"`
	TokenMessenger common.Address `json:"token_messenger"`
	Assets         []Asset        `json:"assets"`
	Comets         []Comet        `json:"comets"`
}

// Asset looks up an asset by symbol (case-insensitive).
func (c *Chain) Asset(symbol string) (Asset, error) {
	for _, a := range c.Assets {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s on %s", ErrUnknownAsset, symbol, c.Name)
}

// Comet looks up a Comet market by name or base symbol.
func (c *Chain) Comet(name string) (Comet, error) {
	for _, m := range c.Comets {
		if strings.EqualFold(m.Name, name) || strings.EqualFold(m.BaseSymbol, name) {
			return m, nil
		}
	}
	return Comet{}, fmt.Errorf("%w: %s on %s", ErrUnknownComet, name, c.Name)
}

// Registry is the network registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[uint64]*Chain
}

// NewRegistry creates the registry of every supported network.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[uint64]*Chain, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
	}
	return r
}

// All returns every chain sorted by chain ID.
func (r *Registry) All() []Chain {
	out := append([]Chain(nil), r.chains...)
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// GetByName finds a chain by its slug name (e.g. "base", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, name)
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain ID.
func (r *Registry) GetByChainID(id uint64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: chain id %d", ErrChainNotFound, id)
	}
	return c, nil
}

// --- chain data ---

func eth() Asset {
	return Asset{Symbol: "ETH", Decimals: 18, Address: NativeETH, USDPrice: "3000"}
}

func weth(addr string) Asset {
	return Asset{Symbol: "WETH", Decimals: 18, Address: common.HexToAddress(addr), USDPrice: "3000"}
}

func usdc(addr string) Asset {
	return Asset{Symbol: "USDC", Decimals: 6, Address: common.HexToAddress(addr), USDPrice: "1"}
}

func allChains() []Chain {
	return []Chain{
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1,
			CCTPDomain:     0,
			TokenMessenger: common.HexToAddress("0xBd3fa81B58Ba92a82136038B25aDec7066af3155"),
			Assets: []Asset{
				eth(),
				weth("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				usdc("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				{Symbol: "USDT", Decimals: 6, Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), USDPrice: "1"},
				{Symbol: "LINK", Decimals: 18, Address: common.HexToAddress("0x514910771AF9Ca656af840dff83E8264EcF986CA"), USDPrice: "15"},
			},
			Comets: []Comet{
				{Name: "cUSDCv3", Address: common.HexToAddress("0xc3d688B66703497DAA19211EEdff47f25384cdc3"), BaseSymbol: "USDC", Collaterals: []string{"WETH", "LINK"}},
				{Name: "cWETHv3", Address: common.HexToAddress("0xA17581A9E3356d9A858b789D68B4d866e593aE94"), BaseSymbol: "WETH", Collaterals: []string{"LINK"}},
			},
		},
		{
			Name: "optimism", DisplayName: "Optimism", ChainID: 10,
			CCTPDomain:     2,
			TokenMessenger: common.HexToAddress("0x2B4069517957735bE00ceE0fadAE88a26365528f"),
			Assets: []Asset{
				eth(),
				weth("0x4200000000000000000000000000000000000006"),
				usdc("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
			},
			Comets: []Comet{
				{Name: "cUSDCv3", Address: common.HexToAddress("0x2e44e174f7D53F0212823acC11C01A11d58c5bCB"), BaseSymbol: "USDC", Collaterals: []string{"WETH"}},
			},
		},
		{
			Name: "base", DisplayName: "Base", ChainID: 8453,
			CCTPDomain:     6,
			TokenMessenger: common.HexToAddress("0x1682Ae6375C4E4A97e4B583BC394c861A46D8962"),
			Assets: []Asset{
				eth(),
				weth("0x4200000000000000000000000000000000000006"),
				usdc("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			},
			Comets: []Comet{
				{Name: "cUSDCv3", Address: common.HexToAddress("0xb125E6687d4313864e53df431d5425969c15Eb2F"), BaseSymbol: "USDC", Collaterals: []string{"WETH"}},
				{Name: "cWETHv3", Address: common.HexToAddress("0x46e6b214b524310239732D51387075E0e70970bf"), BaseSymbol: "WETH", Collaterals: []string{}},
			},
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum One", ChainID: 42161,
			CCTPDomain:     3,
			TokenMessenger: common.HexToAddress("0x19330d10D9Cc8751218eaf51E8885D058642E08A"),
			Assets: []Asset{
				eth(),
				weth("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
				usdc("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
			},
			Comets: []Comet{
				{Name: "cUSDCv3", Address: common.HexToAddress("0x9c4ec768c28520B50860ea7a15bd7213a9fF58bf"), BaseSymbol: "USDC", Collaterals: []string{"WETH"}},
			},
		},
		{
			Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: 84532, Testnet: true,
			CCTPDomain:     6,
			TokenMessenger: common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"),
			Assets: []Asset{
				eth(),
				weth("0x4200000000000000000000000000000000000006"),
				usdc("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
			},
			Comets: []Comet{
				{Name: "cUSDCv3", Address: common.HexToAddress("0x571621Ce60Cebb0c1D442B5afb38B1663C6Bf017"), BaseSymbol: "USDC", Collaterals: []string{"WETH"}},
			},
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, Testnet: true,
			CCTPDomain:     0,
			TokenMessenger: common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"),
			Assets: []Asset{
				eth(),
				weth("0x2D5ee574e710219a521449679A4A7f2B43f046ad"),
				usdc("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
			},
			Comets: []Comet{
				{Name: "cUSDCv3", Address: common.HexToAddress("0xAec1F48e02Cfb822Be958B68C7957156EB3F0b6e"), BaseSymbol: "USDC", Collaterals: []string{"WETH"}},
			},
		},
	}
}
