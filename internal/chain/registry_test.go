package chain_test

import (
	"testing"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasAllChains(t *testing.T) {
	registry := chain.NewRegistry()
	assert.Equal(t, 6, len(registry.All()))
}

func TestRegistryAllSortedByChainID(t *testing.T) {
	all := chain.NewRegistry().All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ChainID, all[i].ChainID)
	}
}

func TestRegistryGetByName(t *testing.T) {
	registry := chain.NewRegistry()

	tests := []struct {
		name    string
		chainID uint64
		domain  uint32
	}{
		{"ethereum", 1, 0},
		{"optimism", 10, 2},
		{"arbitrum", 42161, 3},
		{"base", 8453, 6},
		{"sepolia", 11155111, 0},
		{"base-sepolia", 84532, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := registry.GetByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.chainID, c.ChainID)
			assert.Equal(t, tt.domain, c.CCTPDomain)

			byID, err := registry.GetByChainID(tt.chainID)
			require.NoError(t, err)
			assert.Equal(t, c, byID)
		})
	}
}

func TestRegistryGetUnknownChain(t *testing.T) {
	registry := chain.NewRegistry()
	_, err := registry.GetByName("unknownchain")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)

	_, err = registry.GetByChainID(999)
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestEveryChainHasCoreAssets(t *testing.T) {
	for _, c := range chain.NewRegistry().All() {
		t.Run(c.Name, func(t *testing.T) {
			for _, sym := range []string{"ETH", "WETH", "USDC"} {
				a, err := c.Asset(sym)
				require.NoError(t, err, sym)
				assert.NotEmpty(t, a.USDPrice)
			}
			usdc, _ := c.Asset("usdc")
			assert.Equal(t, uint8(6), usdc.Decimals)

			ethAsset, _ := c.Asset("ETH")
			assert.True(t, ethAsset.IsNative())

			m, err := c.Comet("cUSDCv3")
			require.NoError(t, err)
			assert.Equal(t, "USDC", m.BaseSymbol)
		})
	}
}

func TestCometLookupByBaseSymbol(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("ethereum")
	require.NoError(t, err)

	m, err := c.Comet("WETH")
	require.NoError(t, err)
	assert.Equal(t, "cWETHv3", m.Name)
}

func TestUnknownAssetAndComet(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("base")
	require.NoError(t, err)

	_, err = c.Asset("DOGE")
	assert.ErrorIs(t, err, chain.ErrUnknownAsset)

	_, err = c.Comet("cDOGEv3")
	assert.ErrorIs(t, err, chain.ErrUnknownComet)
}
