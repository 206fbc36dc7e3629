package accept

import (
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T, tc AcceptanceTest) *Environment {
	t.Helper()
	env, err := NewEnvironment(&tc, chain.NewRegistry(), scripts.DefaultDeployments())
	require.NoError(t, err)
	return env
}

func TestAccountAddressDeterministic(t *testing.T) {
	assert.Equal(t, AccountAddress("alice"), AccountAddress("alice"))
	assert.NotEqual(t, AccountAddress("alice"), AccountAddress("bob"))
	assert.NotEqual(t, NonceSecret("alice"), NonceSecret("bob"))
}

func TestEnvironmentTransfer(t *testing.T) {
	tc := AcceptanceTest{
		Name: "t",
		Given: Context{Chains: []ChainState{
			{ChainID: 8453, Balances: map[string]map[string]string{"alice": {"usdc": "2.5"}}},
			{ChainID: 1},
		}},
		When: When{Transfer: &TransferSpec{ChainID: 8453, Sender: "alice", Recipient: "bob", Asset: "usdc", Amount: "1"}},
	}
	env := newEnv(t, tc)

	intent, ok := env.Intent.(builder.TransferIntent)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(8453), intent.ChainID)
	assert.Equal(t, AccountAddress("alice"), intent.Sender)
	assert.Equal(t, AccountAddress("bob"), intent.Recipient)
	assert.Equal(t, "USDC", intent.AssetSymbol)
	assert.Equal(t, big.NewInt(1_000_000), intent.Amount)
	assert.Equal(t, big.NewInt(DefaultTimestamp), intent.BlockTimestamp)

	require.Len(t, env.Accounts, 2)
	assert.Equal(t, big.NewInt(1), env.Accounts[0].ChainID, "chains sorted by id")
	base := env.Accounts[1]
	require.Len(t, base.QuarkSecrets, 1, "recipient is not a quark account")
	assert.Equal(t, NonceSecret("alice"), base.QuarkSecrets[0].NonceSecret)

	var usdc *builder.AssetPosition
	for i := range base.AssetPositionsList {
		if base.AssetPositionsList[i].Symbol == "USDC" {
			usdc = &base.AssetPositionsList[i]
		}
	}
	require.NotNil(t, usdc)
	assert.Equal(t, big.NewInt(100_000_000), usdc.USDPrice)
	assert.Equal(t, big.NewInt(6), usdc.Decimals)
	require.Len(t, usdc.AccountBalances, 1)
	assert.Equal(t, big.NewInt(2_500_000), usdc.AccountBalances[0].Balance)

	assert.Equal(t, builder.Payment{Currency: "usd", MaxCosts: []builder.MaxCost{}}, env.Payment)

	name, ok := env.Book.Name(AccountAddress("bob"))
	assert.True(t, ok)
	assert.Equal(t, "bob", name)
	name, _ = env.Book.Name(scripts.DefaultDeployments().MustAddress("Paycall"))
	assert.Equal(t, "Paycall", name)
}

func TestEnvironmentTokenPaymentAndPrices(t *testing.T) {
	tc := AcceptanceTest{
		Name: "t",
		Given: Context{
			Timestamp: 42,
			Payment:   PaymentSpec{Currency: "usdc", MaxCosts: map[uint64]string{8453: "0.1", 1: "0.5"}},
			Prices:    map[string]string{"weth": "3500.5"},
		},
		When: When{Transfer: &TransferSpec{ChainID: 1, Sender: "alice", Recipient: "bob", Asset: "WETH", Amount: "1"}},
	}
	env := newEnv(t, tc)

	assert.True(t, env.Payment.IsToken)
	assert.Equal(t, "USDC", env.Payment.Currency)
	require.Len(t, env.Payment.MaxCosts, 2)
	assert.Equal(t, big.NewInt(1), env.Payment.MaxCosts[0].ChainID)
	assert.Equal(t, big.NewInt(500_000), env.Payment.MaxCosts[0].Amount)
	assert.Len(t, env.Accounts, 2, "max cost chains are included")

	intent := env.Intent.(builder.TransferIntent)
	assert.Equal(t, big.NewInt(42), intent.BlockTimestamp)
	for _, pos := range env.Accounts[0].AssetPositionsList {
		if pos.Symbol == "WETH" {
			assert.Equal(t, big.NewInt(350_050_000_000), pos.USDPrice)
		}
	}
}

func TestEnvironmentCometBorrow(t *testing.T) {
	tc := AcceptanceTest{
		Name: "t",
		Given: Context{Chains: []ChainState{{
			ChainID: 1,
			Comets: []CometState{{
				Market: "cUSDCv3", Account: "carol", Borrowed: "10",
				Collateral: []AssetAmount{{Asset: "WETH", Amount: "1"}},
			}},
		}}},
		When: When{CometBorrow: &CometSpec{
			ChainID: 1, Market: "USDC", Account: "carol", Asset: "USDC", Amount: "5",
			Collateral: []AssetAmount{{Asset: "LINK", Amount: "2"}},
		}},
	}
	env := newEnv(t, tc)

	intent, ok := env.Intent.(builder.CometBorrowIntent)
	require.True(t, ok)
	reg := chain.NewRegistry()
	eth, _ := reg.GetByChainID(1)
	market, _ := eth.Comet("cUSDCv3")
	assert.Equal(t, market.Address, intent.Comet)
	assert.Equal(t, []string{"LINK"}, intent.CollateralAssetSymbols)
	assert.Equal(t, []*big.Int{big.NewInt(2_000_000_000_000_000_000)}, intent.CollateralAmounts)

	require.Len(t, env.Accounts[0].CometPositions, 1)
	pos := env.Accounts[0].CometPositions[0]
	assert.Equal(t, AccountAddress("carol"), pos.Account)
	assert.Equal(t, big.NewInt(10_000_000), pos.Borrowed)
	assert.Equal(t, big.NewInt(0), pos.Supplied)
	require.Len(t, pos.Collaterals, 1)

	name, _ := env.Book.Name(market.Address)
	assert.Equal(t, "cUSDCv3", name)
}

func TestEnvironmentSwap(t *testing.T) {
	tc := AcceptanceTest{
		Name: "t",
		When: When{Swap: &SwapSpec{
			ChainID: 8453, EntryPoint: "0x00000000000000000000000000000000000000e1", SwapData: "0xbeef",
			Sender: "alice", Sell: AssetAmount{Asset: "USDC", Amount: "1"}, Buy: AssetAmount{Asset: "WETH", Amount: "0.001"},
		}},
	}
	env := newEnv(t, tc)
	intent := env.Intent.(builder.SwapIntent)
	assert.Equal(t, common.HexToAddress("0xe1"), intent.EntryPoint)
	assert.Equal(t, []byte{0xbe, 0xef}, intent.SwapData)
	assert.Equal(t, big.NewInt(1_000_000_000_000_000), intent.BuyAmount)
}

func TestEnvironmentErrors(t *testing.T) {
	transfer := func(chainID uint64, asset, amount string) When {
		return When{Transfer: &TransferSpec{ChainID: chainID, Sender: "a", Recipient: "b", Asset: asset, Amount: amount}}
	}
	cases := map[string]AcceptanceTest{
		"unknown chain":  {When: transfer(999, "USDC", "1")},
		"unknown asset":  {When: transfer(1, "DOGE", "1")},
		"bad amount":     {When: transfer(1, "USDC", "x")},
		"unknown market": {When: When{CometSupply: &CometSpec{ChainID: 1, Market: "cDAIv3", Account: "a", Asset: "USDC", Amount: "1"}}},
		"bad balance": {
			Given: Context{Chains: []ChainState{{ChainID: 1, Balances: map[string]map[string]string{"a": {"DOGE": "1"}}}}},
			When:  transfer(1, "USDC", "1"),
		},
		"max costs without token": {
			Given: Context{Payment: PaymentSpec{MaxCosts: map[uint64]string{1: "1"}}},
			When:  transfer(1, "USDC", "1"),
		},
		"bad price": {
			Given: Context{Prices: map[string]string{"USDC": "free"}},
			When:  transfer(1, "USDC", "1"),
		},
		"bad swap data": {When: When{Swap: &SwapSpec{
			ChainID: 1, EntryPoint: "r", SwapData: "zz", Sender: "a",
			Sell: AssetAmount{Asset: "USDC", Amount: "1"}, Buy: AssetAmount{Asset: "WETH", Amount: "1"},
		}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.Name = name
			_, err := NewEnvironment(&tc, chain.NewRegistry(), scripts.DefaultDeployments())
			assert.Error(t, err)
		})
	}
}
