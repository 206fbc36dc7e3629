package accept

import (
	"testing"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTest() AcceptanceTest {
	return AcceptanceTest{
		Name: "t",
		When: When{Transfer: &TransferSpec{ChainID: 1, Sender: "alice", Recipient: "bob", Asset: "USDC", Amount: "1"}},
		Expect: Expect{Operations: []ExpectedOperation{
			{ChainID: 1, Calls: []string{"x"}},
		}},
	}
}

func TestValidateOK(t *testing.T) {
	tc := validTest()
	assert.NoError(t, tc.Validate(nil))
	assert.NoError(t, tc.Validate(chain.NewRegistry()))
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]func(*AcceptanceTest){
		"no name":      func(t *AcceptanceTest) { t.Name = "" },
		"no intent":    func(t *AcceptanceTest) { t.When = When{} },
		"two intents":  func(t *AcceptanceTest) { t.When.Swap = &SwapSpec{ChainID: 1} },
		"no chain":     func(t *AcceptanceTest) { t.When.Transfer.ChainID = 0 },
		"no expect":    func(t *AcceptanceTest) { t.Expect = Expect{} },
		"both expects": func(t *AcceptanceTest) { t.Expect.Revert = "InvalidInput()" },
		"revert with actions": func(t *AcceptanceTest) {
			t.Expect = Expect{Revert: "InvalidInput()", Actions: []string{"TRANSFER"}}
		},
		"op without chain": func(t *AcceptanceTest) { t.Expect.Operations[0].ChainID = 0 },
		"op without calls": func(t *AcceptanceTest) { t.Expect.Operations[0].Calls = nil },
		"duplicate chain": func(t *AcceptanceTest) {
			t.Given.Chains = []ChainState{{ChainID: 1}, {ChainID: 1}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tc := validTest()
			mutate(&tc)
			assert.ErrorIs(t, tc.Validate(nil), ErrInvalidScenario)
		})
	}
}

func TestValidateAgainstRegistry(t *testing.T) {
	reg := chain.NewRegistry()
	cases := []struct {
		name   string
		mutate func(*AcceptanceTest)
		want   error
	}{
		{"intent chain", func(t *AcceptanceTest) { t.When.Transfer.ChainID = 424242 }, chain.ErrChainNotFound},
		{"intent asset", func(t *AcceptanceTest) { t.When.Transfer.Asset = "DOGE" }, chain.ErrUnknownAsset},
		{"swap buy asset", func(t *AcceptanceTest) {
			t.When = When{Swap: &SwapSpec{ChainID: 1, Sell: AssetAmount{Asset: "USDC", Amount: "1"}, Buy: AssetAmount{Asset: "PEPE", Amount: "1"}}}
		}, chain.ErrUnknownAsset},
		{"comet market", func(t *AcceptanceTest) {
			t.When = When{CometSupply: &CometSpec{ChainID: 8453, Market: "cLINKv3", Account: "alice", Asset: "USDC", Amount: "1"}}
		}, chain.ErrUnknownComet},
		{"comet collateral", func(t *AcceptanceTest) {
			t.When = When{CometBorrow: &CometSpec{ChainID: 10, Market: "cUSDCv3", Account: "alice", Asset: "USDC", Amount: "1",
				Collateral: []AssetAmount{{Asset: "LINK", Amount: "1"}}}}
		}, chain.ErrUnknownAsset},
		{"given chain", func(t *AcceptanceTest) { t.Given.Chains = []ChainState{{ChainID: 56}} }, chain.ErrChainNotFound},
		{"given balance", func(t *AcceptanceTest) {
			t.Given.Chains = []ChainState{{ChainID: 1, Balances: map[string]map[string]string{"alice": {"SHIB": "1"}}}}
		}, chain.ErrUnknownAsset},
		{"given comet", func(t *AcceptanceTest) {
			t.Given.Chains = []ChainState{{ChainID: 10, Comets: []CometState{{Market: "cWETHv3", Account: "alice"}}}}
		}, chain.ErrUnknownComet},
		{"payment currency", func(t *AcceptanceTest) {
			t.Given.Payment = PaymentSpec{Currency: "DAI", MaxCosts: map[uint64]string{1: "1"}}
		}, chain.ErrUnknownAsset},
		{"expected op chain", func(t *AcceptanceTest) { t.Expect.Operations[0].ChainID = 7 }, chain.ErrChainNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tc := validTest()
			c.mutate(&tc)
			require.NoError(t, tc.Validate(nil), "structurally fine")
			err := tc.Validate(reg)
			assert.ErrorIs(t, err, ErrInvalidScenario)
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestWhenKindAndChain(t *testing.T) {
	w := When{CometRepay: &CometSpec{ChainID: 8453}}
	assert.Equal(t, "comet_repay", w.Kind())
	assert.Equal(t, uint64(8453), w.ChainID())

	assert.Equal(t, "", When{}.Kind())
	assert.Zero(t, When{}.ChainID())
}

func TestPaymentSpecIsToken(t *testing.T) {
	assert.False(t, PaymentSpec{}.IsToken())
	assert.False(t, PaymentSpec{Currency: "usd"}.IsToken())
	assert.True(t, PaymentSpec{Currency: "USDC"}.IsToken())
}

func TestSelect(t *testing.T) {
	tests := []AcceptanceTest{{Name: "transfer/a"}, {Name: "transfer/b"}, {Name: "bridge/a"}}

	all, err := Select(tests, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := Select(tests, []string{"transfer/*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"transfer/a", "transfer/b"}, Names(got))

	got, err = Select(tests, []string{"bridge/a", "transfer/b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bridge/a", "transfer/b"}, Names(got))

	_, err = Select(tests, []string{"comet/*"})
	assert.ErrorIs(t, err, ErrScenarioNotFound)
}
