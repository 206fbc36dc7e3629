// Package accept is the acceptance harness: declarative given/when/expect
// scenarios that run against the builder and compare its decoded output.
package accept

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
)

var (
	// ErrScenarioNotFound is returned when a name selects no scenario.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrInvalidScenario is wrapped by every validation failure.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// DefaultTimestamp is the block timestamp used when a scenario sets none.
const DefaultTimestamp = 1_700_000_000

// AcceptanceTest is one given/when/expect triple.
type AcceptanceTest struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Given       Context `yaml:"given"`
	When        When    `yaml:"when"`
	Expect      Expect  `yaml:"expect"`

	// Source is the file the test was loaded from.
	Source string `yaml:"-"`
}

// Context is the world the builder is asked to plan in.
type Context struct {
	Timestamp uint64            `yaml:"timestamp,omitempty"`
	Payment   PaymentSpec       `yaml:"payment,omitempty"`
	Prices    map[string]string `yaml:"prices,omitempty"` // symbol → USD
	Chains    []ChainState      `yaml:"chains,omitempty"`
}

// PaymentSpec selects how operations are paid for. Currency "usd" (or
// empty) pays gas natively; any other value is a token symbol and max costs
// are given per chain in that token's units.
type PaymentSpec struct {
	Currency string            `yaml:"currency,omitempty"`
	MaxCosts map[uint64]string `yaml:"max_costs,omitempty"`
}

// IsToken reports whether the payment uses a token (Paycall/Quotecall).
func (p PaymentSpec) IsToken() bool {
	return p.Currency != "" && p.Currency != "usd"
}

// ChainState is the holdings of every account on one chain.
type ChainState struct {
	ChainID  uint64                       `yaml:"chain_id"`
	Balances map[string]map[string]string `yaml:"balances,omitempty"` // account → symbol → amount
	Comets   []CometState                 `yaml:"comets,omitempty"`
}

// CometState is an account's position in a Comet market.
type CometState struct {
	Market     string       `yaml:"market"`
	Account    string       `yaml:"account"`
	Borrowed   string       `yaml:"borrowed,omitempty"`
	Supplied   string       `yaml:"supplied,omitempty"`
	Collateral []AssetAmount `yaml:"collateral,omitempty"`
}

// AssetAmount is an amount of a named asset in whole units ("1.5").
type AssetAmount struct {
	Asset  string `yaml:"asset"`
	Amount string `yaml:"amount"`
}

// When holds exactly one intent.
type When struct {
	Transfer      *TransferSpec `yaml:"transfer,omitempty"`
	CometSupply   *CometSpec    `yaml:"comet_supply,omitempty"`
	CometWithdraw *CometSpec    `yaml:"comet_withdraw,omitempty"`
	CometBorrow   *CometSpec    `yaml:"comet_borrow,omitempty"`
	CometRepay    *CometSpec    `yaml:"comet_repay,omitempty"`
	Swap          *SwapSpec     `yaml:"swap,omitempty"`
}

// Kind names the intent set in w, or "" when none or several are set.
func (w When) Kind() string {
	var kinds []string
	for kind, set := range map[string]bool{
		"transfer":       w.Transfer != nil,
		"comet_supply":   w.CometSupply != nil,
		"comet_withdraw": w.CometWithdraw != nil,
		"comet_borrow":   w.CometBorrow != nil,
		"comet_repay":    w.CometRepay != nil,
		"swap":           w.Swap != nil,
	} {
		if set {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// ChainID returns the chain the intent targets.
func (w When) ChainID() uint64 {
	switch {
	case w.Transfer != nil:
		return w.Transfer.ChainID
	case w.CometSupply != nil:
		return w.CometSupply.ChainID
	case w.CometWithdraw != nil:
		return w.CometWithdraw.ChainID
	case w.CometBorrow != nil:
		return w.CometBorrow.ChainID
	case w.CometRepay != nil:
		return w.CometRepay.ChainID
	case w.Swap != nil:
		return w.Swap.ChainID
	}
	return 0
}

// comet returns whichever Comet intent is set.
func (w When) comet() *CometSpec {
	switch {
	case w.CometSupply != nil:
		return w.CometSupply
	case w.CometWithdraw != nil:
		return w.CometWithdraw
	case w.CometBorrow != nil:
		return w.CometBorrow
	}
	return w.CometRepay
}

// TransferSpec moves Amount of Asset from Sender to Recipient on ChainID.
type TransferSpec struct {
	ChainID   uint64 `yaml:"chain_id"`
	Sender    string `yaml:"sender"`
	Recipient string `yaml:"recipient"`
	Asset     string `yaml:"asset"`
	Amount    string `yaml:"amount"` // whole units or "max"
}

// CometSpec is shared by the four Comet intents. Account is the supplier,
// withdrawer, borrower or repayer. Collateral only applies to borrow/repay.
type CometSpec struct {
	ChainID    uint64        `yaml:"chain_id"`
	Market     string        `yaml:"market"`
	Account    string        `yaml:"account"`
	Asset      string        `yaml:"asset"`
	Amount     string        `yaml:"amount"`
	Collateral []AssetAmount `yaml:"collateral,omitempty"`
}

// SwapSpec executes a quoted swap through EntryPoint.
type SwapSpec struct {
	ChainID    uint64      `yaml:"chain_id"`
	EntryPoint string      `yaml:"entry_point"`
	SwapData   string      `yaml:"swap_data"` // hex
	Sender     string      `yaml:"sender"`
	Sell       AssetAmount `yaml:"sell"`
	Buy        AssetAmount `yaml:"buy"`
}

// Expect is either a list of operations or a revert.
type Expect struct {
	Operations []ExpectedOperation `yaml:"operations,omitempty"`
	Actions    []string            `yaml:"actions,omitempty"`
	Revert     string              `yaml:"revert,omitempty"`
}

// ExpectedOperation is one quark operation as rendered by the decoder.
// Empty Account or Payment fields are not compared.
type ExpectedOperation struct {
	ChainID uint64   `yaml:"chain_id"`
	Account string   `yaml:"account,omitempty"`
	Payment string   `yaml:"payment,omitempty"`
	Calls   []string `yaml:"calls"`
}

// Validate checks the structural rules every scenario must follow. With a
// non-nil reg it also checks that every chain, asset and Comet market the
// scenario names is listed there.
func (t *AcceptanceTest) Validate(reg *chain.Registry) error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidScenario, t.Name, fmt.Sprintf(format, args...))
	}
	if t.Name == "" {
		return fmt.Errorf("%w: missing name (source %s)", ErrInvalidScenario, t.Source)
	}
	if t.When.Kind() == "" {
		return fail("when must hold exactly one intent")
	}
	if t.When.ChainID() == 0 {
		return fail("intent has no chain_id")
	}
	hasOps := len(t.Expect.Operations) > 0
	hasRevert := t.Expect.Revert != ""
	if hasOps == hasRevert {
		return fail("expect must hold either operations or revert")
	}
	if hasRevert && len(t.Expect.Actions) > 0 {
		return fail("actions cannot be expected alongside a revert")
	}
	for i, op := range t.Expect.Operations {
		if op.ChainID == 0 {
			return fail("operation %d has no chain_id", i)
		}
		if len(op.Calls) == 0 {
			return fail("operation %d has no calls", i)
		}
	}
	seen := map[uint64]bool{}
	for _, c := range t.Given.Chains {
		if seen[c.ChainID] {
			return fail("chain %d listed twice", c.ChainID)
		}
		seen[c.ChainID] = true
	}
	if reg == nil {
		return nil
	}
	if err := t.checkRefs(reg); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidScenario, t.Name, err)
	}
	return nil
}

// checkRefs resolves the names t uses against reg.
func (t *AcceptanceTest) checkRefs(reg *chain.Registry) error {
	w := t.When
	ch, err := reg.GetByChainID(w.ChainID())
	if err != nil {
		return fmt.Errorf("when: %w", err)
	}
	switch {
	case w.Transfer != nil:
		err = hasAssets(ch, w.Transfer.Asset)
	case w.Swap != nil:
		err = hasAssets(ch, w.Swap.Sell.Asset, w.Swap.Buy.Asset)
	default:
		s := w.comet()
		if _, err = ch.Comet(s.Market); err == nil {
			err = hasAssets(ch, append([]string{s.Asset}, symbols(s.Collateral)...)...)
		}
	}
	if err != nil {
		return fmt.Errorf("when: %w", err)
	}

	for _, cs := range t.Given.Chains {
		ch, err := reg.GetByChainID(cs.ChainID)
		if err != nil {
			return fmt.Errorf("given: %w", err)
		}
		for _, held := range cs.Balances {
			for sym := range held {
				if err := hasAssets(ch, sym); err != nil {
					return fmt.Errorf("given: balance: %w", err)
				}
			}
		}
		for _, cm := range cs.Comets {
			if _, err := ch.Comet(cm.Market); err != nil {
				return fmt.Errorf("given: %w", err)
			}
			if err := hasAssets(ch, symbols(cm.Collateral)...); err != nil {
				return fmt.Errorf("given: collateral: %w", err)
			}
		}
	}

	if t.Given.Payment.IsToken() {
		for id := range t.Given.Payment.MaxCosts {
			ch, err := reg.GetByChainID(id)
			if err != nil {
				return fmt.Errorf("payment: %w", err)
			}
			if err := hasAssets(ch, t.Given.Payment.Currency); err != nil {
				return fmt.Errorf("payment: %w", err)
			}
		}
	}

	for i, op := range t.Expect.Operations {
		if _, err := reg.GetByChainID(op.ChainID); err != nil {
			return fmt.Errorf("expect: operation %d: %w", i, err)
		}
	}
	return nil
}

func hasAssets(ch *chain.Chain, syms ...string) error {
	for _, sym := range syms {
		if _, err := ch.Asset(sym); err != nil {
			return err
		}
	}
	return nil
}

func symbols(list []AssetAmount) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Asset
	}
	return out
}

// Select returns the tests whose names match any of patterns (path.Match
// syntax). No patterns selects everything.
func Select(tests []AcceptanceTest, patterns []string) ([]AcceptanceTest, error) {
	if len(patterns) == 0 {
		return tests, nil
	}
	var out []AcceptanceTest
	for _, t := range tests {
		for _, p := range patterns {
			if matchName(p, t.Name) {
				out = append(out, t)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrScenarioNotFound, patterns)
	}
	return out, nil
}

// Names returns the sorted names of tests.
func Names(tests []AcceptanceTest) []string {
	out := make([]string, len(tests))
	for i, t := range tests {
		out[i] = t.Name
	}
	sort.Strings(out)
	return out
}
