package accept

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/Mohsinsiddi/quarkcheck/internal/builder"
	"github.com/Mohsinsiddi/quarkcheck/internal/call"
	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"github.com/Mohsinsiddi/quarkcheck/internal/scripts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// AccountAddress derives the address of a named scenario account from the
// secp256k1 key keccak256(name).
func AccountAddress(name string) common.Address {
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte(name)))
	if err != nil {
		// keccak output outside the curve order; never seen for real names.
		panic(fmt.Sprintf("deriving key for %q: %v", name, err))
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

// NonceSecret is the quark nonce secret of a named account.
func NonceSecret(name string) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256([]byte("nonce-secret:"+name)))
	return out
}

// Environment is a scenario resolved into builder inputs.
type Environment struct {
	Intent   builder.Intent
	Accounts []builder.ChainAccounts
	Payment  builder.Payment
	Book     *call.AddressBook

	deployments *scripts.Deployments
}

// Decoder returns a call decoder naming addresses from the scenario.
func (e *Environment) Decoder() *call.Decoder {
	return call.NewDecoder(e.deployments, e.Book)
}

// NewEnvironment resolves t against the chain registry and script
// deployments. Unknown chains, assets and markets are errors.
func NewEnvironment(t *AcceptanceTest, reg *chain.Registry, dep *scripts.Deployments) (*Environment, error) {
	r := &resolver{
		reg:      reg,
		book:     call.NewAddressBook(),
		accounts: map[string]common.Address{},
		chains:   map[uint64]*chain.Chain{},
		prices:   map[string]string{},
	}
	for sym, p := range t.Given.Prices {
		r.prices[strings.ToUpper(sym)] = p
	}
	ts := t.Given.Timestamp
	if ts == 0 {
		ts = DefaultTimestamp
	}
	r.timestamp = new(big.Int).SetUint64(ts)

	intent, err := r.intent(t.When)
	if err != nil {
		return nil, fmt.Errorf("%s: when: %w", t.Name, err)
	}
	for _, cs := range t.Given.Chains {
		if _, err := r.chain(cs.ChainID); err != nil {
			return nil, fmt.Errorf("%s: given: %w", t.Name, err)
		}
		for name := range cs.Balances {
			r.account(name)
		}
		for _, cm := range cs.Comets {
			r.account(cm.Account)
		}
	}
	payment, err := r.payment(t.Given.Payment)
	if err != nil {
		return nil, fmt.Errorf("%s: payment: %w", t.Name, err)
	}
	accounts, err := r.chainAccounts(t.Given.Chains)
	if err != nil {
		return nil, fmt.Errorf("%s: given: %w", t.Name, err)
	}

	for _, name := range dep.Names() {
		r.book.Add(name, dep.MustAddress(name))
	}
	for _, ch := range r.chains {
		for _, a := range ch.Assets {
			r.book.Add(a.Symbol, a.Address)
		}
		for _, m := range ch.Comets {
			r.book.Add(m.Name, m.Address)
		}
		r.book.Add("TokenMessenger", ch.TokenMessenger)
	}

	return &Environment{
		Intent:      intent,
		Accounts:    accounts,
		Payment:     payment,
		Book:        r.book,
		deployments: dep,
	}, nil
}

type resolver struct {
	reg       *chain.Registry
	book      *call.AddressBook
	accounts  map[string]common.Address
	chains    map[uint64]*chain.Chain
	prices    map[string]string
	timestamp *big.Int
}

func (r *resolver) chain(id uint64) (*chain.Chain, error) {
	if ch, ok := r.chains[id]; ok {
		return ch, nil
	}
	ch, err := r.reg.GetByChainID(id)
	if err != nil {
		return nil, err
	}
	r.chains[id] = ch
	return ch, nil
}

// address names a non-account address: a literal hex address or a name
// whose address is derived like an account's.
func (r *resolver) address(name string) common.Address {
	if common.IsHexAddress(name) {
		return common.HexToAddress(name)
	}
	addr := AccountAddress(name)
	r.book.Add(name, addr)
	return addr
}

// account is address plus registration as a quark wallet on every chain.
func (r *resolver) account(name string) common.Address {
	addr := r.address(name)
	r.accounts[name] = addr
	return addr
}

func (r *resolver) amount(ch *chain.Chain, aa AssetAmount) (chain.Asset, *big.Int, error) {
	asset, err := ch.Asset(aa.Asset)
	if err != nil {
		return chain.Asset{}, nil, err
	}
	amt, err := ParseAmount(aa.Amount, asset.Decimals)
	if err != nil {
		return chain.Asset{}, nil, fmt.Errorf("%s: %w", asset.Symbol, err)
	}
	return asset, amt, nil
}

func (r *resolver) collateral(ch *chain.Chain, list []AssetAmount) ([]string, []*big.Int, error) {
	symbols := []string{}
	amounts := []*big.Int{}
	for _, c := range list {
		asset, amt, err := r.amount(ch, c)
		if err != nil {
			return nil, nil, fmt.Errorf("collateral: %w", err)
		}
		symbols = append(symbols, asset.Symbol)
		amounts = append(amounts, amt)
	}
	return symbols, amounts, nil
}

func (r *resolver) intent(w When) (builder.Intent, error) {
	ch, err := r.chain(w.ChainID())
	if err != nil {
		return nil, err
	}
	chainID := new(big.Int).SetUint64(ch.ChainID)

	switch {
	case w.Transfer != nil:
		s := w.Transfer
		asset, amt, err := r.amount(ch, AssetAmount{Asset: s.Asset, Amount: s.Amount})
		if err != nil {
			return nil, err
		}
		return builder.TransferIntent{
			ChainID:        chainID,
			Sender:         r.account(s.Sender),
			Recipient:      r.address(s.Recipient),
			AssetSymbol:    asset.Symbol,
			Amount:         amt,
			BlockTimestamp: r.timestamp,
		}, nil

	case w.CometSupply != nil, w.CometWithdraw != nil, w.CometBorrow != nil, w.CometRepay != nil:
		return r.cometIntent(ch, w)

	case w.Swap != nil:
		s := w.Swap
		sell, sellAmt, err := r.amount(ch, s.Sell)
		if err != nil {
			return nil, fmt.Errorf("sell: %w", err)
		}
		buy, buyAmt, err := r.amount(ch, s.Buy)
		if err != nil {
			return nil, fmt.Errorf("buy: %w", err)
		}
		data := []byte{}
		if s.SwapData != "" {
			if data, err = hexutil.Decode(s.SwapData); err != nil {
				return nil, fmt.Errorf("swap_data: %w", err)
			}
		}
		return builder.SwapIntent{
			ChainID:         chainID,
			EntryPoint:      r.address(s.EntryPoint),
			SwapData:        data,
			Sender:          r.account(s.Sender),
			SellAssetSymbol: sell.Symbol,
			SellAmount:      sellAmt,
			BuyAssetSymbol:  buy.Symbol,
			BuyAmount:       buyAmt,
			BlockTimestamp:  r.timestamp,
		}, nil
	}
	return nil, fmt.Errorf("no intent")
}

func (r *resolver) cometIntent(ch *chain.Chain, w When) (builder.Intent, error) {
	s := w.comet()
	market, err := ch.Comet(s.Market)
	if err != nil {
		return nil, err
	}
	asset, amt, err := r.amount(ch, AssetAmount{Asset: s.Asset, Amount: s.Amount})
	if err != nil {
		return nil, err
	}
	symbols, amounts, err := r.collateral(ch, s.Collateral)
	if err != nil {
		return nil, err
	}
	chainID := new(big.Int).SetUint64(ch.ChainID)
	who := r.account(s.Account)

	switch {
	case w.CometSupply != nil:
		return builder.CometSupplyIntent{ChainID: chainID, Comet: market.Address, Sender: who,
			AssetSymbol: asset.Symbol, Amount: amt, BlockTimestamp: r.timestamp}, nil
	case w.CometWithdraw != nil:
		return builder.CometWithdrawIntent{ChainID: chainID, Comet: market.Address, Withdrawer: who,
			AssetSymbol: asset.Symbol, Amount: amt, BlockTimestamp: r.timestamp}, nil
	case w.CometBorrow != nil:
		return builder.CometBorrowIntent{ChainID: chainID, Comet: market.Address, Borrower: who,
			AssetSymbol: asset.Symbol, Amount: amt, CollateralAssetSymbols: symbols,
			CollateralAmounts: amounts, BlockTimestamp: r.timestamp}, nil
	}
	return builder.CometRepayIntent{ChainID: chainID, Comet: market.Address, Repayer: who,
		AssetSymbol: asset.Symbol, Amount: amt, CollateralAssetSymbols: symbols,
		CollateralAmounts: amounts, BlockTimestamp: r.timestamp}, nil
}

func (r *resolver) payment(p PaymentSpec) (builder.Payment, error) {
	if !p.IsToken() {
		if len(p.MaxCosts) > 0 {
			return builder.Payment{}, fmt.Errorf("max_costs need a token currency")
		}
		return builder.Payment{Currency: "usd", MaxCosts: []builder.MaxCost{}}, nil
	}

	ids := make([]uint64, 0, len(p.MaxCosts))
	for id := range p.MaxCosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := builder.Payment{IsToken: true, Currency: p.Currency, MaxCosts: []builder.MaxCost{}}
	for _, id := range ids {
		ch, err := r.chain(id)
		if err != nil {
			return builder.Payment{}, err
		}
		asset, amt, err := r.amount(ch, AssetAmount{Asset: p.Currency, Amount: p.MaxCosts[id]})
		if err != nil {
			return builder.Payment{}, err
		}
		out.Currency = asset.Symbol
		out.MaxCosts = append(out.MaxCosts, builder.MaxCost{ChainID: new(big.Int).SetUint64(id), Amount: amt})
	}
	return out, nil
}

func (r *resolver) price(a chain.Asset) (*big.Int, error) {
	p := a.USDPrice
	if override, ok := r.prices[strings.ToUpper(a.Symbol)]; ok {
		p = override
	}
	if p == "" {
		p = "0"
	}
	v, err := ParsePrice(p)
	if err != nil {
		return nil, fmt.Errorf("price of %s: %w", a.Symbol, err)
	}
	return v, nil
}

// chainAccounts lists every involved chain in id order, each with every
// account's secret, a position for every registry asset and the given
// Comet positions.
func (r *resolver) chainAccounts(given []ChainState) ([]builder.ChainAccounts, error) {
	state := map[uint64]ChainState{}
	for _, cs := range given {
		state[cs.ChainID] = cs
	}

	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]builder.ChainAccounts, 0, len(ids))
	for _, id := range ids {
		ch := r.chains[id]
		cs := state[id]

		balances := map[string]map[string]*big.Int{} // symbol → account → amount
		for who, held := range cs.Balances {
			for sym, amount := range held {
				asset, amt, err := r.amount(ch, AssetAmount{Asset: sym, Amount: amount})
				if err != nil {
					return nil, fmt.Errorf("%s balance on %s: %w", who, ch.Name, err)
				}
				if balances[asset.Symbol] == nil {
					balances[asset.Symbol] = map[string]*big.Int{}
				}
				balances[asset.Symbol][who] = amt
			}
		}

		ca := builder.ChainAccounts{
			ChainID:            new(big.Int).SetUint64(id),
			QuarkSecrets:       []builder.QuarkSecret{},
			AssetPositionsList: []builder.AssetPosition{},
			CometPositions:     []builder.CometPosition{},
		}
		for _, name := range names {
			ca.QuarkSecrets = append(ca.QuarkSecrets, builder.QuarkSecret{
				Account:     r.accounts[name],
				NonceSecret: NonceSecret(name),
			})
		}
		for _, asset := range ch.Assets {
			price, err := r.price(asset)
			if err != nil {
				return nil, err
			}
			pos := builder.AssetPosition{
				Asset:           asset.Address,
				Symbol:          asset.Symbol,
				Decimals:        big.NewInt(int64(asset.Decimals)),
				USDPrice:        price,
				AccountBalances: []builder.AccountBalance{},
			}
			for _, name := range names {
				bal := balances[asset.Symbol][name]
				if bal == nil {
					bal = new(big.Int)
				}
				pos.AccountBalances = append(pos.AccountBalances, builder.AccountBalance{
					Account: r.accounts[name],
					Balance: bal,
				})
			}
			ca.AssetPositionsList = append(ca.AssetPositionsList, pos)
		}
		for _, cm := range cs.Comets {
			pos, err := r.cometPosition(ch, cm)
			if err != nil {
				return nil, err
			}
			ca.CometPositions = append(ca.CometPositions, pos)
		}
		out = append(out, ca)
	}
	return out, nil
}

func (r *resolver) cometPosition(ch *chain.Chain, cm CometState) (builder.CometPosition, error) {
	market, err := ch.Comet(cm.Market)
	if err != nil {
		return builder.CometPosition{}, err
	}
	base, err := ch.Asset(market.BaseSymbol)
	if err != nil {
		return builder.CometPosition{}, err
	}
	parse := func(s string) (*big.Int, error) {
		if s == "" {
			return new(big.Int), nil
		}
		return ParseAmount(s, base.Decimals)
	}
	borrowed, err := parse(cm.Borrowed)
	if err != nil {
		return builder.CometPosition{}, fmt.Errorf("%s borrowed: %w", market.Name, err)
	}
	supplied, err := parse(cm.Supplied)
	if err != nil {
		return builder.CometPosition{}, fmt.Errorf("%s supplied: %w", market.Name, err)
	}
	pos := builder.CometPosition{
		Comet:       market.Address,
		Account:     r.accounts[cm.Account],
		Borrowed:    borrowed,
		Supplied:    supplied,
		Collaterals: []builder.CollateralBalance{},
	}
	for _, c := range cm.Collateral {
		asset, amt, err := r.amount(ch, c)
		if err != nil {
			return builder.CometPosition{}, fmt.Errorf("%s collateral: %w", market.Name, err)
		}
		pos.Collaterals = append(pos.Collaterals, builder.CollateralBalance{Asset: asset.Address, Balance: amt})
	}
	return pos, nil
}
