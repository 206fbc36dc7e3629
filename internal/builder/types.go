package builder

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Field order in every struct below must follow the ABI component order:
// unpacked tuples are copied field by field.

// AccountBalance is an account's balance of one asset.
type AccountBalance struct {
	Account common.Address `abi:"account"`
	Balance *big.Int       `abi:"balance"`
}

// AssetPosition describes one asset on a chain and who holds it.
type AssetPosition struct {
	Asset           common.Address   `abi:"asset"`
	Symbol          string           `abi:"symbol"`
	Decimals        *big.Int         `abi:"decimals"`
	USDPrice        *big.Int         `abi:"usdPrice"` // 8 decimals
	AccountBalances []AccountBalance `abi:"accountBalances"`
}

// CollateralBalance is collateral supplied to a Comet market.
type CollateralBalance struct {
	Asset   common.Address `abi:"asset"`
	Balance *big.Int       `abi:"balance"`
}

// CometPosition is an account's position in a Comet market.
type CometPosition struct {
	Comet       common.Address      `abi:"comet"`
	Account     common.Address      `abi:"account"`
	Borrowed    *big.Int            `abi:"borrowed"`
	Supplied    *big.Int            `abi:"supplied"`
	Collaterals []CollateralBalance `abi:"collaterals"`
}

// QuarkSecret is the nonce secret of a Quark wallet.
type QuarkSecret struct {
	Account     common.Address `abi:"account"`
	NonceSecret [32]byte       `abi:"nonceSecret"`
}

// ChainAccounts is the state of every known account on one chain.
type ChainAccounts struct {
	ChainID            *big.Int        `abi:"chainId"`
	QuarkSecrets       []QuarkSecret   `abi:"quarkSecrets"`
	AssetPositionsList []AssetPosition `abi:"assetPositionsList"`
	CometPositions     []CometPosition `abi:"cometPositions"`
}

// MaxCost caps what an operation on ChainID may spend on payment.
type MaxCost struct {
	ChainID *big.Int `abi:"chainId"`
	Amount  *big.Int `abi:"amount"`
}

// Payment selects how operations are paid for. IsToken=false means the
// account pays gas in the native asset ("usd" payment).
type Payment struct {
	IsToken  bool      `abi:"isToken"`
	Currency string    `abi:"currency"`
	MaxCosts []MaxCost `abi:"maxCosts"`
}

// QuarkOperation is one operation the builder wants signed and submitted.
type QuarkOperation struct {
	ChainID        *big.Int       `abi:"chainId"`
	Account        common.Address `abi:"account"`
	Nonce          [32]byte       `abi:"nonce"`
	ScriptAddress  common.Address `abi:"scriptAddress"`
	ScriptCalldata []byte         `abi:"scriptCalldata"`
	Expiry         *big.Int       `abi:"expiry"`
}

// Action is the user-facing description of a QuarkOperation.
type Action struct {
	ChainID            *big.Int       `abi:"chainId"`
	QuarkAccount       common.Address `abi:"quarkAccount"`
	ActionType         string         `abi:"actionType"`
	PaymentMethod      string         `abi:"paymentMethod"`
	PaymentTokenSymbol string         `abi:"paymentTokenSymbol"`
	PaymentMaxCost     *big.Int       `abi:"paymentMaxCost"`
}

// BuilderResult is what every builder query returns.
type BuilderResult struct {
	Version         string           `abi:"version"`
	QuarkOperations []QuarkOperation `abi:"quarkOperations"`
	Actions         []Action         `abi:"actions"`
	PaymentCurrency string           `abi:"paymentCurrency"`
}

// Intent is a request the builder knows how to plan. Method is the builder
// function that serves it.
type Intent interface {
	Method() string
}

// TransferIntent moves an asset to a recipient, bridging if needed.
type TransferIntent struct {
	ChainID        *big.Int       `abi:"chainId"`
	Sender         common.Address `abi:"sender"`
	Recipient      common.Address `abi:"recipient"`
	AssetSymbol    string         `abi:"assetSymbol"`
	Amount         *big.Int       `abi:"amount"`
	BlockTimestamp *big.Int       `abi:"blockTimestamp"`
}

// CometSupplyIntent supplies an asset to a Comet market.
type CometSupplyIntent struct {
	ChainID        *big.Int       `abi:"chainId"`
	Comet          common.Address `abi:"comet"`
	Sender         common.Address `abi:"sender"`
	AssetSymbol    string         `abi:"assetSymbol"`
	Amount         *big.Int       `abi:"amount"`
	BlockTimestamp *big.Int       `abi:"blockTimestamp"`
}

// CometWithdrawIntent withdraws an asset from a Comet market.
type CometWithdrawIntent struct {
	ChainID        *big.Int       `abi:"chainId"`
	Comet          common.Address `abi:"comet"`
	Withdrawer     common.Address `abi:"withdrawer"`
	AssetSymbol    string         `abi:"assetSymbol"`
	Amount         *big.Int       `abi:"amount"`
	BlockTimestamp *big.Int       `abi:"blockTimestamp"`
}

// CometBorrowIntent supplies collateral and borrows the base asset.
type CometBorrowIntent struct {
	ChainID                *big.Int       `abi:"chainId"`
	Comet                  common.Address `abi:"comet"`
	Borrower               common.Address `abi:"borrower"`
	AssetSymbol            string         `abi:"assetSymbol"`
	Amount                 *big.Int       `abi:"amount"`
	CollateralAssetSymbols []string       `abi:"collateralAssetSymbols"`
	CollateralAmounts      []*big.Int     `abi:"collateralAmounts"`
	BlockTimestamp         *big.Int       `abi:"blockTimestamp"`
}

// CometRepayIntent repays base debt and withdraws collateral.
type CometRepayIntent struct {
	ChainID                *big.Int       `abi:"chainId"`
	Comet                  common.Address `abi:"comet"`
	Repayer                common.Address `abi:"repayer"`
	AssetSymbol            string         `abi:"assetSymbol"`
	Amount                 *big.Int       `abi:"amount"`
	CollateralAssetSymbols []string       `abi:"collateralAssetSymbols"`
	CollateralAmounts      []*big.Int     `abi:"collateralAmounts"`
	BlockTimestamp         *big.Int       `abi:"blockTimestamp"`
}

// SwapIntent executes a pre-quoted swap through an aggregator entry point.
type SwapIntent struct {
	ChainID         *big.Int       `abi:"chainId"`
	EntryPoint      common.Address `abi:"entryPoint"`
	SwapData        []byte         `abi:"swapData"`
	Sender          common.Address `abi:"sender"`
	SellAssetSymbol string         `abi:"sellAssetSymbol"`
	SellAmount      *big.Int       `abi:"sellAmount"`
	BuyAssetSymbol  string         `abi:"buyAssetSymbol"`
	BuyAmount       *big.Int       `abi:"buyAmount"`
	BlockTimestamp  *big.Int       `abi:"blockTimestamp"`
}

func (TransferIntent) Method() string      { return "transfer" }
func (CometSupplyIntent) Method() string   { return "cometSupply" }
func (CometWithdrawIntent) Method() string { return "cometWithdraw" }
func (CometBorrowIntent) Method() string   { return "cometBorrow" }
func (CometRepayIntent) Method() string    { return "cometRepay" }
func (SwapIntent) Method() string          { return "swap" }

// newIntent returns a pointer to a zero intent for a builder method.
func newIntent(method string) (Intent, bool) {
	switch method {
	case "transfer":
		return new(TransferIntent), true
	case "cometSupply":
		return new(CometSupplyIntent), true
	case "cometWithdraw":
		return new(CometWithdrawIntent), true
	case "cometBorrow":
		return new(CometBorrowIntent), true
	case "cometRepay":
		return new(CometRepayIntent), true
	case "swap":
		return new(SwapIntent), true
	}
	return nil, false
}
