package accept

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// PriceDecimals is the fixed-point precision of USD prices sent to the builder.
const PriceDecimals = 8

// ParseAmount converts a whole-unit amount ("1.5") to base units of an asset
// with the given decimals. "max" means type(uint256).max, the builder's
// marker for "everything".
func ParseAmount(amount string, decimals uint8) (*big.Int, error) {
	if strings.EqualFold(strings.TrimSpace(amount), "max") {
		return new(big.Int).Set(math.MaxBig256), nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	if v.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", amount)
	}
	base := v.Shift(int32(decimals))
	if !base.Equal(base.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	return base.BigInt(), nil
}

// ParsePrice converts a USD price to PriceDecimals fixed point.
func ParsePrice(price string) (*big.Int, error) {
	if strings.EqualFold(strings.TrimSpace(price), "max") {
		return nil, fmt.Errorf("price %q is not a number", price)
	}
	return ParseAmount(price, PriceDecimals)
}
