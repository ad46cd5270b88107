package pool

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits converts a raw integer amount to a decimal string:
// 1500000000000000000 with 18 decimals -> "1.5". Trailing zeros are dropped.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
