package feemath

import (
	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// TokenDecimals is the precision of the bridged asset and of vault shares.
const TokenDecimals = 18

// FormatAmount renders a base-unit amount as a decimal string with the given
// number of fractional digits, trailing zeros trimmed ("1.5", "0.0001").
func FormatAmount(amount sdkmath.Uint, decimals int32) string {
	return decimal.NewFromBigInt(amount.BigInt(), -decimals).String()
}

// ParseAmount parses a decimal string in whole-token units into base units.
// Fractional digits beyond the given precision are truncated.
func ParseAmount(s string, decimals int32) (sdkmath.Uint, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	if d.IsNegative() {
		return sdkmath.ZeroUint(), ErrNegativeAmount
	}
	scaled := d.Shift(decimals).Truncate(0).BigInt()
	if scaled.BitLen() > 256 {
		return sdkmath.ZeroUint(), ErrMathOverflow
	}
	return sdkmath.NewUintFromBigInt(scaled), nil
}
