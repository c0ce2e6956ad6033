// Package feemath holds the fixed-point helpers shared by the vault and the
// deposit intake: basis-point fees with ceiling rounding and asset/share
// conversion with a virtual offset of one unit on both sides.
package feemath

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// BasisPointScale is the denominator of every basis-point fee.
const BasisPointScale = 10000

// Rounding selects the direction of an integer division.
type Rounding int

const (
	// Floor rounds toward zero.
	Floor Rounding = iota
	// Ceil rounds away from zero when there is a remainder.
	Ceil
)

func (r Rounding) String() string {
	switch r {
	case Floor:
		return "floor"
	case Ceil:
		return "ceil"
	default:
		return fmt.Sprintf("rounding(%d)", int(r))
	}
}

// MaxUint256 is the largest representable amount. As a deposit ceiling it
// means "no ceiling".
var MaxUint256 = sdkmath.NewUintFromBigInt(
	new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)),
)

// IsMax reports whether u equals MaxUint256.
func IsMax(u sdkmath.Uint) bool {
	return u.Equal(MaxUint256)
}

// MulDiv returns x*y/d rounded as requested. The product is computed at full
// precision, so only the final quotient must fit in 256 bits.
func MulDiv(x, y, d sdkmath.Uint, rounding Rounding) (sdkmath.Uint, error) {
	if d.IsZero() {
		return sdkmath.ZeroUint(), ErrDivisionByZero
	}
	prod := new(big.Int).Mul(x.BigInt(), y.BigInt())
	q, rem := new(big.Int).QuoRem(prod, d.BigInt(), new(big.Int))
	if rounding == Ceil && rem.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	if q.BitLen() > 256 {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: %d*%d/%d", ErrMathOverflow, x.BigInt(), y.BigInt(), d.BigInt())
	}
	return sdkmath.NewUintFromBigInt(q), nil
}

// FeeOnTotal returns the fee contained in an amount that already includes it:
// ceil(amount * bps / (bps + BasisPointScale)).
func FeeOnTotal(amount sdkmath.Uint, bps uint64) sdkmath.Uint {
	if bps == 0 {
		return sdkmath.ZeroUint()
	}
	// The quotient is never larger than amount, so it cannot overflow.
	fee, _ := MulDiv(amount, sdkmath.NewUint(bps), sdkmath.NewUint(bps+BasisPointScale), Ceil)
	return fee
}

// FeeOnRaw returns the fee to add on top of an amount that does not include
// it: ceil(amount * bps / BasisPointScale). bps must not exceed
// BasisPointScale.
func FeeOnRaw(amount sdkmath.Uint, bps uint64) sdkmath.Uint {
	if bps == 0 {
		return sdkmath.ZeroUint()
	}
	fee, _ := MulDiv(amount, sdkmath.NewUint(bps), sdkmath.NewUint(BasisPointScale), Ceil)
	return fee
}

// ConvertToShares converts assets to shares against the given totals:
// assets * (totalSupply + 1) / (totalAssets + 1).
func ConvertToShares(assets, totalSupply, totalAssets sdkmath.Uint, rounding Rounding) (sdkmath.Uint, error) {
	return MulDiv(assets, totalSupply.Incr(), totalAssets.Incr(), rounding)
}

// ConvertToAssets converts shares to assets against the given totals:
// shares * (totalAssets + 1) / (totalSupply + 1).
func ConvertToAssets(shares, totalSupply, totalAssets sdkmath.Uint, rounding Rounding) (sdkmath.Uint, error) {
	return MulDiv(shares, totalAssets.Incr(), totalSupply.Incr(), rounding)
}

// CheckedAdd returns a+b or ErrMathOverflow.
func CheckedAdd(a, b sdkmath.Uint) (sdkmath.Uint, error) {
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	if sum.BitLen() > 256 {
		return sdkmath.ZeroUint(), fmt.Errorf("%w: %s+%s", ErrMathOverflow, a, b)
	}
	return sdkmath.NewUintFromBigInt(sum), nil
}

// SaturatingSub returns a-b, or zero when b > a.
func SaturatingSub(a, b sdkmath.Uint) sdkmath.Uint {
	if b.GTE(a) {
		return sdkmath.ZeroUint()
	}
	return a.Sub(b)
}
