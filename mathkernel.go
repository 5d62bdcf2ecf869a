// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// maskLow128 is (2^128 - 1), used to split a 256-bit value into two 128-bit
// limbs without an explicit 128-bit integer type.
var maskLow128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// FullMul128 computes the exact 128x128 -> 256 product of a and b, split
// into a high and low 128-bit limb: result == hi*2^128 + lo. Both operands
// must fit in 128 bits; holiman/uint256's native 256-bit width means the
// product itself never wraps, so this is a direct limb split of one wide
// multiply rather than the four-limb carry-propagation dance a narrower
// host language would need.
func FullMul128(a, b *uint256.Int) (hi, lo *uint256.Int, err error) {
	if a.BitLen() > 128 || b.BitLen() > 128 {
		return nil, nil, ErrOverflow
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, nil, ErrOverflow
	}
	lo = new(uint256.Int).And(product, maskLow128)
	hi = new(uint256.Int).Rsh(product, 128)
	return hi, lo, nil
}

// DivWide performs the floor division of a 256-bit dividend (given as high
// and low 128-bit limbs, hi*2^128 + lo) by a 128-bit divisor d. It fails
// with ErrOverflow when hi >= d, since the quotient would then need more
// than 128 bits, and with ErrDivisionByZero when d is zero.
func DivWide(hi, lo, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	if hi.Cmp(d) >= 0 {
		return nil, ErrOverflow
	}
	dividend := new(uint256.Int).Lsh(hi, 128)
	dividend.Or(dividend, lo)
	return new(uint256.Int).Div(dividend, d), nil
}

// MulDiv computes floor((a*b)/d). On a host with a native 128-bit integer
// (the environment this spec's formulas were originally written against),
// this requires the explicit FullMul128/DivWide limb split below to avoid
// losing precision; uint256.Int is natively 256 bits wide, so the same exact
// result follows directly from one overflow-checked wide multiply and a
// divide, with no intermediate limb decomposition needed. a and b may be up
// to 256 bits each; MulOverflow reports if their product would not fit.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Div(product, d), nil
}

// MulShiftRight96 computes (a*b) >> 96 for a <= 2^96-1 and b an arbitrary
// 128-bit value.
func MulShiftRight96(a, b *uint256.Int) (*uint256.Int, error) {
	if a.BitLen() > 96 {
		return nil, ErrOverflow
	}
	return mulShiftRight(a, b, 96)
}

// MulX96Wide is the MulShiftRight96 variant for operands that may exceed
// 2^96, using the full 256-bit product rather than rejecting the input.
func MulX96Wide(a, b *uint256.Int) (*uint256.Int, error) {
	return mulShiftRight(a, b, 96)
}

func mulShiftRight(a, b *uint256.Int, shift uint) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Rsh(product, shift), nil
}

// IntegerSqrt returns floor(sqrt(n)) via Newton iteration, seeded from the
// bit length of n so convergence is O(log log n).
func IntegerSqrt(n *uint256.Int) *uint256.Int {
	if n.IsZero() {
		return uint256.NewInt(0)
	}
	if n.Cmp(uint256.NewInt(1)) == 0 {
		return uint256.NewInt(1)
	}

	// Seed x0 above the true root: 2^(ceil(bitlen/2)+1).
	bits := uint(n.BitLen())
	x := new(uint256.Int).Lsh(uint256.NewInt(1), (bits+1)/2+1)

	for {
		// y = (x + n/x) / 2
		quotient := new(uint256.Int).Div(n, x)
		sum := new(uint256.Int).Add(x, quotient)
		y := new(uint256.Int).Rsh(sum, 1)
		if y.Cmp(x) >= 0 {
			break
		}
		x = y
	}

	// Correct for the rare off-by-one Newton can leave behind.
	for {
		square, overflow := new(uint256.Int).MulOverflow(x, x)
		if !overflow && square.Cmp(n) <= 0 {
			break
		}
		x = new(uint256.Int).Sub(x, uint256.NewInt(1))
	}
	for {
		next := new(uint256.Int).Add(x, uint256.NewInt(1))
		square, overflow := new(uint256.Int).MulOverflow(next, next)
		if overflow || square.Cmp(n) > 0 {
			break
		}
		x = next
	}
	return x
}

// CeilDiv computes ceil(a/b), guarded against a zero divisor.
func CeilDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	sum, overflow := new(uint256.Int).AddOverflow(a, new(uint256.Int).Sub(b, uint256.NewInt(1)))
	if overflow {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Div(sum, b), nil
}

// RoundToNearest rounds value/divisor to the nearest integer using
// banker's rounding (halves round to even), avoiding the cumulative bias a
// pure round-half-up scheme would introduce across repeated display <->
// virtual conversions.
func RoundToNearest(value, divisor *uint256.Int) (*uint256.Int, error) {
	if divisor.IsZero() {
		return nil, ErrDivisionByZero
	}
	quotient := new(uint256.Int).Div(value, divisor)
	remainder := new(uint256.Int).Mod(value, divisor)

	twiceRemainder := new(uint256.Int).Lsh(remainder, 1)
	switch twiceRemainder.Cmp(divisor) {
	case -1:
		return quotient, nil
	case 1:
		return new(uint256.Int).Add(quotient, uint256.NewInt(1)), nil
	default:
		// Exactly halfway: round to even.
		if !isEven(quotient) {
			return new(uint256.Int).Add(quotient, uint256.NewInt(1)), nil
		}
		return quotient, nil
	}
}

func isEven(v *uint256.Int) bool {
	return new(uint256.Int).And(v, uint256.NewInt(1)).IsZero()
}

// Q64FromU64 lifts a display-scale integer into Q64.64.
func Q64FromU64(v uint64) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(v), Q64Shift)
}

// Q64ToU64 floors a Q64.64 value back to an integer, failing if it would not
// fit in a uint64.
func Q64ToU64(v *uint256.Int) (uint64, error) {
	whole := new(uint256.Int).Rsh(v, Q64Shift)
	if !whole.IsUint64() {
		return 0, ErrOverflow
	}
	return whole.Uint64(), nil
}

// Q64Mul multiplies two Q64.64 values: (a*b) >> 64.
func Q64Mul(a, b *uint256.Int) (*uint256.Int, error) {
	return mulShiftRight(a, b, Q64Shift)
}

// Q64Div divides two Q64.64 values: (a << 64) / b. a must fit in 192 bits so
// the shifted dividend still fits the 256-bit container exactly.
func Q64Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	if a.BitLen() > 256-Q64Shift {
		return nil, ErrOverflow
	}
	dividend := new(uint256.Int).Lsh(a, Q64Shift)
	return new(uint256.Int).Div(dividend, b), nil
}

// Q64Sqrt computes sqrt(x) in Q64.64 as IntegerSqrt(x << 64).
func Q64Sqrt(x *uint256.Int) (*uint256.Int, error) {
	if x.BitLen() > 128 {
		return nil, ErrOverflow
	}
	widened := new(uint256.Int).Lsh(x, Q64Shift)
	return IntegerSqrt(widened), nil
}
