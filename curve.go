// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// Cost evaluates the ICBS cost function C(s_L, s_S) = lambda * sqrt(s_L^2 +
// s_S^2) for F=1, beta=1/2 -- the only curve family this core implements.
// Historical quadratic and cbrt-based curve families exist in the pool's
// prior history but are not reproduced here.
func Cost(sLong, sShort uint64, lambdaQ96 *uint256.Int) (*uint256.Int, error) {
	norm, err := euclideanNorm(sLong, sShort)
	if err != nil {
		return nil, err
	}
	return MulX96Wide(lambdaQ96, norm)
}

// euclideanNorm returns isqrt(sLong^2 + sShort^2) as a wide int.
func euclideanNorm(sLong, sShort uint64) (*uint256.Int, error) {
	l := uint256.NewInt(sLong)
	s := uint256.NewInt(sShort)
	lSq, overflow1 := new(uint256.Int).MulOverflow(l, l)
	sSq, overflow2 := new(uint256.Int).MulOverflow(s, s)
	if overflow1 || overflow2 {
		return nil, ErrOverflow
	}
	n2, overflow3 := new(uint256.Int).AddOverflow(lSq, sSq)
	if overflow3 {
		return nil, ErrOverflow
	}
	return IntegerSqrt(n2), nil
}

// SqrtMarginalPrice returns sqrt(p_i) * 2^96 for side i, where p_i = lambda *
// s_i / norm. Zero supply on side i returns zero rather than an error: a
// freshly-deployed side with no supply has no meaningful marginal price yet.
func SqrtMarginalPrice(sLong, sShort uint64, side Side, lambdaQ96 *uint256.Int) (*uint256.Int, error) {
	sI := sLong
	if side == SideShort {
		sI = sShort
	}
	if sI == 0 {
		return uint256.NewInt(0), nil
	}

	norm, err := euclideanNorm(sLong, sShort)
	if err != nil {
		return nil, err
	}
	if norm.IsZero() {
		norm = uint256.NewInt(1)
	}

	pQ96, err := MulDiv(lambdaQ96, uint256.NewInt(sI), norm)
	if err != nil {
		return nil, err
	}
	sqrtP := IntegerSqrt(pQ96)
	return new(uint256.Int).Lsh(sqrtP, 48), nil
}

// SqrtMarginalPriceFromVirtual is the virtualized variant consumed by
// trade/settle: it evaluates the same marginal-price pipeline on virtual
// supplies, converts the virtual price to a display-token price with the
// side's gauge (p_display = mul_div(p_virtual, 2^64, sigma)), and returns
// the square root of that display price in X96.
func SqrtMarginalPriceFromVirtual(sHatLong, sHatShort *uint256.Int, side Side, lambdaQ96 *uint256.Int, sigmaSide *uint256.Int) (*uint256.Int, error) {
	sHatI := sHatLong
	if side == SideShort {
		sHatI = sHatShort
	}
	if sHatI.IsZero() {
		return uint256.NewInt(0), nil
	}

	sqLong, overflow1 := new(uint256.Int).MulOverflow(sHatLong, sHatLong)
	sqShort, overflow2 := new(uint256.Int).MulOverflow(sHatShort, sHatShort)
	if overflow1 || overflow2 {
		return nil, ErrVirtualSupplyOverflow
	}
	n2, overflow3 := new(uint256.Int).AddOverflow(sqLong, sqShort)
	if overflow3 {
		return nil, ErrVirtualSupplyOverflow
	}
	norm := IntegerSqrt(n2)
	if norm.IsZero() {
		norm = uint256.NewInt(1)
	}

	pQ96, err := MulDiv(lambdaQ96, sHatI, norm)
	if err != nil {
		return nil, err
	}
	pDisplayQ96, err := MulDiv(pQ96, OneQ64, sigmaSide)
	if err != nil {
		return nil, err
	}
	sqrtP := IntegerSqrt(pDisplayQ96)
	return new(uint256.Int).Lsh(sqrtP, 48), nil
}

// ReserveFromLambdaAndVirtual is the only sanctioned way to compute a
// per-side reserve inside the core: r = mul_div(mul_div(lambda, s_this_v,
// norm_v), s_this_v, 2^96). Squaring a stored sqrt-price is forbidden
// because it silently mixes display and virtual units.
func ReserveFromLambdaAndVirtual(sThisVirtual, sOtherVirtual, lambdaQ96 *uint256.Int) (*uint256.Int, error) {
	sqThis, overflow1 := new(uint256.Int).MulOverflow(sThisVirtual, sThisVirtual)
	sqOther, overflow2 := new(uint256.Int).MulOverflow(sOtherVirtual, sOtherVirtual)
	if overflow1 || overflow2 {
		return nil, ErrVirtualSupplyOverflow
	}
	n2, overflow3 := new(uint256.Int).AddOverflow(sqThis, sqOther)
	if overflow3 {
		return nil, ErrVirtualSupplyOverflow
	}
	normV := IntegerSqrt(n2)
	if normV.IsZero() {
		normV = uint256.NewInt(1)
	}

	pVQ96, err := MulDiv(lambdaQ96, sThisVirtual, normV)
	if err != nil {
		return nil, err
	}
	return MulDiv(pVQ96, sThisVirtual, OneQ96)
}

// CalculateBuy solves for the virtual-unit delta a usdcIn deposit buys on
// the given side, holding the other side's virtual supply fixed, and
// returns the post-trade display sqrt-price for UX.
//
//	norm_before = isqrt(currentVirtual^2 + otherVirtual^2)
//	delta_norm  = mul_div(usdcIn, 2^96, lambdaQ96)
//	norm_after  = norm_before + delta_norm
//	new_s       = isqrt(norm_after^2 - otherVirtual^2)
func CalculateBuy(currentVirtual, otherVirtual *uint256.Int, usdcIn uint64, lambdaQ96 *uint256.Int, side Side, sigmaThis *uint256.Int) (deltaVirtual *uint256.Int, newSqrtPriceDisplay *uint256.Int, err error) {
	curSq, overflow1 := new(uint256.Int).MulOverflow(currentVirtual, currentVirtual)
	otherSq, overflow2 := new(uint256.Int).MulOverflow(otherVirtual, otherVirtual)
	if overflow1 || overflow2 {
		return nil, nil, ErrVirtualSupplyOverflow
	}
	beforeSq, overflow3 := new(uint256.Int).AddOverflow(curSq, otherSq)
	if overflow3 {
		return nil, nil, ErrVirtualSupplyOverflow
	}
	normBefore := IntegerSqrt(beforeSq)

	deltaNorm, err := MulDiv(uint256.NewInt(usdcIn), OneQ96, lambdaQ96)
	if err != nil {
		return nil, nil, err
	}

	normAfter, overflow4 := new(uint256.Int).AddOverflow(normBefore, deltaNorm)
	if overflow4 {
		return nil, nil, ErrOverflow
	}
	if !normAfter.IsUint64() {
		return nil, nil, ErrOverflow
	}

	normAfterSq, overflow5 := new(uint256.Int).MulOverflow(normAfter, normAfter)
	if overflow5 {
		return nil, nil, ErrOverflow
	}
	if normAfterSq.Cmp(otherSq) < 0 {
		return nil, nil, ErrOverflow
	}
	newSSq := new(uint256.Int).Sub(normAfterSq, otherSq)
	newS := IntegerSqrt(newSSq)

	if newS.Cmp(currentVirtual) <= 0 {
		return nil, nil, ErrOverflow
	}
	if !newS.IsUint64() {
		return nil, nil, ErrSupplyOverflow
	}

	delta := new(uint256.Int).Sub(newS, currentVirtual)

	var sHatLong, sHatShort *uint256.Int
	if side == SideLong {
		sHatLong, sHatShort = newS, otherVirtual
	} else {
		sHatLong, sHatShort = otherVirtual, newS
	}

	priceAfter, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, side, lambdaQ96, sigmaThis)
	if err != nil {
		return nil, nil, err
	}
	return delta, priceAfter, nil
}

// CalculateSell solves for the usdc proceeds of burning tokens virtual units
// off the given side, using cost_before - cost_after in microUSD. A
// saturating subtraction guards against a 1-ULP regression in cost across
// the rounding chain: the sell-after-buy round trip must still lose no more
// than 1% to rounding, and a negative-looking delta here would otherwise be
// a spurious Underflow rather than the near-zero fee it actually represents.
func CalculateSell(currentVirtual, otherVirtual, tokensVirtual *uint256.Int, lambdaQ96 *uint256.Int, side Side, sigmaThis *uint256.Int) (usdcOut *uint256.Int, newSqrtPriceDisplay *uint256.Int, err error) {
	if tokensVirtual.Cmp(currentVirtual) > 0 {
		return nil, nil, ErrInsufficientBalance
	}
	newS := new(uint256.Int).Sub(currentVirtual, tokensVirtual)

	var sHatLongBefore, sHatShortBefore, sHatLongAfter, sHatShortAfter *uint256.Int
	if side == SideLong {
		sHatLongBefore, sHatShortBefore = currentVirtual, otherVirtual
		sHatLongAfter, sHatShortAfter = newS, otherVirtual
	} else {
		sHatLongBefore, sHatShortBefore = otherVirtual, currentVirtual
		sHatLongAfter, sHatShortAfter = otherVirtual, newS
	}

	costBefore, err := costWide(sHatLongBefore, sHatShortBefore, lambdaQ96)
	if err != nil {
		return nil, nil, err
	}
	costAfter, err := costWide(sHatLongAfter, sHatShortAfter, lambdaQ96)
	if err != nil {
		return nil, nil, err
	}

	if costBefore.Cmp(costAfter) <= 0 {
		usdcOut = uint256.NewInt(0)
	} else {
		usdcOut = new(uint256.Int).Sub(costBefore, costAfter)
	}

	priceAfter, err := SqrtMarginalPriceFromVirtual(sHatLongAfter, sHatShortAfter, side, lambdaQ96, sigmaThis)
	if err != nil {
		return nil, nil, err
	}
	return usdcOut, priceAfter, nil
}

// costWide is Cost generalized to virtual-unit operands that may exceed a
// uint64, as needed mid-sell when either side's virtual supply is large.
func costWide(sLongV, sShortV, lambdaQ96 *uint256.Int) (*uint256.Int, error) {
	lSq, overflow1 := new(uint256.Int).MulOverflow(sLongV, sLongV)
	sSq, overflow2 := new(uint256.Int).MulOverflow(sShortV, sShortV)
	if overflow1 || overflow2 {
		return nil, ErrOverflow
	}
	n2, overflow3 := new(uint256.Int).AddOverflow(lSq, sSq)
	if overflow3 {
		return nil, ErrOverflow
	}
	norm := IntegerSqrt(n2)
	return MulX96Wide(lambdaQ96, norm)
}

// MarketPredictionQ returns r_long / (r_long + r_short) in millionths,
// defaulting to one half when both reserves are empty.
func MarketPredictionQ(rLong, rShort uint64) uint64 {
	total := rLong + rShort
	if total == 0 {
		return QMicroDefault
	}
	num := new(uint256.Int).Mul(uint256.NewInt(rLong), uint256.NewInt(QMicroBase))
	return new(uint256.Int).Div(num, uint256.NewInt(total)).Uint64()
}
