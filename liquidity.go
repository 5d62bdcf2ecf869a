// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// LiquidityResult is the display-unit token amounts minted to each side by
// AddLiquidity.
type LiquidityResult struct {
	LongTokens, ShortTokens uint64
	RLong, RShort           uint64
	VaultBalance            uint64
	SigmaLong, SigmaShort   *uint256.Int
	SqrtPriceLong           *uint256.Int
	SqrtPriceShort          *uint256.Int
}

// ComputeAddLiquidity implements the bilateral add-liquidity handler of
// spec §4.8: it splits usdcAmount across both sides in the pool's current
// q ratio (computed before the deposit lands, so the deposit itself cannot
// move q), mints matching display tokens on each side at that side's
// current price, and re-derives lambda and reserves from the post-mint
// virtual supplies so the reserve-sum invariant holds mechanically rather
// than by construction.
func ComputeAddLiquidity(pool *Pool, usdcAmount uint64) (*LiquidityResult, error) {
	if usdcAmount == 0 {
		return nil, ErrInvalidTradeAmount
	}
	if pool.RLong+pool.RShort == 0 {
		return nil, ErrNoLiquidity
	}

	qMicro := MarketPredictionQ(pool.RLong, pool.RShort)

	longUSDC := new(uint256.Int).Mul(uint256.NewInt(usdcAmount), uint256.NewInt(qMicro))
	longUSDC.Div(longUSDC, uint256.NewInt(QMicroBase))
	if !longUSDC.IsUint64() {
		return nil, ErrOverflow
	}
	longUSDCAmount := longUSDC.Uint64()
	shortUSDCAmount := usdcAmount - longUSDCAmount

	newVaultBalance := pool.VaultBalance + usdcAmount

	newSigmaLong, newSigmaShort, err := RenormalizeScales(pool.SigmaLong, pool.SigmaShort, pool.SLong, pool.SShort)
	if err != nil {
		return nil, err
	}

	lambdaQ96, err := DeriveLambdaForPool(newSigmaLong, newSigmaShort, pool.SLong, pool.SShort, newVaultBalance)
	if err != nil {
		return nil, err
	}

	longTokens, err := tokensForSide(pool.SLong, newSigmaLong, pool.SShort, newSigmaShort, SideLong, lambdaQ96, longUSDCAmount)
	if err != nil {
		return nil, err
	}
	shortTokens, err := tokensForSide(pool.SLong, newSigmaLong, pool.SShort, newSigmaShort, SideShort, lambdaQ96, shortUSDCAmount)
	if err != nil {
		return nil, err
	}

	newSLong := pool.SLong + longTokens
	newSShort := pool.SShort + shortTokens
	if newSLong > SDisplayCap || newSShort > SDisplayCap {
		return nil, ErrSupplyOverflow
	}

	sHatLong, err := VirtualSupply(newSLong, newSigmaLong)
	if err != nil {
		return nil, err
	}
	sHatShort, err := VirtualSupply(newSShort, newSigmaShort)
	if err != nil {
		return nil, err
	}

	// Re-derive lambda over the post-mint supplies so the curve's reserve
	// split of them sums to the new vault balance.
	lambdaAfter, err := DeriveLambdaForPool(newSigmaLong, newSigmaShort, newSLong, newSShort, newVaultBalance)
	if err != nil {
		return nil, err
	}

	sqrtPriceLong, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideLong, lambdaAfter, newSigmaLong)
	if err != nil {
		return nil, err
	}
	sqrtPriceShort, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideShort, lambdaAfter, newSigmaShort)
	if err != nil {
		return nil, err
	}

	rLongWide, err := ReserveFromLambdaAndVirtual(sHatLong, sHatShort, lambdaAfter)
	if err != nil {
		return nil, err
	}
	if !rLongWide.IsUint64() || rLongWide.Uint64() > newVaultBalance {
		return nil, ErrOverflow
	}
	rLong := rLongWide.Uint64()
	rShort := newVaultBalance - rLong

	return &LiquidityResult{
		LongTokens:     longTokens,
		ShortTokens:    shortTokens,
		RLong:          rLong,
		RShort:         rShort,
		VaultBalance:   newVaultBalance,
		SigmaLong:      newSigmaLong,
		SigmaShort:     newSigmaShort,
		SqrtPriceLong:  sqrtPriceLong,
		SqrtPriceShort: sqrtPriceShort,
	}, nil
}

// tokensForSide converts a USDC amount deposited on one side into display
// tokens: tokens_display = (usdc_side * 2^96) / p_display_Q96, where
// p_display_Q96 = mul_div(mul_div(lambda, s_hat_i, norm_v), 2^64, sigma_i)
// is the (non-square-rooted) per-side display price. Computing it this way
// rather than by squaring a stored sqrt-price keeps display and virtual
// units from ever mixing, per the same rule ReserveFromLambdaAndVirtual
// enforces for reserves.
func tokensForSide(sLong uint64, sigmaLong *uint256.Int, sShort uint64, sigmaShort *uint256.Int, side Side, lambdaQ96 *uint256.Int, usdcSide uint64) (uint64, error) {
	if usdcSide == 0 {
		return 0, nil
	}

	sHatLong, err := VirtualSupply(sLong, sigmaLong)
	if err != nil {
		return 0, err
	}
	sHatShort, err := VirtualSupply(sShort, sigmaShort)
	if err != nil {
		return 0, err
	}

	sHatI, sigmaSide := sHatLong, sigmaLong
	if side == SideShort {
		sHatI, sigmaSide = sHatShort, sigmaShort
	}

	sqLong, overflow1 := new(uint256.Int).MulOverflow(sHatLong, sHatLong)
	sqShort, overflow2 := new(uint256.Int).MulOverflow(sHatShort, sHatShort)
	if overflow1 || overflow2 {
		return 0, ErrVirtualSupplyOverflow
	}
	n2, overflow3 := new(uint256.Int).AddOverflow(sqLong, sqShort)
	if overflow3 {
		return 0, ErrVirtualSupplyOverflow
	}
	normV := IntegerSqrt(n2)
	if normV.IsZero() {
		normV = uint256.NewInt(1)
	}

	pVQ96, err := MulDiv(lambdaQ96, sHatI, normV)
	if err != nil {
		return 0, err
	}
	pDisplayQ96, err := MulDiv(pVQ96, OneQ64, sigmaSide)
	if err != nil {
		return 0, err
	}
	if pDisplayQ96.IsZero() {
		return 0, ErrPriceCalculationFailed
	}

	tokens, err := MulDiv(uint256.NewInt(usdcSide), OneQ96, pDisplayQ96)
	if err != nil {
		return 0, err
	}
	if !tokens.IsUint64() {
		return 0, ErrSupplyOverflow
	}
	return tokens.Uint64(), nil
}
