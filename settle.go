// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// SettleResult is the post-settlement state returned to the caller.
type SettleResult struct {
	RLong, RShort         uint64
	SigmaLong, SigmaShort *uint256.Int
	SqrtPriceLong         *uint256.Int
	SqrtPriceShort        *uint256.Int
	CurrentEpoch          uint64
}

// clampSettleFactor clamps a raw settlement factor (micro-units, base
// SettleFactorMicroBase) to [SettleFactorMin, SettleFactorMax].
func clampSettleFactor(raw uint64) uint64 {
	if raw < SettleFactorMin {
		return SettleFactorMin
	}
	if raw > SettleFactorMax {
		return SettleFactorMax
	}
	return raw
}

// settleFactorToQ64 converts a micro-unit factor (base 1_000_000) to Q64.64.
func settleFactorToQ64(factorMicro uint64) *uint256.Int {
	return new(uint256.Int).Div(
		new(uint256.Int).Lsh(uint256.NewInt(factorMicro), Q64Shift),
		uint256.NewInt(SettleFactorMicroBase),
	)
}

// Settle applies a belief-deviation score to a pool, per spec §4.9: it
// rescales both sigma gauges and both reserves by per-side factors derived
// from how far the oracle's belief (bdScore) diverges from the market's
// current prediction (q), then recouples the rescaled reserves back to the
// unchanged vault balance. Supplies and the vault balance itself are never
// touched; settlement reshapes the valuation manifold, not the holdings.
func Settle(pool *Pool, bdScore uint64, now int64, minSettleInterval int64) (*SettleResult, error) {
	if bdScore > QMicroBase {
		return nil, ErrInvalidBDScore
	}
	if now-pool.LastSettleTS < minSettleInterval {
		return nil, ErrSettlementCooldown
	}

	q := MarketPredictionQ(pool.RLong, pool.RShort)
	if q < QMicroClampLo {
		q = QMicroClampLo
	}
	if q > QMicroClampHi {
		q = QMicroClampHi
	}

	fLongRaw := new(uint256.Int).Mul(uint256.NewInt(bdScore), uint256.NewInt(QMicroBase))
	fLongRaw.Div(fLongRaw, uint256.NewInt(q))

	fShortRaw := new(uint256.Int).Mul(uint256.NewInt(QMicroBase-bdScore), uint256.NewInt(QMicroBase))
	fShortRaw.Div(fShortRaw, uint256.NewInt(QMicroBase-q))

	if !fLongRaw.IsUint64() {
		fLongRaw = uint256.NewInt(SettleFactorMax)
	}
	if !fShortRaw.IsUint64() {
		fShortRaw = uint256.NewInt(SettleFactorMax)
	}

	fLong := clampSettleFactor(fLongRaw.Uint64())
	fShort := clampSettleFactor(fShortRaw.Uint64())

	fLongQ64 := settleFactorToQ64(fLong)
	fShortQ64 := settleFactorToQ64(fShort)

	newSigmaLong, err := MulDiv(pool.SigmaLong, fLongQ64, OneQ64)
	if err != nil {
		return nil, err
	}
	newSigmaShort, err := MulDiv(pool.SigmaShort, fShortQ64, OneQ64)
	if err != nil {
		return nil, err
	}

	newSigmaLong, newSigmaShort, err = RenormalizeScales(newSigmaLong, newSigmaShort, pool.SLong, pool.SShort)
	if err != nil {
		return nil, err
	}

	newRLong := scaleReserve(pool.RLong, fLong)
	newRShort := scaleReserve(pool.RShort, fShort)

	newRLong, newRShort = recoupleReserves(newRLong, newRShort, pool.VaultBalance)

	lambdaQ96, err := DeriveLambdaForPool(newSigmaLong, newSigmaShort, pool.SLong, pool.SShort, pool.VaultBalance)
	if err != nil {
		return nil, err
	}
	sHatLong, err := VirtualSupply(pool.SLong, newSigmaLong)
	if err != nil {
		return nil, err
	}
	sHatShort, err := VirtualSupply(pool.SShort, newSigmaShort)
	if err != nil {
		return nil, err
	}
	sqrtPriceLong, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideLong, lambdaQ96, newSigmaLong)
	if err != nil {
		return nil, err
	}
	sqrtPriceShort, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideShort, lambdaQ96, newSigmaShort)
	if err != nil {
		return nil, err
	}

	return &SettleResult{
		RLong:          newRLong,
		RShort:         newRShort,
		SigmaLong:      newSigmaLong,
		SigmaShort:     newSigmaShort,
		SqrtPriceLong:  sqrtPriceLong,
		SqrtPriceShort: sqrtPriceShort,
		CurrentEpoch:   pool.CurrentEpoch + 1,
	}, nil
}

// scaleReserve computes floor(r * factorMicro / SettleFactorMicroBase).
func scaleReserve(r uint64, factorMicro uint64) uint64 {
	scaled := new(uint256.Int).Mul(uint256.NewInt(r), uint256.NewInt(factorMicro))
	scaled.Div(scaled, uint256.NewInt(SettleFactorMicroBase))
	if !scaled.IsUint64() {
		return ^uint64(0)
	}
	return scaled.Uint64()
}

// recoupleReserves rescales rLong/rShort proportionally so they sum exactly
// to vaultBalance, correcting the rounding drift scaleReserve's two
// independent floor divisions can otherwise leave behind.
func recoupleReserves(rLong, rShort, vaultBalance uint64) (uint64, uint64) {
	sum := rLong + rShort
	if sum == vaultBalance || sum == 0 {
		return rLong, rShort
	}
	newLong := new(uint256.Int).Mul(uint256.NewInt(rLong), uint256.NewInt(vaultBalance))
	newLong.Div(newLong, uint256.NewInt(sum))
	newLongU64 := newLong.Uint64()
	return newLongU64, vaultBalance - newLongU64
}
