// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// DecayResult is the post-decay reserve state.
type DecayResult struct {
	RLong, RShort                 uint64
	SqrtPriceLong, SqrtPriceShort *uint256.Int
}

// ShouldApplyDecay reports whether a trade entering at time now must apply
// post-expiration reserve decay first (spec §4.10): the pool must be past
// its expiration timestamp, and at least one full day must have elapsed
// since the last decay update.
func ShouldApplyDecay(pool *Pool, now int64) bool {
	if pool.ExpirationTimestamp == 0 || now <= pool.ExpirationTimestamp {
		return false
	}
	return (now-pool.LastDecayUpdate)/DecaySecondsPerDay >= 1
}

// qBps returns r_long * 10_000 / (r_long + r_short), defaulting to 5_000
// (one half) when both reserves are empty.
func qBps(rLong, rShort uint64) uint64 {
	total := rLong + rShort
	if total == 0 {
		return QBpsBase / 2
	}
	num := new(uint256.Int).Mul(uint256.NewInt(rLong), uint256.NewInt(QBpsBase))
	return new(uint256.Int).Div(num, uint256.NewInt(total)).Uint64()
}

// ApplyDecay attenuates a pool's reserves toward a floor market prediction,
// tiered by how many whole days have elapsed since expiration. It does not
// touch sigma, lambda, or the display supplies -- only the reserve split,
// using the same settlement-style factor scaling as Settle, reusing its
// clamp band.
func ApplyDecay(pool *Pool, now int64) (*DecayResult, error) {
	days := (now - pool.ExpirationTimestamp) / DecaySecondsPerDay

	var rateBps uint64
	switch {
	case days < DecayTierOneDays:
		rateBps = DecayRateTierOne
	case days < DecayTierTwoDays:
		rateBps = DecayRateTierTwo
	default:
		rateBps = DecayRateTierThree
	}

	qCurrentBps := qBps(pool.RLong, pool.RShort)
	decayAmount := uint64(days) * rateBps

	qTargetBps := DecayMinQBps
	if qCurrentBps > decayAmount {
		qTargetBps = qCurrentBps - decayAmount
		if qTargetBps < DecayMinQBps {
			qTargetBps = DecayMinQBps
		}
	}

	qMicro := qCurrentBps * 100
	qTargetMicro := qTargetBps * 100
	if qMicro == 0 {
		qMicro = 1
	}
	if qMicro >= QMicroBase {
		qMicro = QMicroBase - 1
	}

	fLongRaw := new(uint256.Int).Mul(uint256.NewInt(qTargetMicro), uint256.NewInt(QMicroBase))
	fLongRaw.Div(fLongRaw, uint256.NewInt(qMicro))

	fShortRaw := new(uint256.Int).Mul(uint256.NewInt(QMicroBase-qTargetMicro), uint256.NewInt(QMicroBase))
	fShortRaw.Div(fShortRaw, uint256.NewInt(QMicroBase-qMicro))

	if !fLongRaw.IsUint64() {
		fLongRaw = uint256.NewInt(SettleFactorMax)
	}
	if !fShortRaw.IsUint64() {
		fShortRaw = uint256.NewInt(SettleFactorMax)
	}

	fLong := clampSettleFactor(fLongRaw.Uint64())
	fShort := clampSettleFactor(fShortRaw.Uint64())

	newRLong := scaleReserve(pool.RLong, fLong)
	newRShort := scaleReserve(pool.RShort, fShort)
	newRLong, newRShort = recoupleReserves(newRLong, newRShort, pool.VaultBalance)

	lambdaQ96, err := DeriveLambdaForPool(pool.SigmaLong, pool.SigmaShort, pool.SLong, pool.SShort, pool.VaultBalance)
	if err != nil {
		return nil, err
	}
	sHatLong, err := VirtualSupply(pool.SLong, pool.SigmaLong)
	if err != nil {
		return nil, err
	}
	sHatShort, err := VirtualSupply(pool.SShort, pool.SigmaShort)
	if err != nil {
		return nil, err
	}
	sqrtPriceLong, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideLong, lambdaQ96, pool.SigmaLong)
	if err != nil {
		return nil, err
	}
	sqrtPriceShort, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideShort, lambdaQ96, pool.SigmaShort)
	if err != nil {
		return nil, err
	}

	return &DecayResult{
		RLong:          newRLong,
		RShort:         newRShort,
		SqrtPriceLong:  sqrtPriceLong,
		SqrtPriceShort: sqrtPriceShort,
	}, nil
}
