// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// ComputeVirtualNorm returns ||s-hat|| = sqrt(s-hat_L^2 + s-hat_S^2), the
// Euclidean norm the ICBS cost function is linear in. Callers must have
// already run sigmaL/sigmaS through RenormalizeScales; this function does
// not renormalize on its own, matching the spec's layering where
// renormalization is a precondition of lambda derivation rather than part
// of it.
func ComputeVirtualNorm(sigmaL, sigmaS *uint256.Int, sL, sS uint64) (*uint256.Int, error) {
	sHatL, err := VirtualSupply(sL, sigmaL)
	if err != nil {
		return nil, err
	}
	sHatS, err := VirtualSupply(sS, sigmaS)
	if err != nil {
		return nil, err
	}

	sqL, overflow1 := new(uint256.Int).MulOverflow(sHatL, sHatL)
	sqS, overflow2 := new(uint256.Int).MulOverflow(sHatS, sHatS)
	if overflow1 || overflow2 {
		return nil, ErrVirtualSupplyOverflow
	}
	normSq, overflow3 := new(uint256.Int).AddOverflow(sqL, sqS)
	if overflow3 {
		return nil, ErrVirtualSupplyOverflow
	}
	return IntegerSqrt(normSq), nil
}

// DeriveLambda recomputes the price coefficient lambda (Q96) from the vault
// reserve balance and the pool's current virtual norm: lambda = R / ||s-hat||
// in Q96. Lambda is never persisted as a source of truth; every trade,
// settlement, and decay step re-derives it here from the pool's cached
// VaultBalance, so a stored lambda can never diverge from that balance.
// The Ledger is not queried for the live vault balance.
//
// The result is passed through a sanity gate (spec invariant: lambda/2^96
// in [10, 1e11] microUSD) before being trusted by any caller; a value
// outside that band almost certainly indicates a corrupted pool state
// rather than a legitimate price, so it is rejected rather than clamped.
func DeriveLambda(vaultBalance uint64, norm *uint256.Int) (*uint256.Int, error) {
	if norm.IsZero() {
		return nil, ErrNoLiquidity
	}

	r := uint256.NewInt(vaultBalance)
	lambdaQ96, err := MulDiv(r, OneQ96, norm)
	if err != nil {
		return nil, err
	}

	if lambdaQ96.Cmp(LambdaMinQ96) < 0 || lambdaQ96.Cmp(LambdaMaxQ96) > 0 {
		return nil, ErrPriceCalculationFailed
	}
	return lambdaQ96, nil
}

// DeriveLambdaForPool is the convenience composition of ComputeVirtualNorm
// and DeriveLambda used by trade, settlement, and decay: given the pool's
// (already renormalized) gauges, display supplies, and cached vault
// balance, it returns the current lambda in Q96.
func DeriveLambdaForPool(sigmaL, sigmaS *uint256.Int, sL, sS uint64, vaultBalance uint64) (*uint256.Int, error) {
	norm, err := ComputeVirtualNorm(sigmaL, sigmaS, sL, sS)
	if err != nil {
		return nil, err
	}
	return DeriveLambda(vaultBalance, norm)
}
