// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestComputeVirtualNormIdentityGauge(t *testing.T) {
	// With sigma == OneQ64 (identity gauge), s-hat == s exactly, so the norm
	// is the plain integer Euclidean norm floored.
	norm, err := ComputeVirtualNorm(OneQ64, OneQ64, 3, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if norm.Uint64() != 5 {
		t.Fatalf("ComputeVirtualNorm(3,4) = %s, want 5", norm)
	}
}

func TestDeriveLambdaWithinBand(t *testing.T) {
	// norm = 10^6 virtual units, vault balance chosen so lambda/2^96 == 100
	// microUSD, comfortably inside [10, 1e11].
	norm := uint256.NewInt(1_000_000)
	vaultBalance := uint64(100_000_000) // R = lambda_real * norm = 100 * 1e6
	lambdaQ96, err := DeriveLambda(vaultBalance, norm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lambdaReal := new(uint256.Int).Div(lambdaQ96, OneQ96)
	if lambdaReal.Uint64() != 100 {
		t.Fatalf("lambda_real = %s, want 100", lambdaReal)
	}
}

func TestDeriveLambdaRejectsBelowBand(t *testing.T) {
	norm := uint256.NewInt(1_000_000_000)
	vaultBalance := uint64(1) // lambda_real rounds to 0, below the band floor of 10
	if _, err := DeriveLambda(vaultBalance, norm); err != ErrPriceCalculationFailed {
		t.Fatalf("expected ErrPriceCalculationFailed, got %v", err)
	}
}

func TestDeriveLambdaRejectsZeroNorm(t *testing.T) {
	if _, err := DeriveLambda(1_000_000, uint256.NewInt(0)); err != ErrNoLiquidity {
		t.Fatalf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestDeriveLambdaForPoolComposition(t *testing.T) {
	sigmaL := OneQ64
	sigmaS := OneQ64
	lambdaQ96, err := DeriveLambdaForPool(sigmaL, sigmaS, 300_000, 400_000, 50_000_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// norm = sqrt(300000^2+400000^2) = 500000; lambda_real = 50e9/500000 = 1e5.
	lambdaReal := new(uint256.Int).Div(lambdaQ96, OneQ96)
	if lambdaReal.Uint64() != 100_000 {
		t.Fatalf("lambda_real = %s, want 100000", lambdaReal)
	}
}
