// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestVirtualSupplyZero(t *testing.T) {
	got, err := VirtualSupply(0, OneQ64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("VirtualSupply(0, _) = %s, want 0", got)
	}
}

func TestVirtualSupplyFloorsAtOne(t *testing.T) {
	// A huge sigma relative to a tiny display supply should still floor at 1,
	// never collapse to zero.
	hugeSigma := new(uint256.Int).Mul(OneQ64, uint256.NewInt(1<<20))
	got, err := VirtualSupply(1, hugeSigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 1 {
		t.Fatalf("VirtualSupply(1, huge sigma) = %s, want 1", got)
	}
}

func TestVirtualSupplyIdentityGauge(t *testing.T) {
	// sigma == 2^64 (OneQ64) means s-hat == s exactly.
	got, err := VirtualSupply(12345, OneQ64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 12345 {
		t.Fatalf("VirtualSupply(12345, OneQ64) = %s, want 12345", got)
	}
}

func TestVirtualSupplyCheckedOverflow(t *testing.T) {
	// sigma much smaller than 2^64 inflates s-hat past uint64 range.
	tinySigma := uint256.NewInt(1)
	_, err := VirtualSupplyChecked(1<<32, tinySigma)
	if err != ErrVirtualSupplyOverflow {
		t.Fatalf("expected ErrVirtualSupplyOverflow, got %v", err)
	}
}

func TestVirtualToDisplayRoundTrip(t *testing.T) {
	sigma := OneQ64
	display := uint64(999)
	vhat, err := VirtualSupply(display, sigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := VirtualToDisplay(vhat, sigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != display {
		t.Fatalf("round trip %d -> %s -> %d", display, vhat, back)
	}
}

func TestRenormalizeScalesNoopWithinBand(t *testing.T) {
	sigmaL := new(uint256.Int).Mul(OneQ64, uint256.NewInt(1<<10))
	sigmaS := new(uint256.Int).Mul(OneQ64, uint256.NewInt(1<<10))
	// s-hat = 1e9/2^10 ~= 976_563 per side, so ||s-hat|| is inside [2^16, 2^31].
	newL, newS, err := RenormalizeScales(sigmaL, sigmaS, 1_000_000_000, 1_000_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newL.Cmp(sigmaL) != 0 || newS.Cmp(sigmaS) != 0 {
		t.Fatalf("expected no-op, got sigmaL=%s sigmaS=%s", newL, newS)
	}
}

func TestRenormalizeScalesClampsAboveBand(t *testing.T) {
	// sigma well past 2^96 must be pulled back down to the band.
	tooLarge := new(uint256.Int).Lsh(uint256.NewInt(1), 150)
	newL, newS, err := RenormalizeScales(tooLarge, tooLarge, 1_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newL.Cmp(SigmaBandMax) > 0 || newS.Cmp(SigmaBandMax) > 0 {
		t.Fatalf("sigmaL=%s sigmaS=%s exceed band max %s", newL, newS, SigmaBandMax)
	}
}

func TestRenormalizeScalesClampsBelowBand(t *testing.T) {
	tooSmall := uint256.NewInt(4)
	newL, newS, err := RenormalizeScales(tooSmall, tooSmall, 1_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newL.Cmp(SigmaBandMin) < 0 || newS.Cmp(SigmaBandMin) < 0 {
		t.Fatalf("sigmaL=%s sigmaS=%s fall below band min %s", newL, newS, SigmaBandMin)
	}
}

func TestRenormalizeScalesSkipsUndeployedPool(t *testing.T) {
	tooLarge := new(uint256.Int).Lsh(uint256.NewInt(1), 150)
	newL, newS, err := RenormalizeScales(tooLarge, tooLarge, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Step 1/2 band clamp still applies even pre-deploy.
	if newL.Cmp(SigmaBandMax) > 0 || newS.Cmp(SigmaBandMax) > 0 {
		t.Fatalf("sigmaL=%s sigmaS=%s exceed band max %s", newL, newS, SigmaBandMax)
	}
}

func TestRenormalizeScalesPreservesRatio(t *testing.T) {
	sigmaL := new(uint256.Int).Lsh(uint256.NewInt(3), 130)
	sigmaS := new(uint256.Int).Lsh(uint256.NewInt(1), 130)
	newL, newS, err := RenormalizeScales(sigmaL, sigmaS, 500_000, 500_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both sides shifted by the same amount in steps 1/2, so the 3:1 ratio
	// from the original gauges survives.
	tripled := new(uint256.Int).Mul(newS, uint256.NewInt(3))
	if tripled.Cmp(newL) != 0 {
		t.Fatalf("ratio not preserved: newL=%s newS=%s", newL, newS)
	}
}
