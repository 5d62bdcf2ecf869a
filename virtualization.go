// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// virtualNormSqMin/Max are the squared bounds of the renormalization band,
// checked against the squared norm so renormalize never has to call
// IntegerSqrt on the hot path.
var (
	virtualNormSqMin = new(uint256.Int).Mul(VirtualNormBandMin, VirtualNormBandMin)
	virtualNormSqMax = new(uint256.Int).Mul(VirtualNormBandMax, VirtualNormBandMax)
)

// VirtualSupply computes s-hat = ceil(s * 2^64 / sigma), floored at 1
// whenever s > 0. The ceiling (rather than floor) is deliberate: it is the
// only thing standing between a deeply-settled pool and a virtual supply
// that collapses to zero.
func VirtualSupply(s uint64, sigma *uint256.Int) (*uint256.Int, error) {
	if s == 0 {
		return uint256.NewInt(0), nil
	}
	numerator := new(uint256.Int).Lsh(uint256.NewInt(s), Q64Shift)
	raw, err := CeilDiv(numerator, sigma)
	if err != nil {
		return nil, err
	}
	if raw.IsZero() {
		raw = uint256.NewInt(1)
	}
	return raw, nil
}

// VirtualSupplyChecked is VirtualSupply with the invariant-8 guard that the
// result still fits a uint64, returning ErrVirtualSupplyOverflow otherwise.
func VirtualSupplyChecked(s uint64, sigma *uint256.Int) (uint64, error) {
	raw, err := VirtualSupply(s, sigma)
	if err != nil {
		return 0, err
	}
	if !raw.IsUint64() {
		return 0, ErrVirtualSupplyOverflow
	}
	return raw.Uint64(), nil
}

// VirtualToDisplay converts a virtual-unit delta back to display units using
// banker's rounding, following the gauge: display ~= deltaVirtual * sigma /
// 2^64. Computing it as one wide multiply-then-round (rather than first
// forming the divisor 2^64/sigma and rounding twice) avoids compounding
// rounding error across repeated conversions.
func VirtualToDisplay(deltaVirtual, sigma *uint256.Int) (uint64, error) {
	scaled, overflow := new(uint256.Int).MulOverflow(deltaVirtual, sigma)
	if overflow {
		return 0, ErrOverflow
	}
	rounded, err := RoundToNearest(scaled, OneQ64)
	if err != nil {
		return 0, err
	}
	if !rounded.IsUint64() {
		return 0, ErrSupplyOverflow
	}
	return rounded.Uint64(), nil
}

// DisplayDeltaToVirtual converts a display-unit trade delta to virtual
// units using banker's rounding: virtual = round_to_nearest(displayDelta *
// 2^64, sigma). This is the forward counterpart of VirtualToDisplay, used
// when a sell amount (not an absolute supply) needs a virtual-unit
// equivalent; absolute supplies always go through VirtualSupply's ceiling
// division instead, to preserve the zero-collapse guarantee.
func DisplayDeltaToVirtual(displayDelta uint64, sigma *uint256.Int) (*uint256.Int, error) {
	numerator := new(uint256.Int).Lsh(uint256.NewInt(displayDelta), Q64Shift)
	return RoundToNearest(numerator, sigma)
}

// bitLenExcess returns how many bits v's bit length exceeds capExp by, i.e.
// the smallest shift guaranteed to bring v back at or under 2^capExp. It is
// intentionally conservative (it may request one bit more than the true
// minimal shift) so renormalization stays a fixed two-shift computation
// rather than a search loop.
func bitLenExcess(v *uint256.Int, capExp int) uint {
	bl := v.BitLen()
	if bl <= capExp {
		return 0
	}
	return uint(bl - capExp)
}

// bitLenDeficit returns the smallest left-shift guaranteed to bring v at or
// above 2^floorExp.
func bitLenDeficit(v *uint256.Int, floorExp int) uint {
	if v.IsZero() {
		return uint(floorExp + 1)
	}
	bl := v.BitLen()
	need := floorExp + 1 - bl
	if need <= 0 {
		return 0
	}
	return uint(need)
}

// RenormalizeScales performs the O(1) gauge renormalization of spec §4.3: it
// keeps sigma_L and sigma_S within [2^48, 2^96] and the virtual norm
// ||s-hat|| within [2^16, 2^31], via power-of-two shifts applied
// simultaneously to both sides so every price ratio is preserved. It must be
// called before every lambda derivation and before every trade/settlement.
func RenormalizeScales(sigmaL, sigmaS *uint256.Int, sL, sS uint64) (*uint256.Int, *uint256.Int, error) {
	newL := new(uint256.Int).Set(sigmaL)
	newS := new(uint256.Int).Set(sigmaS)

	// Step 1: bring the larger gauge back under 2^96.
	maxSigma := newL
	if newS.Cmp(newL) > 0 {
		maxSigma = newS
	}
	if shift := bitLenExcess(maxSigma, 96); shift > 0 {
		newL = new(uint256.Int).Rsh(newL, shift)
		newS = new(uint256.Int).Rsh(newS, shift)
	}

	// Step 2: bring the smaller gauge back above 2^48.
	minSigma := newL
	if newS.Cmp(newL) < 0 {
		minSigma = newS
	}
	if shift := bitLenDeficit(minSigma, 48); shift > 0 {
		newL = new(uint256.Int).Lsh(newL, shift)
		newS = new(uint256.Int).Lsh(newS, shift)
	}

	if sL == 0 && sS == 0 {
		// Pool not yet deployed: no virtual supply to check against.
		return newL, newS, nil
	}

	// Step 3: bring the squared virtual norm back within band by shifting
	// sigma the other way (raising s-hat means lowering sigma).
	sHatL, err := VirtualSupply(sL, newL)
	if err != nil {
		return nil, nil, err
	}
	sHatS, err := VirtualSupply(sS, newS)
	if err != nil {
		return nil, nil, err
	}

	sqL, overflow1 := new(uint256.Int).MulOverflow(sHatL, sHatL)
	sqS, overflow2 := new(uint256.Int).MulOverflow(sHatS, sHatS)
	if overflow1 || overflow2 {
		return nil, nil, ErrVirtualSupplyOverflow
	}
	normSq, overflow3 := new(uint256.Int).AddOverflow(sqL, sqS)
	if overflow3 {
		return nil, nil, ErrVirtualSupplyOverflow
	}

	switch {
	case normSq.Cmp(virtualNormSqMin) < 0:
		deficitBits := uint(virtualNormSqMin.BitLen() - normSq.BitLen())
		shift := (deficitBits + 1 + 1) / 2
		newL = new(uint256.Int).Rsh(newL, shift)
		newS = new(uint256.Int).Rsh(newS, shift)
	case normSq.Cmp(virtualNormSqMax) > 0:
		excessBits := uint(normSq.BitLen() - virtualNormSqMax.BitLen())
		shift := (excessBits + 1 + 1) / 2
		newL = new(uint256.Int).Lsh(newL, shift)
		newS = new(uint256.Int).Lsh(newS, shift)
	}

	return newL, newS, nil
}
