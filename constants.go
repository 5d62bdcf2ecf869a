// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// Q-format shift widths.
const (
	Q32Shift = 32
	Q64Shift = 64
	Q96Shift = 96
)

// Wide fixed-point unit constants, all expressed as *uint256.Int so kernel
// and curve arithmetic never has to re-derive them.
var (
	// OneQ32 is 1.0 in Q32.32 (initial_q's native format).
	OneQ32 = new(uint256.Int).Lsh(uint256.NewInt(1), Q32Shift)
	// OneQ64 is 1.0 in Q64.64 (sigma's native format).
	OneQ64 = new(uint256.Int).Lsh(uint256.NewInt(1), Q64Shift)
	// OneQ96 is 1.0 in Q96 (lambda and sqrt-price's native format).
	OneQ96 = new(uint256.Int).Lsh(uint256.NewInt(1), Q96Shift)

	// SigmaBandMin/Max bound every virtualization gauge (spec invariant 3).
	SigmaBandMin = new(uint256.Int).Lsh(uint256.NewInt(1), 48)
	SigmaBandMax = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

	// VirtualNormBandMin/Max bound ||s-hat|| after renormalization.
	VirtualNormBandMin = uint256.NewInt(1 << 16)
	VirtualNormBandMax = uint256.NewInt(1 << 31)

	// LambdaMinQ96/MaxQ96 bound the derived price coefficient: lambda/2^96
	// must lie in [10, 1e11] microUSD (spec 4.4 point 5).
	LambdaMinQ96 = new(uint256.Int).Mul(uint256.NewInt(10), OneQ96)
	LambdaMaxQ96 = new(uint256.Int).Mul(uint256.NewInt(100_000_000_000), OneQ96)

	// MaxUint64Wide is math.MaxUint64 as a wide int, used for virtual-supply
	// and norm overflow checks against spec invariant 8.
	MaxUint64Wide = uint256.NewInt(^uint64(0))
)

// Settlement factor clamp band, in micro-units (spec invariant 7):
// f_i in [0.01x, 100x] == [10_000, 100_000_000] out of a 1_000_000 = 1.0x base.
const (
	SettleFactorMicroBase = 1_000_000
	SettleFactorMin       = 10_000
	SettleFactorMax       = 100_000_000
)

// Market-prediction q is tracked in millionths unless noted as basis points
// or Q32.32.
const (
	QMicroBase    = 1_000_000
	QMicroDefault = 500_000 // 1/2, used when both sides are empty
	QMicroClampLo = 1_000   // 0.1%
	QMicroClampHi = 999_000 // 99.9%

	QBpsBase = 10_000
)

// Curve / pool economic constants (spec §3.2, §4.6-4.10).
const (
	// MinPoolLiquidity is the minimum display-unit supply each side must
	// hold once trading has begun.
	MinPoolLiquidity uint64 = 1_000

	// SDisplayCap bounds a side's display supply after any single mutation.
	SDisplayCap uint64 = 1_000_000_000_000 // 10^12

	// AtomicPerDisplay converts display-token units to atomic (SPL-style)
	// mint/burn units.
	AtomicPerDisplay uint64 = 1_000_000

	// DeployResidualBps is the divisor bounding the error between the chosen
	// on-manifold reserve sum and the caller's deposit at deploy time (spec
	// invariant 5): |r_L + r_S - D| <= D / DeployResidualBps, i.e. 1 basis
	// point.
	DeployResidualBps = 10_000

	// DecayMinQBps is the floor q (in basis points) decay will not push the
	// market prediction below.
	DecayMinQBps uint64 = 1_000

	// DecaySecondsPerDay is the tick granularity for decay tiers.
	DecaySecondsPerDay int64 = 86_400
)

// Decay tier thresholds and rates, in basis points per elapsed day past
// expiration (spec §4.10).
const (
	DecayTierOneDays   = 7
	DecayTierTwoDays   = 30
	DecayRateTierOne   uint64 = 100
	DecayRateTierTwo   uint64 = 200
	DecayRateTierThree uint64 = 300
)
