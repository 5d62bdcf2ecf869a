// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// deployCandidate is one of the two integer points considered by Deploy's
// candidate search.
type deployCandidate struct {
	sLong, sShort                 uint64
	rLong, rShort                 *uint256.Int
	sqrtPriceLong, sqrtPriceShort *uint256.Int
	lambdaQ96                     *uint256.Int
	ratioError                    *uint256.Int
}

// DeployResult is the persisted outcome of a successful deployment.
type DeployResult struct {
	SLong, SShort                 uint64
	RLong, RShort                 uint64
	SqrtPriceLong, SqrtPriceShort *uint256.Int
	SqrtLambdaQ96                 *uint256.Int
	InitialQ                      *uint256.Int
	VaultBalance                  uint64
}

// ValidatePoolParams enforces spec invariant 4 (the parameter gate): only
// the specialized F=1, beta=1/2 curve family is accepted. Every other
// (F, beta) triple -- including the historical quadratic, dampened, and
// cbrt-based curve families the original program still carries -- is
// rejected rather than reimplemented.
func ValidatePoolParams(f, betaNum, betaDen uint64) error {
	if f != 1 || betaNum != 1 || betaDen != 2 {
		return ErrInvalidParameter
	}
	return nil
}

// ComputeDeploy runs the deploy allocation and candidate search of spec
// §4.6: given the initial deposit D and the long-side allocation A_L (both
// in microUSD, A_S = D - A_L implied), and the initial price parameter p0,
// it returns the on-manifold supplies, reserves, and prices for the new
// pool.
func ComputeDeploy(depositD, allocLong, p0 uint64) (*DeployResult, error) {
	if p0 == 0 {
		return nil, ErrInvalidParameter
	}
	if allocLong == 0 || allocLong >= depositD {
		return nil, ErrInvalidAllocation
	}
	allocShort := depositD - allocLong

	minAlloc := 10 * p0
	if allocLong < minAlloc || allocShort < minAlloc {
		return nil, ErrBelowMinimumDeposit
	}

	allocRef := allocLong
	if allocShort > allocRef {
		allocRef = allocShort
	}

	sLong0, err := sqrtAllocation(allocLong, allocRef, p0)
	if err != nil {
		return nil, err
	}
	sShort0, err := sqrtAllocation(allocShort, allocRef, p0)
	if err != nil {
		return nil, err
	}
	if sLong0 == 0 || sShort0 == 0 {
		return nil, ErrInvalidAllocation
	}

	base, err := evalDeployCandidate(sLong0, sShort0, depositD, allocLong, allocShort)
	if err != nil {
		return nil, err
	}

	var bumpedLong, bumpedShort uint64
	if sLong0 <= sShort0 {
		bumpedLong, bumpedShort = sLong0+1, sShort0
	} else {
		bumpedLong, bumpedShort = sLong0, sShort0+1
	}
	bumped, err := evalDeployCandidate(bumpedLong, bumpedShort, depositD, allocLong, allocShort)
	if err != nil {
		return nil, err
	}

	best := base
	if bumped.ratioError.Cmp(base.ratioError) < 0 {
		best = bumped
	}

	rSum, overflow := new(uint256.Int).AddOverflow(best.rLong, best.rShort)
	if overflow {
		return nil, ErrOverflow
	}
	if !rSum.IsUint64() {
		return nil, ErrOverflow
	}
	vaultBalance := rSum.Uint64()

	var residual uint64
	if vaultBalance >= depositD {
		residual = vaultBalance - depositD
	} else {
		residual = depositD - vaultBalance
	}
	if residual > depositD/DeployResidualBps {
		return nil, ErrOverflow
	}

	if !best.rLong.IsUint64() || !best.rShort.IsUint64() {
		return nil, ErrOverflow
	}

	initialQ, err := MulDiv(best.rLong, OneQ32, rSum)
	if err != nil {
		return nil, err
	}

	return &DeployResult{
		SLong:          best.sLong,
		SShort:         best.sShort,
		RLong:          best.rLong.Uint64(),
		RShort:         best.rShort.Uint64(),
		SqrtPriceLong:  best.sqrtPriceLong,
		SqrtPriceShort: best.sqrtPriceShort,
		SqrtLambdaQ96:  IntegerSqrt(best.lambdaQ96),
		InitialQ:       initialQ,
		VaultBalance:   vaultBalance,
	}, nil
}

// sqrtAllocation computes isqrt(alloc * allocRef) / p0.
func sqrtAllocation(alloc, allocRef, p0 uint64) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(alloc), uint256.NewInt(allocRef))
	if overflow {
		return 0, ErrOverflow
	}
	root := IntegerSqrt(product)
	s := new(uint256.Int).Div(root, uint256.NewInt(p0))
	if !s.IsUint64() {
		return 0, ErrOverflow
	}
	return s.Uint64(), nil
}

// evalDeployCandidate scores one (sLong, sShort) integer point per spec
// §4.6 point 3, using the reserve-ratio error |r_L*A_S - r_S*A_L| against
// the caller's intended allocation split.
func evalDeployCandidate(sLong, sShort, depositD, allocLong, allocShort uint64) (*deployCandidate, error) {
	sl := uint256.NewInt(sLong)
	ss := uint256.NewInt(sShort)

	slSq, overflow1 := new(uint256.Int).MulOverflow(sl, sl)
	ssSq, overflow2 := new(uint256.Int).MulOverflow(ss, ss)
	if overflow1 || overflow2 {
		return nil, ErrOverflow
	}
	n2, overflow3 := new(uint256.Int).AddOverflow(slSq, ssSq)
	if overflow3 {
		return nil, ErrOverflow
	}

	dOverN2Q96, err := MulDiv(uint256.NewInt(depositD), OneQ96, n2)
	if err != nil {
		return nil, err
	}

	pLongQ96, overflow4 := new(uint256.Int).MulOverflow(dOverN2Q96, sl)
	pShortQ96, overflow5 := new(uint256.Int).MulOverflow(dOverN2Q96, ss)
	if overflow4 || overflow5 {
		return nil, ErrOverflow
	}

	sqrtPriceLong := new(uint256.Int).Lsh(IntegerSqrt(pLongQ96), 48)
	sqrtPriceShort := new(uint256.Int).Lsh(IntegerSqrt(pShortQ96), 48)

	sNorm := IntegerSqrt(n2)
	if sNorm.IsZero() {
		sNorm = uint256.NewInt(1)
	}

	lambdaFromLong, err := MulDiv(pLongQ96, sNorm, sl)
	if err != nil {
		return nil, err
	}
	lambdaFromShort, err := MulDiv(pShortQ96, sNorm, ss)
	if err != nil {
		return nil, err
	}
	lambdaQ96 := lambdaFromLong
	if lambdaFromShort.Cmp(lambdaQ96) > 0 {
		lambdaQ96 = lambdaFromShort
	}

	rLong, err := MulShiftRight96(sl, pLongQ96)
	if err != nil {
		return nil, err
	}
	rShort, err := MulShiftRight96(ss, pShortQ96)
	if err != nil {
		return nil, err
	}

	lhs, overflow6 := new(uint256.Int).MulOverflow(rLong, uint256.NewInt(allocShort))
	rhs, overflow7 := new(uint256.Int).MulOverflow(rShort, uint256.NewInt(allocLong))
	if overflow6 || overflow7 {
		return nil, ErrOverflow
	}
	var ratioError uint256.Int
	if lhs.Cmp(rhs) >= 0 {
		ratioError.Sub(lhs, rhs)
	} else {
		ratioError.Sub(rhs, lhs)
	}

	return &deployCandidate{
		sLong:          sLong,
		sShort:         sShort,
		rLong:          rLong,
		rShort:         rShort,
		sqrtPriceLong:  sqrtPriceLong,
		sqrtPriceShort: sqrtPriceShort,
		lambdaQ96:      lambdaQ96,
		ratioError:     &ratioError,
	}, nil
}
