// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "errors"

// Errors - Input validation
var (
	ErrInvalidTradeAmount = errors.New("invalid trade amount")
	ErrInvalidAllocation  = errors.New("invalid allocation")
	ErrInvalidBDScore     = errors.New("invalid belief-deviation score")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrInvalidStakeSkim   = errors.New("invalid stake skim")
	ErrBelowMinimumDeposit = errors.New("deposit below minimum")
)

// Errors - Authority
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnauthorizedProtocol = errors.New("unauthorized protocol authority")
)

// Errors - Lifecycle
var (
	ErrMarketAlreadyDeployed = errors.New("market already deployed")
	ErrMarketNotDeployed     = errors.New("market not deployed")
	ErrPositionsStillOpen    = errors.New("positions still open")
	ErrSettlementCooldown    = errors.New("settlement cooldown not elapsed")
)

// Errors - Economic
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrNoLiquidity           = errors.New("no liquidity")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrTooSmallAfterRounding = errors.New("amount too small after rounding")
	ErrReserveCapExceeded    = errors.New("reserve cap exceeded")
)

// Errors - Numeric
var (
	ErrOverflow              = errors.New("overflow")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrUnderflow             = errors.New("underflow")
	ErrVirtualSupplyOverflow = errors.New("virtual supply overflow")
	ErrSupplyOverflow        = errors.New("supply overflow")
	ErrPriceCalculationFailed = errors.New("price calculation failed")
)

// Errors - Invariant
//
// ReserveInvariantViolation is reserved for detection of an internal bug. A
// correct implementation must never return it; it exists so that defensive
// postcondition checks have a distinct error to raise rather than panicking.
var (
	ErrReserveInvariantViolation = errors.New("reserve invariant violation")
)
