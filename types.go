// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Side identifies one of the two coupled tokens in an ICBS pool.
type Side uint8

const (
	SideLong Side = iota
	SideShort
)

func (s Side) String() string {
	if s == SideLong {
		return "long"
	}
	return "short"
}

// Other returns the opposite side. Trade and settle select the coupled side
// with explicit SideLong/SideShort branches and do not call it.
func (s Side) Other() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// TradeType distinguishes the two trade handlers; both operate on the same
// Pool but move funds in opposite directions across the curve.
type TradeType uint8

const (
	TradeBuy TradeType = iota
	TradeSell
)

// Pool is the single persisted record for one content market. Every field
// that a handler mutates is display/reserve/reserve-sum state; lambda is
// deliberately absent; it is re-derived from VaultBalance, SigmaLong, and
// SigmaShort on every price-affecting call rather than trusted from storage.
type Pool struct {
	ContentID      [32]byte
	Creator        common.Address
	PostCreator    common.Address
	MarketDeployer common.Address
	LongMint       common.Address
	ShortMint      common.Address

	// VaultAddress is the Ledger account holding this pool's microUSD
	// reserve; it is derived once at creation time from the content id and
	// never moves. The account-model primitive backing it (balances,
	// ownership) is entirely a host concern (spec §1 out of scope); the core
	// only ever needs it as a Transfer endpoint.
	VaultAddress common.Address

	// F, BetaNum, BetaDen identify the curve family this pool was created
	// against. Only F=1, BetaNum=1, BetaDen=2 is accepted (spec invariant
	// 4); they are stored so ValidatePoolParams can be re-checked against a
	// deserialized pool without trusting that check happened once at
	// creation and never again.
	F       uint64
	BetaNum uint64
	BetaDen uint64

	// Display-unit supplies and microUSD reserves.
	SLong, SShort uint64
	RLong, RShort uint64
	VaultBalance  uint64

	// Virtualization gauges, Q64.64.
	SigmaLong, SigmaShort *uint256.Int

	// Cached sqrt-prices, Q96, for UX only; never read back as a source of
	// truth by any handler.
	SqrtPriceLong, SqrtPriceShort *uint256.Int

	// SqrtLambdaQ96 is telemetry recorded at deploy time, not a source of
	// truth: every price-affecting handler re-derives lambda itself.
	SqrtLambdaQ96 *uint256.Int

	// InitialQ is the Q32.32 market prediction recorded at deploy time.
	InitialQ *uint256.Int

	// ReserveCap is an optional ceiling on VaultBalance; zero means
	// unlimited. Recovered from the original program's set_reserve_cap
	// instruction, which the distilled core spec omitted.
	ReserveCap uint64

	CurrentEpoch        uint64
	LastSettleTS        int64
	LastDecayUpdate     int64
	ExpirationTimestamp int64

	Deployed bool
}

// Factory holds protocol-wide configuration shared by every pool: the fee
// schedule applied in trade, the settlement cooldown, and the authority
// permitted to change either. Recovered from the original program's
// initialize_config/update_config instructions.
type Factory struct {
	ProtocolAuthority common.Address
	TreasuryAccount   common.Address
	StakeVault        common.Address

	TotalFeeBps     uint64
	CreatorSplitBps uint64

	MinSettleInterval int64

	// DefaultF/DefaultBetaNum/DefaultBetaDen are copied onto every new pool
	// at creation time; CreatePool rejects any other triple with
	// ErrInvalidParameter before a registry row is ever written.
	DefaultF       uint64
	DefaultBetaNum uint64
	DefaultBetaDen uint64

	// DefaultP0 is the initial price parameter (microUSD) DeployMarket
	// passes to ComputeDeploy; DeployMarket takes no per-call override.
	DefaultP0 uint64

	// MinInitialDeposit is the floor on DeployMarket's deposit D.
	MinInitialDeposit uint64
}

// RegistryEntry maps a content id to the pool deployed against it; the
// registry enforces at most one live pool per content id.
type RegistryEntry struct {
	ContentID [32]byte
	Key       [32]byte
}

// PoolSnapshot is the read-only view returned by get_state. SecondsUntil
// SettleEligible and DecayPending are recovered from the original program's
// get_current_state instruction; the distilled core spec's get_state table
// only lists supplies, reserves, q, and prices.
type PoolSnapshot struct {
	SLong, SShort uint64
	RLong, RShort uint64
	VaultBalance  uint64

	SqrtPriceLong, SqrtPriceShort *uint256.Int

	QMicro       uint64
	CurrentEpoch uint64

	SecondsUntilSettleEligible int64
	DecayPending               bool
}

// TradePrices pairs the two sides' sqrt-prices. The event types in events.go
// do not use it; they quote prices inside ReserveSnapshot.
type TradePrices struct {
	SqrtPriceLong, SqrtPriceShort *uint256.Int
}

// Ledger is the host-provided set of token primitives a handler may call.
// Every call is assumed synchronous and atomic from the core's point of
// view; if the host makes the underlying I/O asynchronous, it must still
// expose all-or-nothing semantics to the core through this interface.
type Ledger interface {
	// Transfer moves amountMicroUSD of the stablecoin reserve from one
	// account to another. Atomic: on error, no funds moved.
	Transfer(ctx context.Context, from, to common.Address, amountMicroUSD uint64) error

	// MintTo mints atomicAmount (display x 10^6) of mint to account.
	MintTo(ctx context.Context, mint common.Address, account common.Address, atomicAmount uint64) error

	// Burn burns atomicAmount of mint from account.
	Burn(ctx context.Context, mint common.Address, account common.Address, atomicAmount uint64) error

	// Clock returns the current monotonic time in integer seconds.
	Clock() int64

	// AuthorityCheck reports whether signer is permitted to act as
	// expected. Handlers must call this before any mutation it gates.
	AuthorityCheck(signer, expected common.Address) bool
}
