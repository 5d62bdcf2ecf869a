// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// ReserveSnapshot is the reserve and price view the trade, liquidity,
// settle, and decay events carry before and after the change (the deploy
// event carries only the after view), per spec §6.4: an off-chain indexer must be able to
// reconstruct q, prices, and reserves from the event alone, without
// re-reading pool state.
type ReserveSnapshot struct {
	SLong, SShort                 uint64
	RLong, RShort                 uint64
	VaultBalance                  uint64
	SqrtPriceLong, SqrtPriceShort *uint256.Int
	QMicro                        uint64
}

func snapshotPool(pool *Pool) ReserveSnapshot {
	return ReserveSnapshot{
		SLong:          pool.SLong,
		SShort:         pool.SShort,
		RLong:          pool.RLong,
		RShort:         pool.RShort,
		VaultBalance:   pool.VaultBalance,
		SqrtPriceLong:  pool.SqrtPriceLong,
		SqrtPriceShort: pool.SqrtPriceShort,
		QMicro:         MarketPredictionQ(pool.RLong, pool.RShort),
	}
}

// MarketDeployedEvent is emitted once by DeployMarket.
type MarketDeployedEvent struct {
	ContentID [32]byte
	After     ReserveSnapshot
}

// TradeExecutedEvent is emitted by Trade for both buy and sell.
type TradeExecutedEvent struct {
	ContentID   [32]byte
	Side        Side
	Type        TradeType
	DeltaTokens uint64
	USDCOut     uint64
	USDCTraded  uint64
	Fees        TradeFees
	Before      ReserveSnapshot
	After       ReserveSnapshot
}

// LiquidityAddedEvent is emitted by AddLiquidity.
type LiquidityAddedEvent struct {
	ContentID               [32]byte
	USDCAmount              uint64
	LongTokens, ShortTokens uint64
	Before, After           ReserveSnapshot
}

// SettleAppliedEvent is emitted by SettleEpoch.
type SettleAppliedEvent struct {
	ContentID        [32]byte
	BDScore          uint64
	Epoch            uint64
	SigmaLongBefore  *uint256.Int
	SigmaShortBefore *uint256.Int
	Before, After    ReserveSnapshot
}

// DecayAppliedEvent is emitted when lazy decay fires at trade entry,
// recovered from the original program's decay.rs (spec §1 supplemented
// feature 4): kept distinct from TradeExecutedEvent so an indexer can tell
// a reserve move caused by decay apart from one caused by the trade itself.
type DecayAppliedEvent struct {
	ContentID     [32]byte
	Days          int64
	RateBps       uint64
	Before, After ReserveSnapshot
}

// PoolClosedEvent describes a ClosePool drain. ClosePool itself returns only
// the drained amount and does not build this event.
type PoolClosedEvent struct {
	ContentID [32]byte
	Receiver  [20]byte
	Amount    uint64
}
