// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"testing"

	"github.com/holiman/uint256"
)

func testFactory() *Factory {
	return &Factory{
		TotalFeeBps:       100,  // 1%
		CreatorSplitBps:   5000, // half of the fee goes to the post creator
		MinSettleInterval: 3_600,
		DefaultF:          1,
		DefaultBetaNum:    1,
		DefaultBetaDen:    2,
		DefaultP0:         100_000,
		MinInitialDeposit: 1_000_000,
	}
}

func tradeTestPool() *Pool {
	pool := newTestPool()
	pool.Deployed = true
	return pool
}

func TestComputeBuyRejectsUndeployedMarket(t *testing.T) {
	pool := newTestPool()
	_, err := ComputeBuy(pool, testFactory(), TradeParams{Side: SideLong, Type: TradeBuy, Amount: 1_000_000})
	if err != ErrMarketNotDeployed {
		t.Fatalf("expected ErrMarketNotDeployed, got %v", err)
	}
}

func TestComputeBuyRejectsOversizedSkim(t *testing.T) {
	pool := tradeTestPool()
	_, err := ComputeBuy(pool, testFactory(), TradeParams{Side: SideLong, Type: TradeBuy, Amount: 1_000_000, StakeSkim: 600_000})
	if err != ErrInvalidStakeSkim {
		t.Fatalf("expected ErrInvalidStakeSkim, got %v", err)
	}
}

func TestComputeBuyMintsAndIncreasesPrice(t *testing.T) {
	pool := tradeTestPool()
	lambdaBefore, err := DeriveLambdaForPool(pool.SigmaLong, pool.SigmaShort, pool.SLong, pool.SShort, pool.VaultBalance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	priceBefore, err := SqrtMarginalPriceFromVirtual(uint256.NewInt(pool.SLong), uint256.NewInt(pool.SShort), SideLong, lambdaBefore, pool.SigmaLong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := ComputeBuy(pool, testFactory(), TradeParams{Side: SideLong, Type: TradeBuy, Amount: 10_000_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeltaTokens == 0 {
		t.Fatalf("expected a positive delta_tokens")
	}
	if result.SLong <= pool.SLong {
		t.Fatalf("expected s_long to grow: before=%d after=%d", pool.SLong, result.SLong)
	}
	if result.SqrtPriceLong.Cmp(priceBefore) <= 0 {
		t.Fatalf("expected sqrt_price_long to increase: before=%s after=%s", priceBefore, result.SqrtPriceLong)
	}
}

func TestComputeBuyPreservesReserveSumInvariant(t *testing.T) {
	pool := tradeTestPool()
	result, err := ComputeBuy(pool, testFactory(), TradeParams{Side: SideShort, Type: TradeBuy, Amount: 5_000_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RLong+result.RShort != result.VaultBalance {
		t.Fatalf("reserve sum invariant broken: %d + %d != %d", result.RLong, result.RShort, result.VaultBalance)
	}
}

func TestComputeBuyDeductsFeesBeforeCurve(t *testing.T) {
	pool := tradeTestPool()
	factory := testFactory()
	amount := uint64(1_000_000)
	result, err := ComputeBuy(pool, factory, TradeParams{Side: SideLong, Type: TradeBuy, Amount: amount})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := amount - result.Fees.Total
	if result.USDCTraded != want {
		t.Fatalf("usdc_to_trade = %d, want %d", result.USDCTraded, want)
	}
	if result.Fees.Creator+result.Fees.Protocol != result.Fees.Total {
		t.Fatalf("creator+protocol fee split does not sum to total: %d + %d != %d", result.Fees.Creator, result.Fees.Protocol, result.Fees.Total)
	}
}

func TestComputeBuyEnforcesSlippage(t *testing.T) {
	pool := tradeTestPool()
	_, err := ComputeBuy(pool, testFactory(), TradeParams{
		Side:   SideLong,
		Type:   TradeBuy,
		Amount: 10_000_000,
		MinOut: ^uint64(0), // impossibly high floor
	})
	if err != ErrSlippageExceeded {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
}

func TestComputeBuyRejectsReserveCap(t *testing.T) {
	pool := tradeTestPool()
	pool.ReserveCap = pool.VaultBalance // any growth should be rejected
	_, err := ComputeBuy(pool, testFactory(), TradeParams{Side: SideLong, Type: TradeBuy, Amount: 10_000_000})
	if err != ErrReserveCapExceeded {
		t.Fatalf("expected ErrReserveCapExceeded, got %v", err)
	}
}

func TestComputeSellRejectsNonMultipleAmount(t *testing.T) {
	pool := tradeTestPool()
	_, err := ComputeSell(pool, testFactory(), TradeParams{Side: SideLong, Type: TradeSell, Amount: 1_500_000 + 1})
	if err != ErrInvalidTradeAmount {
		t.Fatalf("expected ErrInvalidTradeAmount, got %v", err)
	}
}

func TestComputeSellDecreasesPrice(t *testing.T) {
	pool := tradeTestPool()
	lambdaBefore, err := DeriveLambdaForPool(pool.SigmaLong, pool.SigmaShort, pool.SLong, pool.SShort, pool.VaultBalance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	priceBefore, err := SqrtMarginalPriceFromVirtual(uint256.NewInt(pool.SLong), uint256.NewInt(pool.SShort), SideLong, lambdaBefore, pool.SigmaLong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := ComputeSell(pool, testFactory(), TradeParams{Side: SideLong, Type: TradeSell, Amount: 1_000_000 * AtomicPerDisplay})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.USDCOut == 0 {
		t.Fatalf("expected positive usdc_out")
	}
	if result.SqrtPriceLong.Cmp(priceBefore) >= 0 {
		t.Fatalf("expected sqrt_price_long to decrease: before=%s after=%s", priceBefore, result.SqrtPriceLong)
	}
}

func TestComputeSellEnforcesSlippage(t *testing.T) {
	pool := tradeTestPool()
	_, err := ComputeSell(pool, testFactory(), TradeParams{
		Side:   SideLong,
		Type:   TradeSell,
		Amount: 1_000_000 * AtomicPerDisplay,
		MinOut: ^uint64(0), // impossibly high floor
	})
	if err != ErrSlippageExceeded {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
}

func TestComputeSellEnforcesMinimumLiquidityFloor(t *testing.T) {
	pool := tradeTestPool()
	pool.SLong = MinPoolLiquidity + 10
	_, err := ComputeSell(pool, testFactory(), TradeParams{Side: SideLong, Type: TradeSell, Amount: 11 * AtomicPerDisplay})
	if err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestBuyThenSellRoundTripThroughTradeHandlers(t *testing.T) {
	pool := tradeTestPool()
	factory := testFactory()
	usdcIn := uint64(5_000_000)

	buyResult, err := ComputeBuy(pool, factory, TradeParams{Side: SideLong, Type: TradeBuy, Amount: usdcIn})
	if err != nil {
		t.Fatalf("unexpected error on buy: %v", err)
	}

	pool.SLong, pool.SShort = buyResult.SLong, buyResult.SShort
	pool.RLong, pool.RShort = buyResult.RLong, buyResult.RShort
	pool.VaultBalance = buyResult.VaultBalance
	pool.SigmaLong, pool.SigmaShort = buyResult.SigmaLong, buyResult.SigmaShort

	sellResult, err := ComputeSell(pool, factory, TradeParams{Side: SideLong, Type: TradeSell, Amount: buyResult.DeltaTokens * AtomicPerDisplay})
	if err != nil {
		t.Fatalf("unexpected error on sell: %v", err)
	}

	// Two 1% fee legs plus curve rounding; round trip should still recover
	// the bulk of the deposit.
	floor := usdcIn * 95 / 100
	if sellResult.USDCOut < floor {
		t.Fatalf("round trip lost too much: in=%d out=%d floor=%d", usdcIn, sellResult.USDCOut, floor)
	}
}
