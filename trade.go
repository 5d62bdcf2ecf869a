// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import "github.com/holiman/uint256"

// TradeParams is the caller-supplied input to Trade (spec §6.2): which side
// and direction, the trade size (microUSD for a buy, atomic tokens for a
// sell), an optional stake skim taken off a buy before fees, and the
// slippage floor/ceiling the caller will accept.
type TradeParams struct {
	Side      Side
	Type      TradeType
	Amount    uint64
	StakeSkim uint64
	MinOut    uint64
}

// TradeFees is the fee split applied to one trade, computed once from the
// Factory's fixed (total_fee_bps, creator_split_bps) tuple -- spec §1
// explicitly rules out dynamic fee schedules, so this is read once per
// trade rather than looked up per side or per epoch.
type TradeFees struct {
	StakeSkim uint64
	Total     uint64
	Creator   uint64
	Protocol  uint64
}

// TradeResult is the new pool state and fee breakdown a committed trade
// produces. The caller (Manager.Trade) is responsible for moving funds
// through the Ledger and persisting these fields onto the Pool record; the
// functions in this file never mutate a Pool or call the Ledger themselves,
// matching the rest of the package's pure-computation/impure-caller split.
type TradeResult struct {
	DeltaTokens uint64 // minted (buy) or burned (sell) display tokens
	USDCOut     uint64 // sell only: net proceeds paid to the trader
	USDCTraded  uint64 // buy: net microUSD the curve saw; sell: gross proceeds

	SLong, SShort                 uint64
	RLong, RShort                 uint64
	VaultBalance                  uint64
	SigmaLong, SigmaShort         *uint256.Int
	SqrtPriceLong, SqrtPriceShort *uint256.Int

	Fees TradeFees
}

// computeFees applies the Factory's fixed fee tuple to base, per spec §4.7
// point 2: total = base * total_fee_bps / 10_000, creator = total *
// creator_split_bps / 10_000, protocol = total - creator.
func computeFees(base, totalFeeBps, creatorSplitBps uint64) TradeFees {
	total := new(uint256.Int).Mul(uint256.NewInt(base), uint256.NewInt(totalFeeBps))
	total.Div(total, uint256.NewInt(QBpsBase))

	creator := new(uint256.Int).Mul(total, uint256.NewInt(creatorSplitBps))
	creator.Div(creator, uint256.NewInt(QBpsBase))

	protocol := new(uint256.Int).Sub(total, creator)

	return TradeFees{
		Total:    total.Uint64(),
		Creator:  creator.Uint64(),
		Protocol: protocol.Uint64(),
	}
}

// ComputeBuy implements the buy half of spec §4.7: net USDC reaches the
// curve only after the stake skim and protocol/creator fees are taken off
// the top. It returns the new pool state without performing any of the
// transfer/mint side effects the caller must still carry out atomically.
func ComputeBuy(pool *Pool, factory *Factory, params TradeParams) (*TradeResult, error) {
	if !pool.Deployed {
		return nil, ErrMarketNotDeployed
	}
	if params.Amount == 0 {
		return nil, ErrInvalidTradeAmount
	}
	if params.StakeSkim*2 > params.Amount {
		return nil, ErrInvalidStakeSkim
	}

	afterSkim := params.Amount - params.StakeSkim
	fees := computeFees(afterSkim, factory.TotalFeeBps, factory.CreatorSplitBps)
	fees.StakeSkim = params.StakeSkim
	usdcToTrade := afterSkim - fees.Total

	newVaultBalance := pool.VaultBalance + usdcToTrade
	if pool.ReserveCap != 0 && newVaultBalance > pool.ReserveCap {
		return nil, ErrReserveCapExceeded
	}

	newSigmaLong, newSigmaShort, err := RenormalizeScales(pool.SigmaLong, pool.SigmaShort, pool.SLong, pool.SShort)
	if err != nil {
		return nil, err
	}
	lambdaQ96, err := DeriveLambdaForPool(newSigmaLong, newSigmaShort, pool.SLong, pool.SShort, newVaultBalance)
	if err != nil {
		return nil, err
	}

	sigmaThis, sigmaOther := newSigmaLong, newSigmaShort
	currentDisplay, otherDisplay := pool.SLong, pool.SShort
	if params.Side == SideShort {
		sigmaThis, sigmaOther = newSigmaShort, newSigmaLong
		currentDisplay, otherDisplay = pool.SShort, pool.SLong
	}

	currentVirtual, err := VirtualSupply(currentDisplay, sigmaThis)
	if err != nil {
		return nil, err
	}
	otherVirtual, err := VirtualSupply(otherDisplay, sigmaOther)
	if err != nil {
		return nil, err
	}

	deltaVirtual, _, err := CalculateBuy(currentVirtual, otherVirtual, usdcToTrade, lambdaQ96, params.Side, sigmaThis)
	if err != nil {
		return nil, err
	}

	deltaDisplay, err := VirtualToDisplay(deltaVirtual, sigmaThis)
	if err != nil {
		return nil, err
	}
	if deltaDisplay == 0 && usdcToTrade > 0 {
		return nil, ErrTooSmallAfterRounding
	}
	if deltaDisplay < params.MinOut {
		return nil, ErrSlippageExceeded
	}

	newCurrentDisplay := currentDisplay + deltaDisplay
	if newCurrentDisplay > SDisplayCap {
		return nil, ErrSupplyOverflow
	}

	var newSLong, newSShort uint64
	if params.Side == SideLong {
		newSLong, newSShort = newCurrentDisplay, otherDisplay
	} else {
		newSLong, newSShort = otherDisplay, newCurrentDisplay
	}

	result, err := finalizeTradeState(newSLong, newSShort, newSigmaLong, newSigmaShort, newVaultBalance, params.Side, lambdaQ96)
	if err != nil {
		return nil, err
	}
	result.DeltaTokens = deltaDisplay
	result.USDCTraded = usdcToTrade
	result.Fees = fees
	return result, nil
}

// ComputeSell implements the sell half of spec §4.7: fees are deducted
// after the curve computes gross proceeds from burning params.Amount atomic
// tokens.
func ComputeSell(pool *Pool, factory *Factory, params TradeParams) (*TradeResult, error) {
	if !pool.Deployed {
		return nil, ErrMarketNotDeployed
	}
	if params.Amount == 0 || params.Amount%AtomicPerDisplay != 0 {
		return nil, ErrInvalidTradeAmount
	}
	sellDisplay := params.Amount / AtomicPerDisplay

	newSigmaLong, newSigmaShort, err := RenormalizeScales(pool.SigmaLong, pool.SigmaShort, pool.SLong, pool.SShort)
	if err != nil {
		return nil, err
	}
	lambdaQ96, err := DeriveLambdaForPool(newSigmaLong, newSigmaShort, pool.SLong, pool.SShort, pool.VaultBalance)
	if err != nil {
		return nil, err
	}

	sigmaThis, sigmaOther := newSigmaLong, newSigmaShort
	currentDisplay, otherDisplay := pool.SLong, pool.SShort
	if params.Side == SideShort {
		sigmaThis, sigmaOther = newSigmaShort, newSigmaLong
		currentDisplay, otherDisplay = pool.SShort, pool.SLong
	}
	if sellDisplay > currentDisplay {
		return nil, ErrInsufficientBalance
	}

	currentVirtual, err := VirtualSupply(currentDisplay, sigmaThis)
	if err != nil {
		return nil, err
	}
	otherVirtual, err := VirtualSupply(otherDisplay, sigmaOther)
	if err != nil {
		return nil, err
	}
	sellVirtual, err := DisplayDeltaToVirtual(sellDisplay, sigmaThis)
	if err != nil {
		return nil, err
	}
	if sellVirtual.IsZero() {
		return nil, ErrTooSmallAfterRounding
	}

	grossWide, _, err := CalculateSell(currentVirtual, otherVirtual, sellVirtual, lambdaQ96, params.Side, sigmaThis)
	if err != nil {
		return nil, err
	}
	if !grossWide.IsUint64() {
		return nil, ErrOverflow
	}
	gross := grossWide.Uint64()

	fees := computeFees(gross, factory.TotalFeeBps, factory.CreatorSplitBps)
	if gross < fees.Total {
		return nil, ErrPriceCalculationFailed
	}
	net := gross - fees.Total
	if net < params.MinOut {
		return nil, ErrSlippageExceeded
	}
	if gross > pool.VaultBalance {
		return nil, ErrInsufficientBalance
	}

	newCurrentDisplay := currentDisplay - sellDisplay
	var newSLong, newSShort uint64
	if params.Side == SideLong {
		newSLong, newSShort = newCurrentDisplay, otherDisplay
	} else {
		newSLong, newSShort = otherDisplay, newCurrentDisplay
	}
	if newSLong < MinPoolLiquidity || newSShort < MinPoolLiquidity {
		return nil, ErrInsufficientBalance
	}

	newVaultBalance := pool.VaultBalance - gross

	result, err := finalizeTradeState(newSLong, newSShort, newSigmaLong, newSigmaShort, newVaultBalance, params.Side, lambdaQ96)
	if err != nil {
		return nil, err
	}
	result.DeltaTokens = sellDisplay
	result.USDCOut = net
	result.USDCTraded = gross
	result.Fees = fees
	return result, nil
}

// finalizeTradeState recomputes both sides' sqrt-prices and the traded
// side's reserve from the post-trade virtual supplies and lambda, then sets
// the other side's reserve as vaultBalance minus that, so the reserve-sum
// invariant holds mechanically rather than by construction (spec §4.7
// point 9, shared identically by buy and sell).
func finalizeTradeState(sLong, sShort uint64, sigmaLong, sigmaShort *uint256.Int, vaultBalance uint64, tradedSide Side, lambdaQ96 *uint256.Int) (*TradeResult, error) {
	sHatLong, err := VirtualSupply(sLong, sigmaLong)
	if err != nil {
		return nil, err
	}
	sHatShort, err := VirtualSupply(sShort, sigmaShort)
	if err != nil {
		return nil, err
	}

	sqrtPriceLong, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideLong, lambdaQ96, sigmaLong)
	if err != nil {
		return nil, err
	}
	sqrtPriceShort, err := SqrtMarginalPriceFromVirtual(sHatLong, sHatShort, SideShort, lambdaQ96, sigmaShort)
	if err != nil {
		return nil, err
	}

	var rThisWide *uint256.Int
	if tradedSide == SideLong {
		rThisWide, err = ReserveFromLambdaAndVirtual(sHatLong, sHatShort, lambdaQ96)
	} else {
		rThisWide, err = ReserveFromLambdaAndVirtual(sHatShort, sHatLong, lambdaQ96)
	}
	if err != nil {
		return nil, err
	}
	if !rThisWide.IsUint64() || rThisWide.Uint64() > vaultBalance {
		return nil, ErrOverflow
	}
	rThis := rThisWide.Uint64()
	rOther := vaultBalance - rThis

	rLong, rShort := rThis, rOther
	if tradedSide == SideShort {
		rLong, rShort = rOther, rThis
	}

	return &TradeResult{
		SLong:          sLong,
		SShort:         sShort,
		RLong:          rLong,
		RShort:         rShort,
		VaultBalance:   vaultBalance,
		SigmaLong:      sigmaLong,
		SigmaShort:     sigmaShort,
		SqrtPriceLong:  sqrtPriceLong,
		SqrtPriceShort: sqrtPriceShort,
	}, nil
}
