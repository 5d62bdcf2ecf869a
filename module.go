// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// DeployMarket is the spec §6.2 deploy_market operation: it runs the
// on-manifold allocation (ComputeDeploy), transfers the deposit into the
// pool's vault, and persists the result. Trade, AddLiquidity, and
// SettleEpoch reject a pool with Deployed == false; DeployMarket succeeds at
// most once per content id.
func (m *Manager) DeployMarket(ctx context.Context, contentID [32]byte, trader common.Address, depositD, allocLong uint64) (*DeployResult, *MarketDeployedEvent, error) {
	var result *DeployResult
	var event *MarketDeployedEvent

	err := m.withPool(contentID, func(pool *Pool) error {
		if pool.Deployed {
			return ErrMarketAlreadyDeployed
		}
		if depositD < m.factory.MinInitialDeposit {
			return ErrBelowMinimumDeposit
		}
		if err := ValidatePoolParams(pool.F, pool.BetaNum, pool.BetaDen); err != nil {
			return err
		}

		deploy, err := ComputeDeploy(depositD, allocLong, m.factory.DefaultP0)
		if err != nil {
			return err
		}

		// Transfer exactly the on-manifold reserve sum, not the raw deposit:
		// the two differ by at most the deploy residual (spec invariant 5),
		// and the vault's live balance must equal the cached VaultBalance
		// field exactly (spec §5), not merely to within a rounding error.
		if err := m.ledger.Transfer(ctx, trader, pool.VaultAddress, deploy.VaultBalance); err != nil {
			return err
		}

		pool.MarketDeployer = trader
		pool.SLong, pool.SShort = deploy.SLong, deploy.SShort
		pool.RLong, pool.RShort = deploy.RLong, deploy.RShort
		pool.VaultBalance = deploy.VaultBalance
		pool.SigmaLong = new(uint256.Int).Set(OneQ64)
		pool.SigmaShort = new(uint256.Int).Set(OneQ64)
		pool.SqrtPriceLong = deploy.SqrtPriceLong
		pool.SqrtPriceShort = deploy.SqrtPriceShort
		pool.SqrtLambdaQ96 = deploy.SqrtLambdaQ96
		pool.InitialQ = deploy.InitialQ
		pool.LastSettleTS = m.ledger.Clock()
		pool.Deployed = true

		result = deploy
		event = &MarketDeployedEvent{ContentID: contentID, After: snapshotPool(pool)}
		return nil
	})
	return result, event, err
}

// Trade is the spec §6.2 trade operation: it applies lazy decay if the pool
// is past expiration and a whole day has elapsed since the last decay tick
// (spec §4.10), then dispatches to the buy or sell handler. Every check
// that can fail runs before the Ledger calls that actually move funds or
// mint/burn tokens. If the handler or any of those calls errors, the pool
// record, including a decay update made at entry, is restored to its state
// on entry and no decay event is returned; Ledger calls that succeeded
// before the failing one are not reversed here.
func (m *Manager) Trade(ctx context.Context, contentID [32]byte, trader common.Address, params TradeParams) (*TradeResult, *TradeExecutedEvent, *DecayAppliedEvent, error) {
	var result *TradeResult
	var tradeEvent *TradeExecutedEvent
	var decayEvent *DecayAppliedEvent

	err := m.withPool(contentID, func(pool *Pool) (txErr error) {
		if !pool.Deployed {
			return ErrMarketNotDeployed
		}
		saved := *pool
		defer func() {
			if txErr != nil {
				*pool = saved
				decayEvent = nil
			}
		}()
		now := m.ledger.Clock()

		if ShouldApplyDecay(pool, now) {
			before := snapshotPool(pool)
			decay, err := ApplyDecay(pool, now)
			if err != nil {
				return err
			}
			days := (now - pool.ExpirationTimestamp) / DecaySecondsPerDay
			pool.RLong, pool.RShort = decay.RLong, decay.RShort
			pool.SqrtPriceLong, pool.SqrtPriceShort = decay.SqrtPriceLong, decay.SqrtPriceShort
			pool.LastDecayUpdate = now
			decayEvent = &DecayAppliedEvent{
				ContentID: contentID,
				Days:      days,
				RateBps:   decayRateForDays(days),
				Before:    before,
				After:     snapshotPool(pool),
			}
		}

		before := snapshotPool(pool)

		var tradeResult *TradeResult
		var err error
		switch params.Type {
		case TradeBuy:
			tradeResult, err = ComputeBuy(pool, m.factory, params)
		case TradeSell:
			tradeResult, err = ComputeSell(pool, m.factory, params)
		default:
			return ErrInvalidTradeAmount
		}
		if err != nil {
			return err
		}

		mint := pool.LongMint
		if params.Side == SideShort {
			mint = pool.ShortMint
		}

		if params.Type == TradeBuy {
			if params.StakeSkim > 0 {
				if err := m.ledger.Transfer(ctx, trader, m.factory.StakeVault, params.StakeSkim); err != nil {
					return err
				}
			}
			if tradeResult.Fees.Creator > 0 {
				if err := m.ledger.Transfer(ctx, trader, pool.PostCreator, tradeResult.Fees.Creator); err != nil {
					return err
				}
			}
			if tradeResult.Fees.Protocol > 0 {
				if err := m.ledger.Transfer(ctx, trader, m.factory.TreasuryAccount, tradeResult.Fees.Protocol); err != nil {
					return err
				}
			}
			if err := m.ledger.Transfer(ctx, trader, pool.VaultAddress, tradeResult.USDCTraded); err != nil {
				return err
			}
			if err := m.ledger.MintTo(ctx, mint, trader, tradeResult.DeltaTokens*AtomicPerDisplay); err != nil {
				return err
			}
		} else {
			if err := m.ledger.Burn(ctx, mint, trader, params.Amount); err != nil {
				return err
			}
			if tradeResult.Fees.Creator > 0 {
				if err := m.ledger.Transfer(ctx, pool.VaultAddress, pool.PostCreator, tradeResult.Fees.Creator); err != nil {
					return err
				}
			}
			if tradeResult.Fees.Protocol > 0 {
				if err := m.ledger.Transfer(ctx, pool.VaultAddress, m.factory.TreasuryAccount, tradeResult.Fees.Protocol); err != nil {
					return err
				}
			}
			if err := m.ledger.Transfer(ctx, pool.VaultAddress, trader, tradeResult.USDCOut); err != nil {
				return err
			}
		}

		pool.SLong, pool.SShort = tradeResult.SLong, tradeResult.SShort
		pool.RLong, pool.RShort = tradeResult.RLong, tradeResult.RShort
		pool.VaultBalance = tradeResult.VaultBalance
		pool.SigmaLong, pool.SigmaShort = tradeResult.SigmaLong, tradeResult.SigmaShort
		pool.SqrtPriceLong, pool.SqrtPriceShort = tradeResult.SqrtPriceLong, tradeResult.SqrtPriceShort

		result = tradeResult
		tradeEvent = &TradeExecutedEvent{
			ContentID:   contentID,
			Side:        params.Side,
			Type:        params.Type,
			DeltaTokens: tradeResult.DeltaTokens,
			USDCOut:     tradeResult.USDCOut,
			USDCTraded:  tradeResult.USDCTraded,
			Fees:        tradeResult.Fees,
			Before:      before,
			After:       snapshotPool(pool),
		}
		return nil
	})
	return result, tradeEvent, decayEvent, err
}

// decayRateForDays mirrors the tiering in ApplyDecay so Trade's event can
// report the rate without re-deriving qBps.
func decayRateForDays(days int64) uint64 {
	switch {
	case days < DecayTierOneDays:
		return DecayRateTierOne
	case days < DecayTierTwoDays:
		return DecayRateTierTwo
	default:
		return DecayRateTierThree
	}
}

// AddLiquidity is the spec §6.2 add_liquidity operation: bilateral mint
// that preserves the pool's market prediction q.
func (m *Manager) AddLiquidity(ctx context.Context, contentID [32]byte, trader common.Address, usdcAmount uint64) (*LiquidityResult, *LiquidityAddedEvent, error) {
	var result *LiquidityResult
	var event *LiquidityAddedEvent

	err := m.withPool(contentID, func(pool *Pool) error {
		if !pool.Deployed {
			return ErrMarketNotDeployed
		}
		before := snapshotPool(pool)

		liquidity, err := ComputeAddLiquidity(pool, usdcAmount)
		if err != nil {
			return err
		}

		if err := m.ledger.Transfer(ctx, trader, pool.VaultAddress, usdcAmount); err != nil {
			return err
		}
		if liquidity.LongTokens > 0 {
			if err := m.ledger.MintTo(ctx, pool.LongMint, trader, liquidity.LongTokens*AtomicPerDisplay); err != nil {
				return err
			}
		}
		if liquidity.ShortTokens > 0 {
			if err := m.ledger.MintTo(ctx, pool.ShortMint, trader, liquidity.ShortTokens*AtomicPerDisplay); err != nil {
				return err
			}
		}

		pool.SLong += liquidity.LongTokens
		pool.SShort += liquidity.ShortTokens
		pool.RLong, pool.RShort = liquidity.RLong, liquidity.RShort
		pool.VaultBalance = liquidity.VaultBalance
		pool.SigmaLong, pool.SigmaShort = liquidity.SigmaLong, liquidity.SigmaShort
		pool.SqrtPriceLong, pool.SqrtPriceShort = liquidity.SqrtPriceLong, liquidity.SqrtPriceShort

		result = liquidity
		event = &LiquidityAddedEvent{
			ContentID:   contentID,
			USDCAmount:  usdcAmount,
			LongTokens:  liquidity.LongTokens,
			ShortTokens: liquidity.ShortTokens,
			Before:      before,
			After:       snapshotPool(pool),
		}
		return nil
	})
	return result, event, err
}

// SettleEpoch is the spec §6.2 settle_epoch operation, gated to the
// protocol authority and to at most once per MinSettleInterval.
func (m *Manager) SettleEpoch(contentID [32]byte, signer common.Address, bdScore uint64) (*SettleResult, *SettleAppliedEvent, error) {
	var result *SettleResult
	var event *SettleAppliedEvent

	err := m.withPool(contentID, func(pool *Pool) error {
		if !pool.Deployed {
			return ErrMarketNotDeployed
		}
		if !m.ledger.AuthorityCheck(signer, m.factory.ProtocolAuthority) {
			return ErrUnauthorizedProtocol
		}

		before := snapshotPool(pool)
		sigmaLongBefore, sigmaShortBefore := pool.SigmaLong, pool.SigmaShort

		now := m.ledger.Clock()
		settle, err := Settle(pool, bdScore, now, m.factory.MinSettleInterval)
		if err != nil {
			return err
		}

		pool.RLong, pool.RShort = settle.RLong, settle.RShort
		pool.SigmaLong, pool.SigmaShort = settle.SigmaLong, settle.SigmaShort
		pool.SqrtPriceLong, pool.SqrtPriceShort = settle.SqrtPriceLong, settle.SqrtPriceShort
		pool.CurrentEpoch = settle.CurrentEpoch
		pool.LastSettleTS = now

		result = settle
		event = &SettleAppliedEvent{
			ContentID:        contentID,
			BDScore:          bdScore,
			Epoch:            settle.CurrentEpoch,
			SigmaLongBefore:  sigmaLongBefore,
			SigmaShortBefore: sigmaShortBefore,
			Before:           before,
			After:            snapshotPool(pool),
		}
		return nil
	})
	return result, event, err
}

// ClosePool is the spec §6.2 close_pool operation: it may only run once
// both display supplies are zero (spec §3.3), and it drains whatever
// remains in the vault to receiver. ComputeSell keeps each side at or above
// MinPoolLiquidity, so trading alone never brings a deployed pool's
// supplies to zero.
func (m *Manager) ClosePool(ctx context.Context, contentID [32]byte, signer, receiver common.Address) (uint64, error) {
	var drained uint64
	err := m.withPool(contentID, func(pool *Pool) error {
		if !m.ledger.AuthorityCheck(signer, m.factory.ProtocolAuthority) {
			return ErrUnauthorizedProtocol
		}
		if pool.SLong != 0 || pool.SShort != 0 {
			return ErrPositionsStillOpen
		}
		if pool.VaultBalance == 0 {
			return nil
		}
		if err := m.ledger.Transfer(ctx, pool.VaultAddress, receiver, pool.VaultBalance); err != nil {
			return err
		}
		drained = pool.VaultBalance
		pool.RLong, pool.RShort, pool.VaultBalance = 0, 0, 0
		return nil
	})
	return drained, err
}

// GetState is the spec §6.2 get_state operation: a read-only projection of
// current supplies, reserves, q, prices, and the decay/settlement
// eligibility flags the original program's get_current_state instruction
// additionally reports (spec §1 supplemented feature 1).
func (m *Manager) GetState(contentID [32]byte) (*PoolSnapshot, error) {
	var snapshot *PoolSnapshot
	err := m.withPoolRead(contentID, func(pool *Pool) error {
		now := m.ledger.Clock()
		elapsed := now - pool.LastSettleTS
		secondsUntil := m.factory.MinSettleInterval - elapsed
		if secondsUntil < 0 {
			secondsUntil = 0
		}
		snapshot = &PoolSnapshot{
			SLong:                      pool.SLong,
			SShort:                     pool.SShort,
			RLong:                      pool.RLong,
			RShort:                     pool.RShort,
			VaultBalance:               pool.VaultBalance,
			SqrtPriceLong:              pool.SqrtPriceLong,
			SqrtPriceShort:             pool.SqrtPriceShort,
			QMicro:                     MarketPredictionQ(pool.RLong, pool.RShort),
			CurrentEpoch:               pool.CurrentEpoch,
			SecondsUntilSettleEligible: secondsUntil,
			DecayPending:               ShouldApplyDecay(pool, now),
		}
		return nil
	})
	return snapshot, err
}
