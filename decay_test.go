// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestShouldApplyDecayRequiresExpirationAndElapsedDay(t *testing.T) {
	pool := newTestPool()
	pool.ExpirationTimestamp = 1_000
	// The elapsed day is counted from LastDecayUpdate; start it at expiration.
	pool.LastDecayUpdate = 1_000

	if ShouldApplyDecay(pool, 500) {
		t.Fatalf("should not decay before expiration")
	}
	if ShouldApplyDecay(pool, 1_000+DecaySecondsPerDay-1) {
		t.Fatalf("should not decay before a full day has elapsed past expiration")
	}
	if !ShouldApplyDecay(pool, 1_000+DecaySecondsPerDay) {
		t.Fatalf("should decay once a full day has elapsed past expiration")
	}
}

func TestShouldApplyDecayDisabledWithoutExpiration(t *testing.T) {
	pool := newTestPool()
	pool.ExpirationTimestamp = 0
	if ShouldApplyDecay(pool, 1<<40) {
		t.Fatalf("pool with no expiration timestamp should never decay")
	}
}

func TestApplyDecayPreservesReserveSum(t *testing.T) {
	pool := newTestPool()
	pool.ExpirationTimestamp = 1_000
	result, err := ApplyDecay(pool, 1_000+3*DecaySecondsPerDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RLong+result.RShort != pool.VaultBalance {
		t.Fatalf("reserve sum invariant broken: %d + %d != %d", result.RLong, result.RShort, pool.VaultBalance)
	}
}

func TestApplyDecayPullsTowardFloorOverTime(t *testing.T) {
	pool := newTestPool()
	pool.ExpirationTimestamp = 1_000
	shortDecay, err := ApplyDecay(pool, 1_000+2*DecaySecondsPerDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	longDecay, err := ApplyDecay(pool, 1_000+60*DecaySecondsPerDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The pool started at q=60%; more elapsed days should pull r_long's
	// share down further toward the floor.
	if longDecay.RLong >= shortDecay.RLong {
		t.Fatalf("expected longer decay to reduce r_long further: short=%d long=%d", shortDecay.RLong, longDecay.RLong)
	}
}

func TestApplyDecayDoesNotChangeSigma(t *testing.T) {
	pool := newTestPool()
	pool.ExpirationTimestamp = 1_000
	sigmaLongBefore := new(uint256.Int).Set(pool.SigmaLong)
	_, err := ApplyDecay(pool, 1_000+10*DecaySecondsPerDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.SigmaLong.Cmp(sigmaLongBefore) != 0 {
		t.Fatalf("ApplyDecay must not mutate pool.SigmaLong directly")
	}
}
