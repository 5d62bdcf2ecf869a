// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Manager owns every deployed pool and the protocol-wide Factory config. It
// is the single point of synchronization: one RWMutex guards the registry
// map, giving each pool single-writer semantics (spec §5) without requiring
// a lock per pool. Handlers that only read a pool (get_state) take the read
// lock; every mutating operation takes the write lock for its whole
// duration, which is sufficient because no handler performs I/O other than
// the Ledger calls and none of those yield control back to another handler
// mid-flight.
type Manager struct {
	mu      sync.RWMutex
	pools   map[[32]byte]*Pool
	factory *Factory
	ledger  Ledger
}

// NewManager constructs a Manager bound to the given protocol configuration
// and host ledger.
func NewManager(factory *Factory, ledger Ledger) *Manager {
	return &Manager{
		pools:   make(map[[32]byte]*Pool),
		factory: factory,
		ledger:  ledger,
	}
}

// poolKey derives the registry storage key for a content id the same way
// the teacher's pool manager derives a storage key for a pool: a plain
// (unkeyed) blake3 digest over a fixed prefix and the identifier bytes, so that
// content ids and any other prefixed identifier space (positions, escrows)
// can never collide.
func poolKey(contentID [32]byte) [32]byte {
	h := blake3.New()
	h.Write([]byte("curation/pool"))
	h.Write(contentID[:])
	var key [32]byte
	h.Digest().Read(key[:])
	return key
}

// registerPool inserts a newly deployed pool under its content id, failing
// if one is already registered there.
func (m *Manager) registerPool(contentID [32]byte, pool *Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := poolKey(contentID)
	if _, exists := m.pools[key]; exists {
		return ErrMarketAlreadyDeployed
	}
	m.pools[key] = pool
	return nil
}

// vaultAddress derives the Ledger account this pool's reserve lives at from
// its storage key, the same way the teacher's pool manager treats a pool's
// BLAKE3 key as its own address rather than allocating a separate account.
func vaultAddress(key [32]byte) common.Address {
	return common.BytesToAddress(key[:20])
}

// CreatePool makes content id tradable-eventually: it writes the registry
// row and a zero-supply, zero-reserve Pool record with the Factory's
// current default curve parameters copied in, per spec §3.3's lifecycle
// ("created" is a distinct, idempotent step before "deployed"). Fails with
// ErrMarketAlreadyDeployed if a pool already exists for contentID, and with
// ErrInvalidParameter if the factory's own defaults would fail the
// parameter gate -- a configuration bug, not a caller error.
func (m *Manager) CreatePool(contentID [32]byte, creator, postCreator, longMint, shortMint common.Address, expirationTimestamp int64) (*Pool, error) {
	if err := ValidatePoolParams(m.factory.DefaultF, m.factory.DefaultBetaNum, m.factory.DefaultBetaDen); err != nil {
		return nil, err
	}

	key := poolKey(contentID)
	pool := &Pool{
		ContentID:           contentID,
		Creator:             creator,
		PostCreator:         postCreator,
		LongMint:            longMint,
		ShortMint:           shortMint,
		VaultAddress:        vaultAddress(key),
		F:                   m.factory.DefaultF,
		BetaNum:             m.factory.DefaultBetaNum,
		BetaDen:             m.factory.DefaultBetaDen,
		SigmaLong:           new(uint256.Int).Set(OneQ64),
		SigmaShort:          new(uint256.Int).Set(OneQ64),
		SqrtPriceLong:       uint256.NewInt(0),
		SqrtPriceShort:      uint256.NewInt(0),
		SqrtLambdaQ96:       uint256.NewInt(0),
		InitialQ:            uint256.NewInt(0),
		ExpirationTimestamp: expirationTimestamp,
	}

	if err := m.registerPool(contentID, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// lookupPool returns the pool registered for contentID, or
// ErrMarketNotDeployed.
func (m *Manager) lookupPool(contentID [32]byte) (*Pool, error) {
	key := poolKey(contentID)
	pool, exists := m.pools[key]
	if !exists {
		return nil, ErrMarketNotDeployed
	}
	return pool, nil
}

// withPool runs fn against the pool registered for contentID under the
// manager's write lock, giving fn exclusive access for the duration of one
// handler invocation.
func (m *Manager) withPool(contentID [32]byte, fn func(pool *Pool) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, err := m.lookupPool(contentID)
	if err != nil {
		return err
	}
	return fn(pool)
}

// withPoolRead runs fn against the pool registered for contentID under the
// manager's read lock, for handlers that only observe state (get_state).
func (m *Manager) withPoolRead(contentID [32]byte, fn func(pool *Pool) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, err := m.lookupPool(contentID)
	if err != nil {
		return err
	}
	return fn(pool)
}

// UpdateFactoryConfig updates the protocol-wide fee schedule and settlement
// cooldown. Recovered from the original program's update_config
// instruction; gated on the caller being the current protocol authority.
func (m *Manager) UpdateFactoryConfig(signer common.Address, totalFeeBps, creatorSplitBps uint64, minSettleInterval int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ledger.AuthorityCheck(signer, m.factory.ProtocolAuthority) {
		return ErrUnauthorizedProtocol
	}
	if totalFeeBps > QBpsBase || creatorSplitBps > QBpsBase {
		return ErrInvalidParameter
	}

	m.factory.TotalFeeBps = totalFeeBps
	m.factory.CreatorSplitBps = creatorSplitBps
	m.factory.MinSettleInterval = minSettleInterval
	return nil
}
