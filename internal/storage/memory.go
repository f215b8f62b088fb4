package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"ammledger/internal/model"
)

type balanceKey struct {
	provider string
	pair     model.PairKey
}

// MemoryStore keeps all records in process memory. It backs tests and
// ephemeral runs; durable deployments use the file or Postgres stores.
type MemoryStore struct {
	mu       sync.RWMutex
	pools    map[model.PairKey]model.Pool
	balances map[balanceKey]uint256.Int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:    make(map[model.PairKey]model.Pool),
		balances: make(map[balanceKey]uint256.Int),
	}
}

func (s *MemoryStore) GetPool(_ context.Context, key model.PairKey) (model.Pool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[key]
	return pool, ok, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, provider string, key model.PairKey) (uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey{provider: provider, pair: key}], nil
}

func (s *MemoryStore) ListPools(_ context.Context) ([]model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool)
	}
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].Key().String() < pools[j].Key().String()
	})
	return pools, nil
}

func (s *MemoryStore) Apply(_ context.Context, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools[update.Pool.Key()] = update.Pool
	if update.Balance != nil {
		s.balances[balanceKey{provider: update.Balance.Provider, pair: update.Balance.Key()}] = update.Balance.Balance
	}
	return nil
}
