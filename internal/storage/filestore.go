package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"ammledger/internal/model"
)

// FileStore persists the full ledger state as a JSON snapshot, rewritten
// atomically (write-tmp-then-rename) on every applied update. It suits
// single-process CLI use; concurrent processes need the Postgres store.
type FileStore struct {
	path     string
	mu       sync.RWMutex
	pools    map[model.PairKey]model.Pool
	balances map[balanceKey]uint256.Int
}

type snapshot struct {
	Pools    []model.Pool          `json:"pools"`
	Balances []model.UserLiquidity `json:"balances"`
}

// NewFileStore opens the snapshot at path, starting empty when the file
// does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}

	s := &FileStore{
		path:     path,
		pools:    make(map[model.PairKey]model.Pool),
		balances: make(map[balanceKey]uint256.Int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	for _, pool := range snap.Pools {
		s.pools[pool.Key()] = pool
	}
	for _, balance := range snap.Balances {
		s.balances[balanceKey{provider: balance.Provider, pair: balance.Key()}] = balance.Balance
	}
	return s, nil
}

func (s *FileStore) GetPool(_ context.Context, key model.PairKey) (model.Pool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[key]
	return pool, ok, nil
}

func (s *FileStore) GetBalance(_ context.Context, provider string, key model.PairKey) (uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey{provider: provider, pair: key}], nil
}

func (s *FileStore) ListPools(_ context.Context) ([]model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedPoolsLocked(), nil
}

// Apply updates memory first and then rewrites the snapshot; the rename is
// the commit point, so a crash mid-write leaves the previous snapshot
// intact.
func (s *FileStore) Apply(_ context.Context, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := update.Pool.Key()
	prevPool, hadPool := s.pools[key]
	s.pools[key] = update.Pool

	var bKey balanceKey
	var prevBalance uint256.Int
	hadBalance := false
	if update.Balance != nil {
		bKey = balanceKey{provider: update.Balance.Provider, pair: update.Balance.Key()}
		prevBalance, hadBalance = s.balances[bKey]
		s.balances[bKey] = update.Balance.Balance
	}

	if err := s.persistLocked(); err != nil {
		if hadPool {
			s.pools[key] = prevPool
		} else {
			delete(s.pools, key)
		}
		if update.Balance != nil {
			if hadBalance {
				s.balances[bKey] = prevBalance
			} else {
				delete(s.balances, bKey)
			}
		}
		return err
	}
	return nil
}

func (s *FileStore) persistLocked() error {
	snap := snapshot{
		Pools:    s.sortedPoolsLocked(),
		Balances: make([]model.UserLiquidity, 0, len(s.balances)),
	}
	for key, balance := range s.balances {
		snap.Balances = append(snap.Balances, model.UserLiquidity{
			Provider:  key.provider,
			AssetLow:  key.pair.AssetLow,
			AssetHigh: key.pair.AssetHigh,
			Balance:   balance,
		})
	}
	sort.Slice(snap.Balances, func(i, j int) bool {
		if snap.Balances[i].Provider != snap.Balances[j].Provider {
			return snap.Balances[i].Provider < snap.Balances[j].Provider
		}
		return snap.Balances[i].Key().String() < snap.Balances[j].Key().String()
	})

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func (s *FileStore) sortedPoolsLocked() []model.Pool {
	pools := make([]model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool)
	}
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].Key().String() < pools[j].Key().String()
	})
	return pools
}
