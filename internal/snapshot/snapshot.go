// Package snapshot provides best-effort, crash-safe inventory persistence
// using JSON files.
//
// Each market's inventory is stored as a separate file: inv_<marketSlug>.json.
// Writes use atomic file replacement (write to .tmp, then rename) to prevent
// corruption from partial writes or crashes mid-save. This is an optional
// adapter that cmd/directional calls every 2 seconds per active market; the
// core never depends on it for
// correctness, and a write failure is logged, not propagated as a fatal
// error.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"polymarket-mm/pkg/types"
)

// Store persists MarketInventory snapshots to JSON files in a designated
// directory. All operations are mutex-protected to prevent concurrent file
// corruption.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by the given directory, creating it if
// necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// SaveInventory atomically persists a market's inventory snapshot.
func (s *Store) SaveInventory(mi types.MarketInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(mi)
	if err != nil {
		return fmt.Errorf("marshal inventory: %w", err)
	}

	path := s.pathFor(mi.MarketSlug)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write inventory: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadInventory restores a market's inventory snapshot from disk. Returns
// nil, nil if no snapshot exists (fresh market, or one never persisted).
func (s *Store) LoadInventory(marketSlug string) (*types.MarketInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.pathFor(marketSlug))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var mi types.MarketInventory
	if err := json.Unmarshal(data, &mi); err != nil {
		return nil, fmt.Errorf("unmarshal inventory: %w", err)
	}
	return &mi, nil
}

// Evict removes a market's snapshot file, called once the market has
// expired and its ledger entry is evicted. A missing file is not an error.
func (s *Store) Evict(marketSlug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.pathFor(marketSlug)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("evict inventory: %w", err)
	}
	return nil
}

func (s *Store) pathFor(marketSlug string) string {
	return filepath.Join(s.dir, "inv_"+marketSlug+".json")
}
