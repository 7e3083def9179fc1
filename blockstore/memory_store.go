package blockstore

import (
	"fmt"
	"sync"

	"marketchain/block"
)

// MemoryStore is an in-process Store used by tests and ephemeral nodes.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks map[uint64]*block.Block
	latest uint64
	any    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blocks: make(map[uint64]*block.Block),
	}
}

func (s *MemoryStore) PutBlock(b *block.Block) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[b.Header.Index]; exists {
		return fmt.Errorf("block %d already exists", b.Header.Index)
	}
	s.blocks[b.Header.Index] = b
	if !s.any || b.Header.Index > s.latest {
		s.latest = b.Header.Index
		s.any = true
	}
	return nil
}

func (s *MemoryStore) GetBlock(index uint64) (*block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blocks[index]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) HasBlock(index uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[index]
	return ok
}

func (s *MemoryStore) LatestIndex() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.any
}

func (s *MemoryStore) Close() error {
	return nil
}
