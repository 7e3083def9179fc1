// LevelDB store implementation - always available

package blockstore

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"

	"marketchain/block"
	"marketchain/jsonx"
)

// LevelDBStore persists blocks into LevelDB.
// Key prefixes:
// - meta: metadata (e.g., latest_index)
// - blocks: key = blocks:index (uint64 BE), value = json(block.Block)
type LevelDBStore struct {
	dir         string
	mu          sync.RWMutex
	db          *leveldb.DB
	latestIndex uint64
	hasBlocks   bool
}

// NewLevelDBStore opens (or creates) a LevelDB database at dir.
func NewLevelDBStore(dir string) (Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}

	db, err := leveldb.OpenFile(filepath.Clean(dir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB at %s: %w", dir, err)
	}

	store := &LevelDBStore{
		dir: dir,
		db:  db,
	}

	if err := store.loadLatestIndex(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load latest index: %w", err)
	}

	return store, nil
}

// loadLatestIndex loads the highest stored block index from metadata
func (s *LevelDBStore) loadLatestIndex() error {
	val, err := s.db.Get(metaLatestKey(), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			// Key doesn't exist, store is empty
			return nil
		}
		return fmt.Errorf("failed to get latest index key: %w", err)
	}

	if len(val) == indexKeySize {
		s.latestIndex = binary.BigEndian.Uint64(val)
		s.hasBlocks = true
	}

	return nil
}

// PutBlock writes a new block and updates the latest-index metadata
// atomically. Rewriting an existing index is rejected.
func (s *LevelDBStore) PutBlock(b *block.Block) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return fmt.Errorf("LevelDB is closed")
	}

	key := indexToKey(b.Header.Index)

	if _, err := s.db.Get(key, nil); err == nil {
		return fmt.Errorf("block %d already exists", b.Header.Index)
	} else if err != leveldb.ErrNotFound {
		return fmt.Errorf("failed to check block existence: %w", err)
	}

	bytes, err := jsonx.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(key, bytes)

	if !s.hasBlocks || b.Header.Index > s.latestIndex {
		li := make([]byte, indexKeySize)
		binary.BigEndian.PutUint64(li, b.Header.Index)
		batch.Put(metaLatestKey(), li)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write block: %w", err)
	}

	if !s.hasBlocks || b.Header.Index > s.latestIndex {
		s.latestIndex = b.Header.Index
		s.hasBlocks = true
	}
	return nil
}

// GetBlock retrieves a block by index
func (s *LevelDBStore) GetBlock(index uint64) (*block.Block, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return nil, fmt.Errorf("LevelDB is closed")
	}

	val, err := db.Get(indexToKey(index), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get block %d: %w", index, err)
	}

	var b block.Block
	if err := jsonx.Unmarshal(val, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block %d: %w", index, err)
	}

	return &b, nil
}

// HasBlock checks if a block exists at the given index
func (s *LevelDBStore) HasBlock(index uint64) bool {
	b, err := s.GetBlock(index)
	return err == nil && b != nil
}

// LatestIndex returns the highest stored block index
func (s *LevelDBStore) LatestIndex() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestIndex, s.hasBlocks
}

// Close closes the LevelDB store and returns any error
func (s *LevelDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
