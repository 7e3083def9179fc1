package blockstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"marketchain/block"
	"marketchain/jsonx"
)

var (
	boltBlocksBucket = []byte("blocks")
	boltMetaBucket   = []byte("meta")
)

// BoltStore persists blocks into a single-file bbolt database. Blocks
// live in the "blocks" bucket keyed by big-endian index; the "meta"
// bucket tracks the latest index.
type BoltStore struct {
	mu sync.Mutex
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt database under dir.
func NewBoltStore(dir string) (Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	db, err := bolt.Open(filepath.Join(dir, "blocks.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db in %s: %w", dir, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(boltBlocksBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(boltMetaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func boltIndexKey(index uint64) []byte {
	key := make([]byte, indexKeySize)
	binary.BigEndian.PutUint64(key, index)
	return key
}

func (s *BoltStore) PutBlock(b *block.Block) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}

	bytes, err := jsonx.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(boltBlocksBucket)
		key := boltIndexKey(b.Header.Index)
		if blocks.Get(key) != nil {
			return fmt.Errorf("block %d already exists", b.Header.Index)
		}
		if err := blocks.Put(key, bytes); err != nil {
			return err
		}

		meta := tx.Bucket(boltMetaBucket)
		latest := meta.Get(metaLatestKey())
		if latest == nil || binary.BigEndian.Uint64(latest) < b.Header.Index {
			return meta.Put(metaLatestKey(), key)
		}
		return nil
	})
}

func (s *BoltStore) GetBlock(index uint64) (*block.Block, error) {
	var b *block.Block
	err := s.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(boltBlocksBucket).Get(boltIndexKey(index))
		if val == nil {
			return ErrNotFound
		}
		var blk block.Block
		if err := jsonx.Unmarshal(val, &blk); err != nil {
			return fmt.Errorf("failed to unmarshal block %d: %w", index, err)
		}
		b = &blk
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BoltStore) HasBlock(index uint64) bool {
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(boltBlocksBucket).Get(boltIndexKey(index)) != nil
		return nil
	})
	return found
}

func (s *BoltStore) LatestIndex() (uint64, bool) {
	var index uint64
	var ok bool
	s.db.View(func(tx *bolt.Tx) error {
		latest := tx.Bucket(boltMetaBucket).Get(metaLatestKey())
		if len(latest) == indexKeySize {
			index = binary.BigEndian.Uint64(latest)
			ok = true
		}
		return nil
	})
	return index, ok
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
