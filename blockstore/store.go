package blockstore

import (
	"encoding/binary"
	"errors"

	"marketchain/block"
)

const (
	// Key prefixes
	prefixMeta   = "meta:"
	prefixBlocks = "blocks:"

	// Metadata keys
	keyLatestIndex = "latest_index"

	// Key sizes
	indexKeySize = 8
)

// ErrNotFound is returned when no block exists at the requested index.
var ErrNotFound = errors.New("block not found")

// Store abstracts the confirmed-chain persistence backend. Blocks are
// keyed by index and written append-only; a stored block is never
// rewritten. The serialized form preserves the header fields exactly
// as they were fed to the hash function.
type Store interface {
	PutBlock(b *block.Block) error
	GetBlock(index uint64) (*block.Block, error)
	HasBlock(index uint64) bool
	// LatestIndex returns the highest stored index. ok is false for an
	// empty store.
	LatestIndex() (index uint64, ok bool)
	Close() error
}

// indexToKey converts a block index to a storage key with the blocks prefix
func indexToKey(index uint64) []byte {
	indexBytes := make([]byte, indexKeySize)
	binary.BigEndian.PutUint64(indexBytes, index)
	return append([]byte(prefixBlocks), indexBytes...)
}

func metaLatestKey() []byte {
	return []byte(prefixMeta + keyLatestIndex)
}
