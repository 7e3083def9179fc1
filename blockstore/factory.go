package blockstore

import (
	"fmt"
)

// StoreType represents the type of blockstore implementation
type StoreType string

const (
	// MemoryStoreType keeps blocks in process memory only
	MemoryStoreType StoreType = "memory"
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"
	// BoltStoreType uses the bbolt implementation
	BoltStoreType StoreType = "bolt"
)

// StoreConfig holds configuration for creating blockstore instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}

	switch sc.Type {
	case MemoryStoreType:
		return nil
	case LevelDBStoreType, BoltStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for %s store", sc.Type)
		}
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// NewStore creates a blockstore instance from the configuration.
func NewStore(config *StoreConfig) (Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case MemoryStoreType:
		return NewMemoryStore(), nil
	case LevelDBStoreType:
		return NewLevelDBStore(config.Directory)
	case BoltStoreType:
		return NewBoltStore(config.Directory)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
