package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"marketchain/blockstore"
	"marketchain/logx"
)

const (
	defaultRPCAddr     = ":8545"
	defaultMetricsAddr = ":9100"
	defaultMaxTxs      = 10000
	defaultBatchSize   = 256
	defaultIntervalMs  = 1000
	defaultDifficulty  = 4
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Node: NodeConfig{
			RPCAddr:     defaultRPCAddr,
			MetricsAddr: defaultMetricsAddr,
		},
		Consensus: ConsensusConfig{Difficulty: defaultDifficulty},
		Mempool:   MempoolConfig{MaxTxs: defaultMaxTxs},
		Miner:     MinerConfig{BatchSize: defaultBatchSize, IntervalMs: defaultIntervalMs},
		Store: blockstore.StoreConfig{
			Type:      blockstore.LevelDBStoreType,
			Directory: "./blockstore/blocks",
		},
	}
}

// LoadConfig reads and parses the marketchain.yml file
func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer file.Close()

	cfgFile := ConfigFile{Config: *DefaultConfig()}
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	cfg := cfgFile.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded config: difficulty=%d store=%s rpc=%s", cfg.Consensus.Difficulty, cfg.Store.Type, cfg.Node.RPCAddr))
	return &cfg, nil
}

// Validate rejects configurations that must fail before any proof
// search is attempted. Difficulty is never silently coerced.
func (c *AppConfig) Validate() error {
	if c.Consensus.Difficulty <= 0 {
		return fmt.Errorf("consensus difficulty must be positive, got %d", c.Consensus.Difficulty)
	}
	if c.Mempool.MaxTxs <= 0 {
		return fmt.Errorf("mempool max_txs must be positive, got %d", c.Mempool.MaxTxs)
	}
	if c.Miner.BatchSize <= 0 {
		return fmt.Errorf("miner batch_size must be positive, got %d", c.Miner.BatchSize)
	}
	if c.Miner.IntervalMs <= 0 {
		return fmt.Errorf("miner interval_ms must be positive, got %d", c.Miner.IntervalMs)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	return nil
}
