package config

import (
	"marketchain/blockstore"
)

// NodeConfig represents the node's listen surface
type NodeConfig struct {
	RPCAddr     string `yaml:"rpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// ConsensusConfig holds the single consensus tunable. Difficulty is
// fixed for the life of the chain; retargeting is a non-goal.
type ConsensusConfig struct {
	Difficulty int `yaml:"difficulty"`
}

// MempoolConfig bounds the pending transaction queue
type MempoolConfig struct {
	MaxTxs int `yaml:"max_txs"`
}

// MinerConfig drives the block production loop
type MinerConfig struct {
	BatchSize  int `yaml:"batch_size"`
	IntervalMs int `yaml:"interval_ms"`
}

// AppConfig holds the full node configuration from marketchain.yml
type AppConfig struct {
	Node      NodeConfig             `yaml:"node"`
	Consensus ConsensusConfig        `yaml:"consensus"`
	Mempool   MempoolConfig          `yaml:"mempool"`
	Miner     MinerConfig            `yaml:"miner"`
	Store     blockstore.StoreConfig `yaml:"store"`
}

// ConfigFile is the top-level structure for marketchain.yml
type ConfigFile struct {
	Config AppConfig `yaml:"config"`
}
