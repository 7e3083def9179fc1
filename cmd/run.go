package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"marketchain/blockstore"
	"marketchain/chain"
	"marketchain/config"
	"marketchain/consensus"
	"marketchain/jsonrpc"
	"marketchain/logx"
	"marketchain/mempool"
	"marketchain/miner"
	"marketchain/monitoring"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ledger node",
	Run: func(cmd *cobra.Command, args []string) {
		runNode(configPath)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to marketchain.yml (defaults apply when omitted)")
}

func loadConfiguration(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg := config.DefaultConfig()
		return cfg, cfg.Validate()
	}
	return config.LoadConfig(path)
}

func runNode(path string) {
	cfg, err := loadConfiguration(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	engine, err := consensus.NewProofOfWork(cfg.Consensus.Difficulty)
	if err != nil {
		log.Fatalf("Failed to build consensus engine: %v", err)
	}

	store, err := blockstore.NewStore(&cfg.Store)
	if err != nil {
		log.Fatalf("Failed to initialize blockstore: %v", err)
	}
	defer store.Close()

	ledger, err := chain.New(engine, chain.WithStore(store))
	if err != nil {
		log.Fatalf("Failed to initialize chain: %v", err)
	}

	mp := mempool.NewMempool(cfg.Mempool.MaxTxs)

	mining := miner.NewService(ledger, mp, cfg.Miner.BatchSize, time.Duration(cfg.Miner.IntervalMs)*time.Millisecond)
	mining.Start()

	rpc := jsonrpc.NewServer(cfg.Node.RPCAddr, ledger, mp)
	rpc.Start()

	monitoring.Serve(cfg.Node.MetricsAddr)
	monitoring.SetNodeUp()
	logx.Info("NODE", "Node is up. Height: ", ledger.Head().Header.Index)

	// Block until interrupted, then drain.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logx.Info("NODE", "Shutting down...")
	mining.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rpc.Stop(ctx); err != nil {
		logx.Warn("NODE", "RPC shutdown: ", err)
	}
}
