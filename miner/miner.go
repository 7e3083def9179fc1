// Package miner drives block production: it drains the mempool on an
// interval and runs the chain append protocol with a cancellable proof
// search, so a mining run can be abandoned on shutdown.
package miner

import (
	"context"
	"time"

	"marketchain/chain"
	"marketchain/exception"
	"marketchain/logx"
	"marketchain/mempool"
)

// Service periodically pulls a transaction batch and appends it.
type Service struct {
	chain     *chain.Chain
	mempool   *mempool.Mempool
	batchSize int
	interval  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService wires a miner over the given chain and mempool.
func NewService(c *chain.Chain, mp *mempool.Mempool, batchSize int, interval time.Duration) *Service {
	return &Service{
		chain:     c,
		mempool:   mp,
		batchSize: batchSize,
		interval:  interval,
	}
}

// Start launches the mining loop in the background.
func (s *Service) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	exception.SafeGo("miner", func() {
		defer close(s.done)
		s.run(ctx)
	})
	logx.Info("MINER", "Mining service started, interval ", s.interval)
}

// Stop cancels any in-flight proof search and waits for the loop to exit.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logx.Info("MINER", "Mining service stopped")
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mineOnce(ctx)
		}
	}
}

// mineOnce drains one batch and appends it. An empty mempool is a
// no-op; empty blocks are not produced.
func (s *Service) mineOnce(ctx context.Context) {
	batch := s.mempool.PullBatch(s.batchSize)
	if len(batch) == 0 {
		return
	}

	b, err := s.chain.Append(ctx, batch)
	if err != nil {
		// The batch is already out of the mempool; dropping it on
		// cancellation is acceptable, the submitter can retry.
		logx.Warn("MINER", "Failed to append block: ", err)
		return
	}
	logx.Debug("MINER", "Mined block ", b.Header.Index, " with ", len(batch), " txs")
}
