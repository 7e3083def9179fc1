// Package chain owns the ordered block sequence and its append and
// validation protocol. A Chain instance is self-contained state, so
// independent chains can coexist in one process.
package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketchain/block"
	"marketchain/blockstore"
	"marketchain/consensus"
	"marketchain/logx"
	"marketchain/merkle"
	"marketchain/monitoring"
	"marketchain/transaction"
)

// GenesisTimestamp is the fixed UnixNano timestamp of block 0
// (2025-01-01T00:00:00Z). Part of the consensus format.
const GenesisTimestamp int64 = 1735689600000000000

// Chain is the append-only ledger. Appends are serialized so exactly
// one of two racing appends extends a given head; reads never observe
// a partially appended state.
type Chain struct {
	mu     sync.RWMutex
	blocks []*block.Block
	engine consensus.Engine
	store  blockstore.Store
	now    func() time.Time
}

// Option configures a Chain at construction.
type Option func(*Chain)

// WithStore persists every appended block (genesis included) to store,
// and resumes from the stored chain when one exists.
func WithStore(store blockstore.Store) Option {
	return func(c *Chain) { c.store = store }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// New constructs a chain whose genesis block (index 0, sentinel
// previous hash, empty batch) is solved against the engine's
// difficulty, so ValidateChain holds immediately. With a store
// attached, an existing persisted chain is reloaded and re-verified
// instead.
func New(engine consensus.Engine, opts ...Option) (*Chain, error) {
	if engine == nil {
		return nil, fmt.Errorf("consensus engine cannot be nil")
	}

	c := &Chain{
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store != nil {
		if _, ok := c.store.LatestIndex(); ok {
			if err := c.loadFromStore(); err != nil {
				return nil, err
			}
			return c, nil
		}
	}

	logx.Info("CHAIN", "Creating genesis block...")
	root := merkle.Root(nil)
	nonce := engine.Prove(0, GenesisTimestamp, block.GenesisPrevHash, root)
	genesis := block.New(0, GenesisTimestamp, block.GenesisPrevHash, root, nonce, nil)
	if c.store != nil {
		if err := c.store.PutBlock(genesis); err != nil {
			return nil, fmt.Errorf("failed to persist genesis block: %w", err)
		}
	}
	c.blocks = []*block.Block{genesis}
	monitoring.SetBlockHeight(0)
	logx.Info("CHAIN", "Genesis block created. Hash: ", genesis.Header.Hash[:10], "...")
	return c, nil
}

// loadFromStore rebuilds the in-memory chain from persisted blocks and
// re-verifies every invariant before accepting it.
func (c *Chain) loadFromStore() error {
	latest, _ := c.store.LatestIndex()
	blocks := make([]*block.Block, 0, latest+1)
	for i := uint64(0); i <= latest; i++ {
		b, err := c.store.GetBlock(i)
		if err != nil {
			return fmt.Errorf("failed to load block %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	c.blocks = blocks

	if report := c.ValidateChain(); !report.Valid {
		return fmt.Errorf("persisted chain is invalid: %s", report.Violation)
	}
	monitoring.SetBlockHeight(latest)
	logx.Info("CHAIN", "Resumed chain from store at height ", latest)
	return nil
}

// readTimestamp returns a clock reading clamped to be non-decreasing
// relative to the head block.
func (c *Chain) readTimestamp(headTimestamp int64) int64 {
	ts := c.now().UnixNano()
	if ts < headTimestamp {
		return headTimestamp
	}
	return ts
}

// Append commits an ordered transaction batch as the next block. The
// proof search runs outside the chain lock; when a concurrent append
// wins the race for the same head, the search restarts against the new
// head. ctx cancels an in-flight proof search.
func (c *Chain) Append(ctx context.Context, txs []*transaction.Transaction) (*block.Block, error) {
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.Hash()
	}
	root := merkle.Root(ids)

	for {
		head := c.Head()
		index := head.Header.Index + 1
		timestamp := c.readTimestamp(head.Header.Timestamp)

		start := time.Now()
		nonce, err := c.engine.ProveContext(ctx, index, timestamp, head.Header.Hash, root)
		if err != nil {
			return nil, fmt.Errorf("proof search for block %d aborted: %w", index, err)
		}
		monitoring.ObserveProve(time.Since(start), nonce+1)

		b := block.New(index, timestamp, head.Header.Hash, root, nonce, txs)

		c.mu.Lock()
		current := c.blocks[len(c.blocks)-1]
		if current.Header.Hash != head.Header.Hash {
			// Lost the race to another append; retry against the new head.
			c.mu.Unlock()
			logx.Debug("CHAIN", "Head moved during proof search, retrying block ", index)
			continue
		}
		if c.store != nil {
			if err := c.store.PutBlock(b); err != nil {
				c.mu.Unlock()
				return nil, fmt.Errorf("failed to persist block %d: %w", index, err)
			}
		}
		c.blocks = append(c.blocks, b)
		c.mu.Unlock()

		monitoring.SetBlockHeight(index)
		monitoring.ObserveTxInBlock(len(txs))
		monitoring.ObserveBlockTime(time.Duration(b.Header.Timestamp - head.Header.Timestamp).Seconds())
		logx.Info("CHAIN", fmt.Sprintf("Appended block %d (%d txs, nonce %d). Hash: %s...", index, len(txs), nonce, b.Header.Hash[:10]))
		return b, nil
	}
}

// Head returns the current last block.
func (c *Chain) Head() *block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Len returns the number of blocks, genesis included.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// BlockAt returns the block at index i.
func (c *Chain) BlockAt(i uint64) (*block.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("block index %d out of range (height %d)", i, len(c.blocks)-1)
	}
	return c.blocks[i], nil
}

// Range returns blocks [from, to] inclusive.
func (c *Chain) Range(from, to uint64) ([]*block.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if from > to {
		return nil, fmt.Errorf("invalid range [%d, %d]", from, to)
	}
	if to >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("block index %d out of range (height %d)", to, len(c.blocks)-1)
	}
	out := make([]*block.Block, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, c.blocks[i])
	}
	return out, nil
}
