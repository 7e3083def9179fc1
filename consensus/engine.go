// Package consensus decides which candidate headers are admitted to the
// chain. Engine is the pluggable strategy; ProofOfWork is the only
// concrete implementation.
package consensus

import (
	"context"

	"marketchain/block"
)

// Engine is the admission strategy for new blocks. Prove binds the
// nonce search to every header field so the puzzle cannot be solved
// once and reused for mutated content; ValidateBlockHeader recomputes
// the digest from the stored fields so any replica can re-verify a
// header without shared state.
type Engine interface {
	// Prove returns the first nonce satisfying the validity predicate
	// for the given header fields. CPU-bound and blocking; unbounded
	// in principle.
	Prove(index uint64, timestamp int64, prevHash, merkleRoot string) uint64

	// ProveContext is Prove with cooperative cancellation. It returns
	// ctx.Err() when the context is done before a nonce is found.
	ProveContext(ctx context.Context, index uint64, timestamp int64, prevHash, merkleRoot string) (uint64, error)

	// ValidateBlockHeader reports whether the stored hash matches the
	// recomputed digest and satisfies the validity predicate. It never
	// returns an error; a false result is an outcome, not a failure.
	ValidateBlockHeader(h *block.Header) bool
}
