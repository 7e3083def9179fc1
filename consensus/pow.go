package consensus

import (
	"context"
	"fmt"
	"strings"

	"marketchain/block"
)

// cancelCheckInterval is how many hash evaluations ProveContext runs
// between context polls. The tight loop has no other suspension point.
const cancelCheckInterval = 4096

// ProofOfWork admits a header whose digest carries difficulty leading
// zero hex characters. Expected search cost grows as 16^difficulty.
type ProofOfWork struct {
	difficulty   int
	targetPrefix string
}

// NewProofOfWork validates the difficulty at construction; a value of
// zero or below is a configuration error, never coerced.
func NewProofOfWork(difficulty int) (*ProofOfWork, error) {
	if difficulty <= 0 {
		return nil, fmt.Errorf("proof-of-work difficulty must be positive, got %d", difficulty)
	}
	return &ProofOfWork{
		difficulty:   difficulty,
		targetPrefix: strings.Repeat("0", difficulty),
	}, nil
}

// Difficulty returns the configured leading-zero count.
func (p *ProofOfWork) Difficulty() int {
	return p.difficulty
}

// Prove searches nonces from 0 upwards until the header digest meets
// the target prefix. It runs to completion; callers needing bounded
// search use ProveContext.
func (p *ProofOfWork) Prove(index uint64, timestamp int64, prevHash, merkleRoot string) uint64 {
	var nonce uint64
	for {
		hash := block.ComputeHash(index, timestamp, prevHash, merkleRoot, nonce)
		if strings.HasPrefix(hash, p.targetPrefix) {
			return nonce
		}
		nonce++
	}
}

// ProveContext is Prove with a cancellation check every
// cancelCheckInterval iterations.
func (p *ProofOfWork) ProveContext(ctx context.Context, index uint64, timestamp int64, prevHash, merkleRoot string) (uint64, error) {
	var nonce uint64
	for {
		if nonce%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
		}
		hash := block.ComputeHash(index, timestamp, prevHash, merkleRoot, nonce)
		if strings.HasPrefix(hash, p.targetPrefix) {
			return nonce, nil
		}
		nonce++
	}
}

// ValidateBlockHeader recomputes the digest over the stored header
// fields and nonce. Both the stored hash and the target prefix must
// match; any discrepancy yields false.
func (p *ProofOfWork) ValidateBlockHeader(h *block.Header) bool {
	if h == nil {
		return false
	}
	recomputed := block.ComputeHash(h.Index, h.Timestamp, h.PrevHash, h.MerkleRoot, h.Nonce)
	if recomputed != h.Hash {
		return false
	}
	return strings.HasPrefix(recomputed, p.targetPrefix)
}

var _ Engine = (*ProofOfWork)(nil)
