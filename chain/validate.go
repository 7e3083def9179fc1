package chain

import (
	"fmt"

	"marketchain/block"
	"marketchain/merkle"
)

// Invariant names a chain invariant checked during validation.
type Invariant string

const (
	// InvariantGenesis: block 0 has index 0 and the sentinel previous hash.
	InvariantGenesis Invariant = "genesis"
	// InvariantLinkage: previous_hash equals the predecessor's hash.
	InvariantLinkage Invariant = "linkage"
	// InvariantIndex: index equals the predecessor's index plus one.
	InvariantIndex Invariant = "index"
	// InvariantConsensus: the stored hash is the recomputed header digest
	// and satisfies the engine's validity predicate.
	InvariantConsensus Invariant = "consensus"
	// InvariantMerkle: the committed merkle root matches the batch.
	InvariantMerkle Invariant = "merkle"
)

// Violation localizes the first failed invariant during validation.
type Violation struct {
	Index     uint64    `json:"index"`
	Invariant Invariant `json:"invariant"`
	Detail    string    `json:"detail"`
}

func (v *Violation) String() string {
	return fmt.Sprintf("block %d violates %s invariant: %s", v.Index, v.Invariant, v.Detail)
}

// Report is the outcome of a full chain walk. Violations are outcomes,
// not errors: tampering is reported, never auto-repaired.
type Report struct {
	Valid     bool       `json:"valid"`
	Height    uint64     `json:"height"`
	Violation *Violation `json:"violation,omitempty"`
}

// ValidateChain walks the chain from genesis, checking every invariant
// for every block. It short-circuits at the first violation. The walk
// is a pure read: calling it twice on an unmodified chain yields the
// same report.
func (c *Chain) ValidateChain() *Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := &Report{Valid: true, Height: uint64(len(c.blocks) - 1)}
	for i := range c.blocks {
		if v := c.validateAt(uint64(i)); v != nil {
			report.Valid = false
			report.Violation = v
			return report
		}
	}
	return report
}

// ValidateBlockAt checks a single block against its direct predecessor
// without re-walking the whole prefix. A nil result means valid.
func (c *Chain) ValidateBlockAt(i uint64) *Violation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i >= uint64(len(c.blocks)) {
		return &Violation{Index: i, Invariant: InvariantIndex, Detail: fmt.Sprintf("no block at index %d (height %d)", i, len(c.blocks)-1)}
	}
	return c.validateAt(i)
}

// validateAt checks invariants for c.blocks[i]. Caller holds the lock.
func (c *Chain) validateAt(i uint64) *Violation {
	b := c.blocks[i]

	if i == 0 {
		if b.Header.Index != 0 {
			return &Violation{Index: i, Invariant: InvariantGenesis, Detail: fmt.Sprintf("genesis index is %d, want 0", b.Header.Index)}
		}
		if b.Header.PrevHash != block.GenesisPrevHash {
			return &Violation{Index: i, Invariant: InvariantGenesis, Detail: "genesis previous hash is not the sentinel"}
		}
	} else {
		prev := c.blocks[i-1]
		if b.Header.PrevHash != prev.Header.Hash {
			return &Violation{Index: i, Invariant: InvariantLinkage, Detail: fmt.Sprintf("previous hash %s... does not match predecessor hash %s...", short(b.Header.PrevHash), short(prev.Header.Hash))}
		}
		if b.Header.Index != prev.Header.Index+1 {
			return &Violation{Index: i, Invariant: InvariantIndex, Detail: fmt.Sprintf("index %d does not follow predecessor index %d", b.Header.Index, prev.Header.Index)}
		}
	}

	if !c.engine.ValidateBlockHeader(&b.Header) {
		return &Violation{Index: i, Invariant: InvariantConsensus, Detail: "stored hash does not match recomputed digest or misses the difficulty target"}
	}

	if root := merkle.Root(b.TxIDs()); root != b.Header.MerkleRoot {
		return &Violation{Index: i, Invariant: InvariantMerkle, Detail: fmt.Sprintf("merkle root %s... does not commit to the stored batch", short(b.Header.MerkleRoot))}
	}
	return nil
}

func short(digest string) string {
	if len(digest) > 10 {
		return digest[:10]
	}
	return digest
}
