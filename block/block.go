package block

import (
	"fmt"
	"strings"

	"marketchain/common"
	"marketchain/transaction"
)

// GenesisPrevHash is the sentinel previous-hash of the block at index 0.
var GenesisPrevHash = strings.Repeat("0", common.DigestHexLen)

// Header carries every field the proof-of-work puzzle binds. Timestamp
// is a UnixNano reading; Hash is the digest over all preceding fields
// including Nonce.
type Header struct {
	Index      uint64 `json:"index"`
	Timestamp  int64  `json:"timestamp"`
	PrevHash   string `json:"prev_hash"`
	MerkleRoot string `json:"merkle_root"`
	Nonce      uint64 `json:"nonce"`
	Hash       string `json:"hash"`
}

// Block owns one header and the full ordered batch it commits to. It is
// assembled exactly once and never mutated afterwards; identity and
// equality are defined by the header hash.
type Block struct {
	Header       Header                     `json:"header"`
	Transactions []*transaction.Transaction `json:"transactions"`
}

// HeaderBytes returns the exact byte sequence fed to the header hash.
// The encoding is part of the consensus format and must not change:
// decimal index, decimal UnixNano timestamp, hex previous hash, hex
// merkle root and decimal nonce, joined by '|'.
func HeaderBytes(index uint64, timestamp int64, prevHash, merkleRoot string, nonce uint64) []byte {
	return []byte(fmt.Sprintf("%d|%d|%s|%s|%d", index, timestamp, prevHash, merkleRoot, nonce))
}

// ComputeHash returns the lowercase-hex header digest.
func ComputeHash(index uint64, timestamp int64, prevHash, merkleRoot string, nonce uint64) string {
	return common.Sha256Hex(HeaderBytes(index, timestamp, prevHash, merkleRoot, nonce))
}

// New assembles a block from a finalized header search result. The
// header hash is computed here, once.
func New(index uint64, timestamp int64, prevHash, merkleRoot string, nonce uint64, txs []*transaction.Transaction) *Block {
	batch := make([]*transaction.Transaction, len(txs))
	copy(batch, txs)
	return &Block{
		Header: Header{
			Index:      index,
			Timestamp:  timestamp,
			PrevHash:   prevHash,
			MerkleRoot: merkleRoot,
			Nonce:      nonce,
			Hash:       ComputeHash(index, timestamp, prevHash, merkleRoot, nonce),
		},
		Transactions: batch,
	}
}

// TxIDs returns the ordered transaction digests the merkle root is
// recomputed from during validation.
func (b *Block) TxIDs() []string {
	ids := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		ids[i] = tx.Hash()
	}
	return ids
}
