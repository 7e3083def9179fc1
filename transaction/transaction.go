package transaction

import (
	"crypto/ed25519"
	"fmt"

	"github.com/holiman/uint256"

	"marketchain/common"
)

// Limits to prevent DoS via oversized inputs
const (
	maxTextDataLen         = 4096
	maxSignatureBase58Len  = 2048
	maxSignatureDecodedLen = 4096
)

// Transaction is an ordered, byte-serializable marketplace record. Its
// identity is the SHA-256 digest of Serialize(); once committed into a
// block it is immutable - any change yields a different transaction.
type Transaction struct {
	Sender    string       `json:"sender"`
	Recipient string       `json:"recipient"`
	Amount    *uint256.Int `json:"amount"`
	Timestamp uint64       `json:"timestamp"`
	TextData  string       `json:"text_data"`
	Nonce     uint64       `json:"nonce,omitempty"`
	Signature string       `json:"signature,omitempty"`
}

// Serialize returns the canonical byte form of the transaction. These
// exact bytes feed the digest that the merkle commitment is built over,
// so the field order and separators are fixed.
func (tx *Transaction) Serialize() []byte {
	amountStr := uint256ToString(tx.Amount)
	metadata := fmt.Sprintf(
		"%s|%s|%s|%d|%s|%d",
		tx.Sender, tx.Recipient, amountStr, tx.Timestamp, tx.TextData, tx.Nonce,
	)
	return []byte(metadata)
}

// Hash returns the transaction identity digest in lowercase hex.
func (tx *Transaction) Hash() string {
	return common.Sha256Hex(tx.Serialize())
}

// Sign signs the canonical bytes and stores the base58 signature. The
// sender address must be the base58-encoded ed25519 public key matching
// privKey for Verify to accept the result.
func (tx *Transaction) Sign(privKey ed25519.PrivateKey) {
	sig := ed25519.Sign(privKey, tx.Serialize())
	tx.Signature = common.EncodeBytesToBase58(sig)
}

// Verify checks the stored signature against the sender public key.
func (tx *Transaction) Verify() bool {
	if tx.Signature == "" {
		return false
	}
	if len(tx.Signature) > maxSignatureBase58Len {
		return false
	}
	sig, err := common.DecodeBase58ToBytes(tx.Signature)
	if err != nil || len(sig) > maxSignatureDecodedLen {
		return false
	}
	pub, err := common.DecodeBase58ToBytes(tx.Sender)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), tx.Serialize(), sig)
}

// Validate performs structural checks before mempool admission.
func (tx *Transaction) Validate() error {
	if tx.Sender == "" || !common.IsValidBase58(tx.Sender) {
		return fmt.Errorf("invalid sender address: %q", tx.Sender)
	}
	if tx.Recipient == "" || !common.IsValidBase58(tx.Recipient) {
		return fmt.Errorf("invalid recipient address: %q", tx.Recipient)
	}
	if tx.Amount == nil {
		return fmt.Errorf("missing amount")
	}
	if len(tx.TextData) > maxTextDataLen {
		return fmt.Errorf("text data too large: %d bytes", len(tx.TextData))
	}
	return nil
}

func uint256ToString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
