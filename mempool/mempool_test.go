package mempool

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"

	"github.com/holiman/uint256"

	"marketchain/common"
	"marketchain/transaction"
)

// ----------------- Helpers -----------------

var keyPairStore = map[string]struct {
	Private ed25519.PrivateKey
	Address string
}{}
var keyPairMu sync.Mutex

func getOrCreateKeyPair(t *testing.T, name string) (ed25519.PrivateKey, string) {
	t.Helper()
	keyPairMu.Lock()
	defer keyPairMu.Unlock()
	if v, ok := keyPairStore[name]; ok {
		return v.Private, v.Address
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := common.EncodeBytesToBase58(pub)
	keyPairStore[name] = struct {
		Private ed25519.PrivateKey
		Address string
	}{Private: priv, Address: addr}
	return priv, addr
}

func createTestTx(t *testing.T, senderName string, nonce uint64) *transaction.Transaction {
	t.Helper()
	priv, sender := getOrCreateKeyPair(t, senderName)
	_, recipient := getOrCreateKeyPair(t, senderName+"-recipient")

	tx := &transaction.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    uint256.NewInt(100),
		Timestamp: 1735689600,
		TextData:  fmt.Sprintf("test-%d", nonce),
		Nonce:     nonce,
	}
	tx.Sign(priv)
	return tx
}

// ----------------- Tests -----------------

func TestNewMempool_Empty(t *testing.T) {
	mp := NewMempool(100)
	if mp == nil {
		t.Fatal("NewMempool returned nil")
	}
	if mp.Size() != 0 {
		t.Fatalf("expected empty mempool, got %d", mp.Size())
	}
}

func TestAddTx_SuccessAndDuplicate(t *testing.T) {
	mp := NewMempool(10)

	tx := createTestTx(t, "senderA", 1)
	h, err := mp.AddTx(tx)
	if err != nil {
		t.Fatalf("expected add tx success, got err: %v", err)
	}
	if h != tx.Hash() {
		t.Fatalf("returned hash %q, want %q", h, tx.Hash())
	}
	if mp.Size() != 1 {
		t.Fatalf("expected size 1 after add, got %d", mp.Size())
	}

	if _, err := mp.AddTx(tx); err == nil {
		t.Fatalf("expected duplicate add to fail")
	}
}

func TestAddTx_RejectsUnsignedAndInvalid(t *testing.T) {
	mp := NewMempool(10)

	unsigned := createTestTx(t, "senderB", 1)
	unsigned.Signature = ""
	if _, err := mp.AddTx(unsigned); err == nil {
		t.Fatalf("expected unsigned tx rejected")
	}

	tampered := createTestTx(t, "senderB", 2)
	tampered.Amount = uint256.NewInt(999999)
	if _, err := mp.AddTx(tampered); err == nil {
		t.Fatalf("expected tampered tx rejected")
	}

	malformed := createTestTx(t, "senderB", 3)
	malformed.Recipient = ""
	if _, err := mp.AddTx(malformed); err == nil {
		t.Fatalf("expected malformed tx rejected")
	}

	if mp.Size() != 0 {
		t.Fatalf("expected empty mempool, got %d", mp.Size())
	}
}

func TestAddTx_FullMempool(t *testing.T) {
	mp := NewMempool(1)

	if _, err := mp.AddTx(createTestTx(t, "s1", 1)); err != nil {
		t.Fatalf("add tx1 failed: %v", err)
	}
	if _, err := mp.AddTx(createTestTx(t, "s2", 1)); err == nil {
		t.Fatalf("expected add tx2 to fail due mempool full")
	}
}

func TestPullBatch_OrderAndDrain(t *testing.T) {
	mp := NewMempool(10)

	tx1 := createTestTx(t, "p1", 1)
	tx2 := createTestTx(t, "p1", 2)
	tx3 := createTestTx(t, "p1", 3)
	for _, tx := range []*transaction.Transaction{tx1, tx2, tx3} {
		if _, err := mp.AddTx(tx); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	batch := mp.PullBatch(2)
	if len(batch) != 2 {
		t.Fatalf("expected 2 txs from PullBatch, got %d", len(batch))
	}
	if batch[0].Hash() != tx1.Hash() || batch[1].Hash() != tx2.Hash() {
		t.Fatalf("batch not in arrival order")
	}
	if mp.Size() != 1 {
		t.Fatalf("expected size 1 after pull, got %d", mp.Size())
	}

	// Pulled txs are no longer duplicates and may be resubmitted.
	if _, err := mp.AddTx(tx1); err != nil {
		t.Fatalf("resubmission after pull failed: %v", err)
	}
}

func TestPullBatch_Empty(t *testing.T) {
	mp := NewMempool(10)
	if batch := mp.PullBatch(5); batch != nil {
		t.Fatalf("expected nil batch from empty mempool, got %d", len(batch))
	}
}

func TestConcurrentAddTx(t *testing.T) {
	mp := NewMempool(200)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tx := createTestTx(t, fmt.Sprintf("con%d", id), uint64(id))
			_, _ = mp.AddTx(tx)
		}(i)
	}
	wg.Wait()

	if mp.Size() != 20 {
		t.Fatalf("expected 20 tx in mempool after concurrent adds, got %d", mp.Size())
	}
}
