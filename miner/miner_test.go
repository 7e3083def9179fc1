package miner

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"marketchain/chain"
	"marketchain/common"
	"marketchain/consensus"
	"marketchain/mempool"
	"marketchain/transaction"
)

func signedTx(t *testing.T, nonce uint64) *transaction.Transaction {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := &transaction.Transaction{
		Sender:    common.EncodeBytesToBase58(pub),
		Recipient: common.EncodeBytesToBase58(pub),
		Amount:    uint256.NewInt(1),
		Timestamp: 1735689600,
		TextData:  fmt.Sprintf("mine-%d", nonce),
		Nonce:     nonce,
	}
	tx.Sign(priv)
	return tx
}

func newTestChain(t *testing.T) *chain.Chain {
	t.Helper()
	engine, err := consensus.NewProofOfWork(1)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	c, err := chain.New(engine)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	return c
}

func TestService_MinesPendingTransactions(t *testing.T) {
	c := newTestChain(t)
	mp := mempool.NewMempool(100)

	for i := uint64(0); i < 3; i++ {
		if _, err := mp.AddTx(signedTx(t, i)); err != nil {
			t.Fatalf("add tx: %v", err)
		}
	}

	svc := NewService(c, mp, 10, 10*time.Millisecond)
	svc.Start()
	defer svc.Stop()

	deadline := time.After(5 * time.Second)
	for c.Len() < 2 {
		select {
		case <-deadline:
			t.Fatalf("miner did not produce a block, height %d, mempool %d", c.Len()-1, mp.Size())
		case <-time.After(10 * time.Millisecond):
		}
	}

	if mp.Size() != 0 {
		t.Fatalf("mempool not drained, %d left", mp.Size())
	}
	if report := c.ValidateChain(); !report.Valid {
		t.Fatalf("mined chain invalid: %s", report.Violation)
	}
	b := c.Head()
	if len(b.Transactions) == 0 {
		t.Fatalf("mined block is empty")
	}
}

func TestService_SkipsEmptyMempool(t *testing.T) {
	c := newTestChain(t)
	mp := mempool.NewMempool(100)

	svc := NewService(c, mp, 10, 5*time.Millisecond)
	svc.Start()
	time.Sleep(50 * time.Millisecond)
	svc.Stop()

	if c.Len() != 1 {
		t.Fatalf("empty mempool produced %d blocks", c.Len()-1)
	}
}

func TestService_StopCancelsCleanly(t *testing.T) {
	c := newTestChain(t)
	mp := mempool.NewMempool(100)

	svc := NewService(c, mp, 10, 5*time.Millisecond)
	svc.Start()

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}
}
