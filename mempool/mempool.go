package mempool

import (
	"fmt"
	"sync"

	"marketchain/errors"
	"marketchain/monitoring"
	"marketchain/transaction"
)

// Mempool provides a thread-safe bounded queue of pending transactions
// awaiting inclusion in a block.
type Mempool struct {
	mu    sync.Mutex
	max   int
	txs   []*transaction.Transaction
	known map[string]struct{}
}

// NewMempool creates a new, empty mempool holding at most max entries.
func NewMempool(max int) *Mempool {
	return &Mempool{
		max:   max,
		txs:   make([]*transaction.Transaction, 0),
		known: make(map[string]struct{}),
	}
}

// AddTx validates and enqueues a transaction, returning its hash.
func (m *Mempool) AddTx(tx *transaction.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		monitoring.IncreaseRejectedTxCount(monitoring.TxInvalidFormat)
		return "", errors.NewLedgerError(errors.ErrCodeInvalidTransaction, fmt.Sprintf("%s: %v", errors.ErrMsgInvalidTransaction, err))
	}
	if !tx.Verify() {
		monitoring.IncreaseRejectedTxCount(monitoring.TxInvalidSignature)
		return "", errors.NewLedgerError(errors.ErrCodeInvalidSignature, errors.ErrMsgInvalidSignature)
	}

	hash := tx.Hash()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.known[hash]; dup {
		monitoring.IncreaseRejectedTxCount(monitoring.TxDuplicated)
		return "", errors.NewLedgerError(errors.ErrCodeDuplicateTransaction, errors.ErrMsgDuplicateTransaction)
	}
	if len(m.txs) >= m.max {
		monitoring.IncreaseRejectedTxCount(monitoring.TxMempoolFull)
		return "", errors.NewLedgerError(errors.ErrCodeMempoolFull, errors.ErrMsgMempoolFull)
	}

	m.txs = append(m.txs, tx)
	m.known[hash] = struct{}{}
	monitoring.IncreaseIngressTxCount()
	monitoring.SetMempoolSize(len(m.txs))
	return hash, nil
}

// Size returns the number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// Pending returns a snapshot of the queued transactions in order.
func (m *Mempool) Pending() []*transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*transaction.Transaction, len(m.txs))
	copy(out, m.txs)
	return out
}

// PullBatch removes and returns up to max transactions in arrival order.
func (m *Mempool) PullBatch(max int) []*transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) == 0 {
		return nil
	}
	if len(m.txs) < max {
		max = len(m.txs)
	}
	batch := make([]*transaction.Transaction, max)
	copy(batch, m.txs[:max])
	m.txs = m.txs[max:]
	for _, tx := range batch {
		delete(m.known, tx.Hash())
	}
	monitoring.SetMempoolSize(len(m.txs))
	return batch
}
