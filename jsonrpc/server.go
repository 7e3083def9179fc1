// Package jsonrpc exposes the node's ingress/egress boundary: batch
// submission toward the chain manager, chain reads back out. The core
// imposes no wire protocol; this server is the host-application layer.
package jsonrpc

import (
	"context"
	"net/http"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/holiman/uint256"

	"marketchain/block"
	"marketchain/chain"
	"marketchain/errors"
	"marketchain/logx"
	"marketchain/mempool"
	"marketchain/transaction"
)

// Server bridges JSON-RPC requests onto the chain and mempool.
type Server struct {
	addr    string
	chain   *chain.Chain
	mempool *mempool.Mempool

	httpServer *http.Server
}

func NewServer(addr string, c *chain.Chain, mp *mempool.Mempool) *Server {
	return &Server{
		addr:    addr,
		chain:   c,
		mempool: mp,
	}
}

// Start serves the RPC bridge in the background.
func (s *Server) Start() {
	methods := s.buildMethodMap()
	jh := jhttp.NewBridge(methods, &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	mux := http.NewServeMux()
	mux.Handle("/", jh)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		logx.Info("RPC", "JSON-RPC server listening on ", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("RPC", "server stopped: ", err)
		}
	}()
}

// Stop shuts the HTTP listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// --- Error type used by handlers ---

const (
	codeInvalidRequest = -32600
	codeInternal       = -32000
	codeNotFound       = -32001
)

func toJRPC2Error(code int, err error) error {
	if le, ok := err.(*errors.LedgerError); ok {
		return jrpc2.Errorf(jrpc2.Code(code), "%s", le.Message).WithData(le)
	}
	return jrpc2.Errorf(jrpc2.Code(code), "%s", err.Error())
}

// --- Params/Results ---

type txParams struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
	TextData  string `json:"text_data"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

type submitTxResponse struct {
	Ok     bool   `json:"ok"`
	TxHash string `json:"tx_hash"`
}

type pendingTxsResponse struct {
	TotalCount int        `json:"total_count"`
	PendingTxs []txParams `json:"pending_txs"`
}

type submitBatchParams struct {
	Transactions []txParams `json:"transactions"`
}

type blockSummary struct {
	Index      uint64 `json:"index"`
	Timestamp  int64  `json:"timestamp"`
	PrevHash   string `json:"prev_hash"`
	MerkleRoot string `json:"merkle_root"`
	Nonce      uint64 `json:"nonce"`
	Hash       string `json:"hash"`
	TxCount    int    `json:"tx_count"`
}

type getBlockRequest struct {
	Index uint64 `json:"index"`
}

type getBlockResponse struct {
	Block *block.Block `json:"block"`
}

type chainRangeRequest struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type chainRangeResponse struct {
	Blocks []blockSummary `json:"blocks"`
}

type validateResponse struct {
	Valid     bool             `json:"valid"`
	Height    uint64           `json:"height"`
	Violation *chain.Violation `json:"violation,omitempty"`
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		"tx.submit": handler.New(func(ctx context.Context, p txParams) (*submitTxResponse, error) {
			return s.rpcSubmitTx(p)
		}),
		"tx.pending": handler.New(func(ctx context.Context) (*pendingTxsResponse, error) {
			return s.rpcPendingTxs()
		}),
		"batch.submit": handler.New(func(ctx context.Context, p submitBatchParams) (*blockSummary, error) {
			return s.rpcSubmitBatch(ctx, p)
		}),
		"block.get": handler.New(func(ctx context.Context, p getBlockRequest) (*getBlockResponse, error) {
			return s.rpcGetBlock(p)
		}),
		"chain.head": handler.New(func(ctx context.Context) (*blockSummary, error) {
			return summarize(s.chain.Head()), nil
		}),
		"chain.range": handler.New(func(ctx context.Context, p chainRangeRequest) (*chainRangeResponse, error) {
			return s.rpcChainRange(p)
		}),
		"chain.validate": handler.New(func(ctx context.Context) (*validateResponse, error) {
			report := s.chain.ValidateChain()
			return &validateResponse{Valid: report.Valid, Height: report.Height, Violation: report.Violation}, nil
		}),
	}
}

// --- Implementations ---

func parseTx(p txParams) (*transaction.Transaction, error) {
	amount, err := uint256.FromDecimal(p.Amount)
	if err != nil {
		return nil, errors.NewLedgerError(errors.ErrCodeInvalidAmount, errors.ErrMsgInvalidAmount)
	}
	return &transaction.Transaction{
		Sender:    p.Sender,
		Recipient: p.Recipient,
		Amount:    amount,
		Timestamp: p.Timestamp,
		TextData:  p.TextData,
		Nonce:     p.Nonce,
		Signature: p.Signature,
	}, nil
}

func summarize(b *block.Block) *blockSummary {
	return &blockSummary{
		Index:      b.Header.Index,
		Timestamp:  b.Header.Timestamp,
		PrevHash:   b.Header.PrevHash,
		MerkleRoot: b.Header.MerkleRoot,
		Nonce:      b.Header.Nonce,
		Hash:       b.Header.Hash,
		TxCount:    len(b.Transactions),
	}
}

func (s *Server) rpcSubmitTx(p txParams) (*submitTxResponse, error) {
	tx, err := parseTx(p)
	if err != nil {
		return nil, toJRPC2Error(codeInvalidRequest, err)
	}
	hash, err := s.mempool.AddTx(tx)
	if err != nil {
		return nil, toJRPC2Error(codeInvalidRequest, err)
	}
	return &submitTxResponse{Ok: true, TxHash: hash}, nil
}

func (s *Server) rpcPendingTxs() (*pendingTxsResponse, error) {
	pending := s.mempool.Pending()
	out := make([]txParams, 0, len(pending))
	for _, tx := range pending {
		out = append(out, txParams{
			Sender:    tx.Sender,
			Recipient: tx.Recipient,
			Amount:    tx.Amount.Dec(),
			Timestamp: tx.Timestamp,
			TextData:  tx.TextData,
			Nonce:     tx.Nonce,
			Signature: tx.Signature,
		})
	}
	return &pendingTxsResponse{TotalCount: len(out), PendingTxs: out}, nil
}

// rpcSubmitBatch appends an ordered batch directly, bypassing the
// mempool, and returns the confirmed block or a rejection.
func (s *Server) rpcSubmitBatch(ctx context.Context, p submitBatchParams) (*blockSummary, error) {
	txs := make([]*transaction.Transaction, 0, len(p.Transactions))
	for _, tp := range p.Transactions {
		tx, err := parseTx(tp)
		if err != nil {
			return nil, toJRPC2Error(codeInvalidRequest, err)
		}
		if err := tx.Validate(); err != nil {
			return nil, toJRPC2Error(codeInvalidRequest, errors.NewLedgerError(errors.ErrCodeInvalidTransaction, err.Error()))
		}
		txs = append(txs, tx)
	}

	b, err := s.chain.Append(ctx, txs)
	if err != nil {
		return nil, toJRPC2Error(codeInternal, errors.NewLedgerError(errors.ErrCodeMiningAborted, err.Error()))
	}
	return summarize(b), nil
}

func (s *Server) rpcGetBlock(p getBlockRequest) (*getBlockResponse, error) {
	b, err := s.chain.BlockAt(p.Index)
	if err != nil {
		return nil, toJRPC2Error(codeNotFound, errors.NewLedgerError(errors.ErrCodeBlockNotFound, errors.ErrMsgBlockNotFound))
	}
	return &getBlockResponse{Block: b}, nil
}

func (s *Server) rpcChainRange(p chainRangeRequest) (*chainRangeResponse, error) {
	blocks, err := s.chain.Range(p.From, p.To)
	if err != nil {
		return nil, toJRPC2Error(codeInvalidRequest, err)
	}
	out := make([]blockSummary, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, *summarize(b))
	}
	return &chainRangeResponse{Blocks: out}, nil
}
