package errors

import (
	"marketchain/jsonx"
)

// LedgerErrorCode represents standardized error codes surfaced at the RPC boundary
type LedgerErrorCode string

const (
	// General errors
	ErrCodeInternal LedgerErrorCode = "internal_error"

	// Validation errors
	ErrCodeInvalidRequest     LedgerErrorCode = "invalid_request"
	ErrCodeInvalidTransaction LedgerErrorCode = "invalid_transaction"
	ErrCodeInvalidSignature   LedgerErrorCode = "invalid_signature"
	ErrCodeInvalidAddress     LedgerErrorCode = "invalid_address"
	ErrCodeInvalidAmount      LedgerErrorCode = "invalid_amount"

	// Business logic errors
	ErrCodeBlockNotFound        LedgerErrorCode = "block_not_found"
	ErrCodeDuplicateTransaction LedgerErrorCode = "duplicate_transaction"
	ErrCodeChainInvalid         LedgerErrorCode = "chain_invalid"

	// System errors
	ErrCodeMempoolFull   LedgerErrorCode = "mempool_full"
	ErrCodeMiningAborted LedgerErrorCode = "mining_aborted"
)

// LedgerError represents a standardized error returned to RPC callers
type LedgerError struct {
	Code    LedgerErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	err, _ := jsonx.Marshal(LedgerError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInvalidRequest       = "Request format is invalid"
	ErrMsgInvalidTransaction   = "Transaction data is invalid"
	ErrMsgInvalidSignature     = "Transaction signature is invalid"
	ErrMsgInvalidAddress       = "Address is invalid"
	ErrMsgInvalidAmount        = "Amount is invalid or zero"
	ErrMsgBlockNotFound        = "Block not found"
	ErrMsgDuplicateTransaction = "Transaction already pending"
	ErrMsgMempoolFull          = "Mempool is full, try again later"
	ErrMsgMiningAborted        = "Block production was cancelled"
	ErrMsgInternal             = "Internal node error"
)

// NewLedgerError creates a LedgerError with the given code and message
func NewLedgerError(code LedgerErrorCode, message string) *LedgerError {
	return &LedgerError{Code: code, Message: message}
}
