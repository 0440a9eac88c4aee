package domain

import "errors"

var (
	// ErrTransactionNotFound means the node has no transaction with the requested hash.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrReceiptNotFound means the node has no receipt for the requested hash (not mined, or unknown).
	ErrReceiptNotFound = errors.New("transaction receipt not found")

	// ErrUnsupportedChain means the requested chain key has no configured client.
	ErrUnsupportedChain = errors.New("unsupported chain")
)
