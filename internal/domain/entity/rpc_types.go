package entity

import "math/big"

// BlockTag names a block relative to the chain head.
type BlockTag string

// Known block tags.
const (
	BlockTagLatest BlockTag = "latest"
)

// Block is the subset of a block header the gateway needs.
type Block struct {
	Timestamp uint64 // seconds since epoch
}

// Transaction is a transaction as returned by the node. BlockNumber is nil while pending.
type Transaction struct {
	BlockNumber *uint64
	From        string
	To          *string
	Value       *big.Int
}

// TxStatus is the execution outcome of a transaction.
type TxStatus string

// Transaction statuses.
const (
	TxStatusPending  TxStatus = "pending"
	TxStatusSuccess  TxStatus = "success"
	TxStatusReverted TxStatus = "reverted"
)

// Receipt is a mined transaction receipt. Status is empty when the node did not report one.
type Receipt struct {
	BlockNumber uint64
	Status      TxStatus
}
