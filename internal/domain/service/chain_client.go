package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"web3-gateway/internal/domain/entity"
)

// ChainClient defines the read capability of a chain RPC provider. Calls are independent
// and safe for concurrent use.
type ChainClient interface {
	// BlockNumber returns the current head block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// BlockByTag returns the header fields of the block named by tag.
	BlockByTag(ctx context.Context, tag entity.BlockTag) (*entity.Block, error)

	// Balance returns the native balance of address at the latest block, in wei.
	Balance(ctx context.Context, address entity.Address) (*big.Int, error)

	// ReadContract calls a view method of contract at the latest block and returns the
	// decoded outputs.
	ReadContract(ctx context.Context, contract entity.Address, contractABI abi.ABI, method string, args ...any) ([]any, error)

	// TransactionByHash returns domain.ErrTransactionNotFound when the node does not know the hash.
	TransactionByHash(ctx context.Context, hash entity.TxHash) (*entity.Transaction, error)

	// TransactionReceipt returns domain.ErrReceiptNotFound when no receipt exists yet.
	TransactionReceipt(ctx context.Context, hash entity.TxHash) (*entity.Receipt, error)
}

// ChainClientFactory hands out the client bound to a chain.
type ChainClientFactory interface {
	// Client returns domain.ErrUnsupportedChain for keys without a configured client.
	Client(chain entity.ChainKey) (ChainClient, error)
}
