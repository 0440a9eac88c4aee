package port

import (
	"context"

	"web3-gateway/internal/domain/entity"
)

// QueryService defines the read operations the HTTP layer exposes. Every operation is
// read-only and returns either one complete result or an error.
type QueryService interface {
	// Health checks the default chain's head and reports RPC latency and block time skew.
	Health(ctx context.Context) (*entity.HealthResult, error)

	// AddressBalance returns the native balance of address together with the head block number.
	AddressBalance(ctx context.Context, chain entity.ChainKey, address entity.Address) (*entity.BalanceResult, error)

	// TokenBalance returns holder's ERC-20 balance on contract, scaled by the token decimals.
	TokenBalance(ctx context.Context, chain entity.ChainKey, contract, holder entity.Address) (*entity.TokenBalanceResult, error)

	// TransactionStatus classifies hash against a confirmation threshold. A hash unknown to
	// the node yields the not-found variant, not an error.
	TransactionStatus(ctx context.Context, chain entity.ChainKey, hash entity.TxHash, threshold uint64) (*entity.TxStatusResult, error)
}
