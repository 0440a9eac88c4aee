package rpc

import (
	"fmt"

	"go.uber.org/zap"

	"web3-gateway/internal/config"
	"web3-gateway/internal/domain"
	"web3-gateway/internal/domain/entity"
	domainService "web3-gateway/internal/domain/service"
)

// Compile-time check
var _ domainService.ChainClientFactory = (*ClientFactory)(nil)

// hostedURLFormat is the hosted provider endpoint: network slug, then API key.
const hostedURLFormat = "https://%s.g.alchemy.com/v2/%s"

// ClientFactory holds one client per supported chain. The set is fixed at construction.
type ClientFactory struct {
	clients map[entity.ChainKey]domainService.ChainClient
}

// NewClientFactory builds a client for every supported chain, using the configured
// override URL when present and the hosted endpoint otherwise.
func NewClientFactory(cfg config.Config, logger *zap.Logger) (*ClientFactory, error) {
	clients := make(map[entity.ChainKey]domainService.ChainClient, len(entity.SupportedChains()))
	for _, chain := range entity.SupportedChains() {
		rpcURL, overridden := cfg.Chain.GetRPCURL(chain.Key)
		if !overridden {
			rpcURL = HostedURL(chain, cfg.Chain.ProviderKey)
		}
		client, err := NewClient(chain.Key, rpcURL, cfg.Upstream.GetReadTimeout(), logger)
		if err != nil {
			return nil, fmt.Errorf("rpc client for %s: %w", chain.Key, err)
		}
		logger.Info("RPC client configured",
			zap.String("chain", chain.Key.String()),
			zap.String("name", chain.Name),
			zap.String("network", string(chain.Network)),
			zap.Int64("chainId", chain.ChainID),
			zap.Bool("override", overridden),
		)
		clients[chain.Key] = client
	}
	return &ClientFactory{clients: clients}, nil
}

// Client returns the client bound to chain.
func (f *ClientFactory) Client(chain entity.ChainKey) (domainService.ChainClient, error) {
	client, ok := f.clients[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	return client, nil
}

// HostedURL returns the hosted provider endpoint for chain.
func HostedURL(chain entity.Chain, providerKey string) string {
	return fmt.Sprintf(hostedURLFormat, chain.ProviderSlug, providerKey)
}
