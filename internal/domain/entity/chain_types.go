package entity

import (
	"fmt"
	"strings"

	"web3-gateway/internal/pkg/apperrors"
)

// ChainKey identifies which network a request targets.
type ChainKey string

// Supported chain keys.
const (
	ChainBase        ChainKey = "base"
	ChainBaseSepolia ChainKey = "baseSepolia"
)

// DefaultChainKey is used when a request does not name a chain.
const DefaultChainKey = ChainBase

// NetworkType defines the type for network classifications (e.g., mainnet, testnet).
type NetworkType string

// Constants for known network types.
const (
	NetworkMainnet NetworkType = "mainnet"
	NetworkTestnet NetworkType = "testnet"
)

// Chain describes a supported EVM network.
type Chain struct {
	Key     ChainKey
	ChainID int64
	Name    string
	Network NetworkType
	// ProviderSlug is the network segment of the hosted RPC endpoint host name.
	ProviderSlug string
}

var supportedChains = []Chain{
	{
		Key:          ChainBase,
		ChainID:      8453,
		Name:         "Base",
		Network:      NetworkMainnet,
		ProviderSlug: "base",
	},
	{
		Key:          ChainBaseSepolia,
		ChainID:      84532,
		Name:         "Base Sepolia",
		Network:      NetworkTestnet,
		ProviderSlug: "base-sepolia",
	},
}

// SupportedChains returns every chain the gateway can serve, in a stable order.
func SupportedChains() []Chain {
	out := make([]Chain, len(supportedChains))
	copy(out, supportedChains)
	return out
}

// SupportedChainKeys returns the keys of SupportedChains.
func SupportedChainKeys() []ChainKey {
	keys := make([]ChainKey, 0, len(supportedChains))
	for _, c := range supportedChains {
		keys = append(keys, c.Key)
	}
	return keys
}

// LookupChain returns the chain registered under key.
func LookupChain(key ChainKey) (Chain, bool) {
	for _, c := range supportedChains {
		if c.Key == key {
			return c, true
		}
	}
	return Chain{}, false
}

// ParseChainKey validates a raw chain identifier. Matching is exact.
func ParseChainKey(raw string) (ChainKey, error) {
	key := ChainKey(raw)
	if _, ok := LookupChain(key); ok {
		return key, nil
	}
	names := make([]string, 0, len(supportedChains))
	for _, c := range supportedChains {
		names = append(names, string(c.Key))
	}
	return "", fmt.Errorf("%w: chain must be one of: %s", apperrors.ErrInvalidInput, strings.Join(names, ", "))
}

// String returns the string representation of the ChainKey.
func (k ChainKey) String() string {
	return string(k)
}
