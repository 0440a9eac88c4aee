package entity

import (
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"

	"web3-gateway/internal/pkg/apperrors"
)

// Accepted textual forms. Hex digits may be any case; no checksum is enforced.
const (
	AddressPattern = `^0x[a-fA-F0-9]{40}$`
	TxHashPattern  = `^0x[a-fA-F0-9]{64}$`
)

var (
	addressPattern = regexp.MustCompile(AddressPattern)
	txHashPattern  = regexp.MustCompile(TxHashPattern)
)

// Address represents a 0x-prefixed, 20-byte hex account or contract address as supplied by the caller.
type Address string

// NewAddress creates a new Address instance. The input is not trimmed or re-cased.
func NewAddress(raw string) (Address, error) {
	if !addressPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: address '%s' must match pattern %s", apperrors.ErrInvalidInput, raw, AddressPattern)
	}
	return Address(raw), nil
}

// String returns the string representation of the Address.
func (a Address) String() string {
	return string(a)
}

// Common converts the address to its go-ethereum form.
func (a Address) Common() common.Address {
	return common.HexToAddress(string(a))
}

// TxHash represents a 0x-prefixed, 32-byte hex transaction hash.
type TxHash string

// NewTxHash creates a new TxHash instance.
func NewTxHash(raw string) (TxHash, error) {
	if !txHashPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: hash '%s' must match pattern %s", apperrors.ErrInvalidInput, raw, TxHashPattern)
	}
	return TxHash(raw), nil
}

// String returns the string representation of the TxHash.
func (h TxHash) String() string {
	return string(h)
}
