package application

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// FormatEther renders a wei amount in ether with exact base-10 scaling.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, etherDecimals)
}

// FormatUnits renders amount / 10^decimals without trailing zeros. Zero is always "0".
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}
