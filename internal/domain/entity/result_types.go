package entity

import "encoding/json"

// Finality classifies how deep a transaction sits below the chain head.
type Finality string

// Finality values.
const (
	FinalityPending Finality = "pending"
	FinalitySafe    Finality = "safe"
)

// HealthStatusOK is the only status a successful health check reports.
const HealthStatusOK = "ok"

// HealthResult is the chain liveness check response.
type HealthResult struct {
	Status          string   `json:"status"`
	Chain           ChainKey `json:"chain"`
	ChainID         int64    `json:"chainId"`
	Block           string   `json:"block"`
	RPCLatencyMs    int64    `json:"rpcLatencyMs"`
	BlockTimeSkewMs int64    `json:"blockTimeSkewMs"`
}

// BalanceResult is the native balance of an address at a given head.
// All amounts are base-10 strings.
type BalanceResult struct {
	Address     string `json:"address"`
	Wei         string `json:"wei"`
	Ether       string `json:"ether"`
	BlockNumber string `json:"blockNumber"`
}

// TokenBalanceResult is an ERC-20 balance. Raw and Formatted are base-10 strings.
type TokenBalanceResult struct {
	Contract  string `json:"contract"`
	Holder    string `json:"holder"`
	Decimals  int    `json:"decimals"`
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

// TxStatusRecord is the body of a found transaction status. Nullable fields stay nil
// when neither the transaction nor the receipt carried them.
type TxStatusRecord struct {
	Hash          string   `json:"hash"`
	BlockNumber   *string  `json:"blockNumber"`
	Status        TxStatus `json:"status"`
	From          *string  `json:"from"`
	To            *string  `json:"to"`
	Value         *string  `json:"value"`
	Confirmations uint64   `json:"confirmations"`
	Finality      Finality `json:"finality"`
}

// TxStatusResult is either a found record or a bare not-found marker.
type TxStatusResult struct {
	Found  bool
	Record *TxStatusRecord
}

// TxNotFound returns the not-found variant.
func TxNotFound() *TxStatusResult {
	return &TxStatusResult{}
}

// TxFound returns the found variant wrapping record.
func TxFound(record TxStatusRecord) *TxStatusResult {
	return &TxStatusResult{Found: true, Record: &record}
}

// MarshalJSON renders {"found":false} or the record with "found":true.
func (r TxStatusResult) MarshalJSON() ([]byte, error) {
	if !r.Found || r.Record == nil {
		return json.Marshal(struct {
			Found bool `json:"found"`
		}{Found: false})
	}
	return json.Marshal(struct {
		Found bool `json:"found"`
		TxStatusRecord
	}{Found: true, TxStatusRecord: *r.Record})
}
