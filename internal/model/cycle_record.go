package model

// CycleRecord is the flat representation of one decision cycle for the journal.
type CycleRecord struct {
	StartedAt    string `json:"started_at"`
	DurationMs   int64  `json:"duration_ms"`
	Pool         string `json:"pool"`
	BaseToken    string `json:"base_token"`
	QuoteToken   string `json:"quote_token"`
	Price        string `json:"price,omitempty"`
	BaseBalance  string `json:"base_balance,omitempty"`
	QuoteBalance string `json:"quote_balance,omitempty"`
	Action       string `json:"action"`
	Amount       int64  `json:"amount,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Mode         string `json:"mode"`
	DryRun       bool   `json:"dry_run,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	BlockNumber  uint64 `json:"block_number,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Error        string `json:"error,omitempty"`
}
