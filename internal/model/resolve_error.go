package model

// ResolveError records a gateway log whose derived identifier could not be
// computed.
type ResolveError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Gateway     string `json:"gateway"`
	Event       string `json:"event"`
	Field       string `json:"field"`
	Error       string `json:"error"`
}

// Field names reported in ResolveError.
const (
	FieldRetryableTicketID = "retryable_ticket_id"
	FieldTransactionIndex  = "transaction_index"
	FieldEvent             = "event"
)
