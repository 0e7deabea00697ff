package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bridge transaction types.
const (
	TypeDeposit    = "BridgeDeposit"
	TypeWithdrawal = "BridgeWithdrawal"
)

// BridgeTransaction is one gateway deposit or withdrawal observed on L1.
// Derived identifiers that could not be resolved are nil.
type BridgeTransaction struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ChainID     uint64 `json:"chain_id"`
	L2ChainID   uint64 `json:"l2_chain_id"`
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
	Timestamp   uint64 `json:"timestamp"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Gateway     string `json:"gateway"`
	Signer      string `json:"signer"`
	From        string `json:"from"`
	To          string `json:"to"`
	L1Token     string `json:"l1_token"`
	Amount      string `json:"amount"`

	SequenceNumber    *string `json:"sequence_number,omitempty"`
	RetryableTicketID *string `json:"retryable_ticket_id"`
	Routed            bool    `json:"routed"`

	ExitNum          *string `json:"exit_num,omitempty"`
	TransactionIndex *string `json:"transaction_index"`

	IngestedAt string `json:"ingested_at"`
}

// BridgeTransactionID builds the record ID from the emitting log.
func BridgeTransactionID(txHash string, logIndex uint64) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(txHash), logIndex)
}

// IsDeposit reports whether the record is an L1 to L2 deposit.
func (b BridgeTransaction) IsDeposit() bool {
	return b.Type == TypeDeposit
}

// Resolved reports whether the record's derived identifier is present.
func (b BridgeTransaction) Resolved() bool {
	if b.IsDeposit() {
		return b.RetryableTicketID != nil
	}
	return b.TransactionIndex != nil
}

// MarshalJSON drops the field of the other direction so deposits never
// carry a transaction_index key and withdrawals never a ticket ID.
func (b BridgeTransaction) MarshalJSON() ([]byte, error) {
	type Alias BridgeTransaction
	if b.IsDeposit() {
		return json.Marshal(struct {
			Alias
			TransactionIndex *string `json:"transaction_index,omitempty"`
		}{Alias: Alias(b)})
	}
	return json.Marshal(struct {
		Alias
		RetryableTicketID *string `json:"retryable_ticket_id,omitempty"`
		Routed            *bool   `json:"routed,omitempty"`
	}{Alias: Alias(b)})
}
