package model

// NetworkTotal sums bridged amounts for one token on one gateway.
// Amounts are decimal strings scaled by the token's decimals.
type NetworkTotal struct {
	ChainID                 uint64
	Gateway                 string
	L1Token                 string
	Symbol                  string
	Decimals                uint8
	TotalDeposited          string
	TotalWithdrawnConfirmed string
	DepositCount            uint64
	WithdrawalCount         uint64
	LastBlock               uint64
	// EscrowBalance is the gateway's token balance at LastBlock, if known.
	EscrowBalance *string
	EscrowMethod  string
}

// TokenMeta is the ERC20 metadata used to format totals.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}
