package aggregate

import (
	"fmt"
	"math/big"
	"strings"

	"bridgeScope/internal/model"
)

// Accumulator holds the bridged amounts of one token on one gateway since
// the last flush.
type Accumulator struct {
	ChainID         uint64
	Gateway         string
	L1Token         string
	Deposited       *big.Int
	Withdrawn       *big.Int
	DepositCount    uint64
	WithdrawalCount uint64
	FirstBlock      uint64
	LastBlock       uint64
}

func NewAccumulator(record model.BridgeTransaction) *Accumulator {
	return &Accumulator{
		ChainID:    record.ChainID,
		Gateway:    record.Gateway,
		L1Token:    record.L1Token,
		Deposited:  big.NewInt(0),
		Withdrawn:  big.NewInt(0),
		FirstBlock: record.BlockNumber,
		LastBlock:  record.BlockNumber,
	}
}

// AddRecord folds one deposit or finalized withdrawal into the totals.
func (a *Accumulator) AddRecord(record model.BridgeTransaction) error {
	amount, err := parseAmount(record.Amount)
	if err != nil {
		return fmt.Errorf("record %s: %w", record.ID, err)
	}

	switch record.Type {
	case model.TypeDeposit:
		a.Deposited.Add(a.Deposited, amount)
		a.DepositCount++
	case model.TypeWithdrawal:
		a.Withdrawn.Add(a.Withdrawn, amount)
		a.WithdrawalCount++
	default:
		return fmt.Errorf("record %s: unsupported type %q", record.ID, record.Type)
	}

	if record.BlockNumber > a.LastBlock {
		a.LastBlock = record.BlockNumber
	}
	if record.BlockNumber < a.FirstBlock {
		a.FirstBlock = record.BlockNumber
	}
	return nil
}

func totalsKey(chainID uint64, gateway, l1Token string) string {
	return fmt.Sprintf("%d:%s:%s", chainID, strings.ToLower(gateway), strings.ToLower(l1Token))
}
