// Package arbitrumtest builds bridge logs and receipts for tests.
package arbitrumtest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/eventlog"
)

// Retryable describes one retryable submission as the inbox emits it.
type Retryable struct {
	Sender                 common.Address
	BaseFeeL1              *big.Int
	To                     common.Address
	L2CallValue            *big.Int
	L1CallValue            *big.Int
	MaxSubmissionCost      *big.Int
	ExcessFeeRefundAddress common.Address
	CallValueRefundAddress common.Address
	GasLimit               *big.Int
	MaxFeePerGas           *big.Int
	Data                   []byte
}

func arguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}

func mustPack(args abi.Arguments, values ...interface{}) []byte {
	data, err := args.Pack(values...)
	if err != nil {
		panic(err)
	}
	return data
}

func word(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

// MessageDeliveredLog builds the bridge's MessageDelivered log.
func MessageDeliveredLog(r Retryable) *types.Log {
	data := mustPack(arguments("address", "uint8", "address", "bytes32", "uint256", "uint64"),
		common.HexToAddress("0x4Dbd4fc535Ac27206064B68FfCf827b0A60BAB3f"),
		uint8(9),
		r.Sender,
		[32]byte{0x01},
		r.BaseFeeL1,
		uint64(1700000000),
	)
	return &types.Log{
		Topics: []common.Hash{
			eventlog.Topic(arbitrum.MessageDeliveredSignature),
			common.BigToHash(big.NewInt(1)),
			{},
		},
		Data: data,
	}
}

// InboxMessageDeliveredLog builds the inbox's InboxMessageDelivered log.
func InboxMessageDeliveredLog(r Retryable) *types.Log {
	var payload []byte
	payload = append(payload, common.LeftPadBytes(r.To.Bytes(), 32)...)
	payload = append(payload, word(r.L2CallValue)...)
	payload = append(payload, word(r.L1CallValue)...)
	payload = append(payload, word(r.MaxSubmissionCost)...)
	payload = append(payload, common.LeftPadBytes(r.ExcessFeeRefundAddress.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(r.CallValueRefundAddress.Bytes(), 32)...)
	payload = append(payload, word(r.GasLimit)...)
	payload = append(payload, word(r.MaxFeePerGas)...)
	payload = append(payload, word(big.NewInt(int64(len(r.Data))))...)
	payload = append(payload, r.Data...)

	return &types.Log{
		Topics: []common.Hash{
			eventlog.Topic(arbitrum.InboxMessageDeliveredSignature),
			common.BigToHash(big.NewInt(1)),
		},
		Data: mustPack(arguments("bytes"), payload),
	}
}

// TxToL2Log builds the gateway's TxToL2 log carrying data.
func TxToL2Log(data []byte) *types.Log {
	return &types.Log{
		Topics: []common.Hash{
			eventlog.Topic(arbitrum.TxToL2Signature),
			{},
			{},
			common.BigToHash(big.NewInt(1)),
		},
		Data: mustPack(arguments("bytes"), data),
	}
}

// OutBoxTransactionExecutedLog builds the outbox's execution log.
func OutBoxTransactionExecutedLog(transactionIndex *big.Int) *types.Log {
	return &types.Log{
		Topics: []common.Hash{
			eventlog.Topic(arbitrum.OutBoxTransactionExecutedSignature),
			{},
			{},
			{},
		},
		Data: mustPack(arguments("uint256"), transactionIndex),
	}
}

// TransferRoutedLog builds the router's TransferRouted log.
func TransferRoutedLog(gateway common.Address) *types.Log {
	return &types.Log{
		Topics: []common.Hash{eventlog.Topic(arbitrum.TransferRoutedSignature), {}, {}, {}},
		Data:   common.LeftPadBytes(gateway.Bytes(), 32),
	}
}

// DepositInitiatedLog builds a gateway DepositInitiated log.
func DepositInitiatedLog(gateway, l1Token, from, to common.Address, sequenceNumber, amount *big.Int) *types.Log {
	parsed, err := arbitrum.GatewayABI()
	if err != nil {
		panic(err)
	}
	event := parsed.Events[arbitrum.EventDepositInitiated]
	return &types.Log{
		Address: gateway,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(sequenceNumber),
		},
		Data: mustPack(event.Inputs.NonIndexed(), l1Token, amount),
	}
}

// WithdrawalFinalizedLog builds a gateway WithdrawalFinalized log.
func WithdrawalFinalizedLog(gateway, l1Token, from, to common.Address, exitNum, amount *big.Int) *types.Log {
	parsed, err := arbitrum.GatewayABI()
	if err != nil {
		panic(err)
	}
	event := parsed.Events[arbitrum.EventWithdrawalFinalized]
	return &types.Log{
		Address: gateway,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(exitNum),
		},
		Data: mustPack(event.Inputs.NonIndexed(), l1Token, amount),
	}
}

// DepositReceipt returns a receipt with one of each retryable event.
func DepositReceipt(r Retryable, extra ...*types.Log) *types.Receipt {
	logs := []*types.Log{
		MessageDeliveredLog(r),
		InboxMessageDeliveredLog(r),
		TxToL2Log(r.Data),
	}
	logs = append(logs, extra...)
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, Logs: logs}
}

// ExecuteTransactionCalldata packs a full outbox executeTransaction call.
func ExecuteTransactionCalldata(transactionIndex *big.Int) []byte {
	outbox, err := arbitrum.OutboxABI()
	if err != nil {
		panic(err)
	}
	data, err := outbox.Pack("executeTransaction",
		[][32]byte{{0x01}, {0x02}},
		transactionIndex,
		common.HexToAddress("0x5555555555555555555555555555555555555555"),
		common.HexToAddress("0x6666666666666666666666666666666666666666"),
		big.NewInt(100),
		big.NewInt(200),
		big.NewInt(1700000000),
		big.NewInt(0),
		[]byte{0xde, 0xad, 0xbe, 0xef},
	)
	if err != nil {
		panic(err)
	}
	return data
}
