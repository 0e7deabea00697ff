package arbitrum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"bridgeScope/internal/eventlog"
)

// ErrDecode means a log payload did not match its expected tuple layout.
var ErrDecode = fmt.Errorf("%w: decode failure", eventlog.ErrNotFound)

// Canonical signatures of the bridge events read from deposit and
// withdrawal receipts.
const (
	MessageDeliveredSignature          = "MessageDelivered(uint256,bytes32,address,uint8,address,bytes32,uint256,uint64)"
	InboxMessageDeliveredSignature     = "InboxMessageDelivered(uint256,bytes)"
	TxToL2Signature                    = "TxToL2(address,address,uint256,bytes)"
	OutBoxTransactionExecutedSignature = "OutBoxTransactionExecuted(address,address,uint256,uint256)"
	TransferRoutedSignature            = "TransferRouted(address,address,address,address)"
)

// Non-indexed data layouts. Field positions follow the emitting contracts.
var (
	// inbox, kind, sender, messageDataHash, baseFeeL1, timestamp
	messageDeliveredSchema = mustArguments("address", "uint8", "address", "bytes32", "uint256", "uint64")
	// offset, length, then the retryable message words up to dataLength
	inboxMessageDeliveredSchema = mustArguments(
		"uint256", "uint256", "uint256", "uint256", "uint256", "uint256",
		"uint256", "uint256", "uint256", "uint256", "uint256",
	)
	// offset, length; the payload follows at byte 64
	txToL2Schema = mustArguments("uint256", "uint256")
	// transactionIndex
	outBoxTransactionExecutedSchema = mustArguments("uint256")
)

const txToL2PayloadOffset = 64

// MessageDeliveredData holds the MessageDelivered fields used for ticket IDs.
type MessageDeliveredData struct {
	Sender    common.Address
	BaseFeeL1 *big.Int
}

// InboxMessageDeliveredData holds the retryable submission parameters.
type InboxMessageDeliveredData struct {
	To                     common.Address
	L2CallValue            *big.Int
	L1CallValue            *big.Int
	MaxSubmissionCost      *big.Int
	ExcessFeeRefundAddress common.Address
	CallValueRefundAddress common.Address
	GasLimit               *big.Int
	MaxFeePerGas           *big.Int
	DataLength             *big.Int
}

// OutBoxTransactionExecutedData holds the executed withdrawal's index.
type OutBoxTransactionExecutedData struct {
	TransactionIndex *big.Int
}

func unpackSchema(name string, schema abi.Arguments, data []byte) ([]interface{}, error) {
	values, err := schema.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", ErrDecode, name, err)
	}
	if len(values) != len(schema) {
		return nil, fmt.Errorf("%w: unexpected %s values: %d", ErrDecode, name, len(values))
	}
	return values, nil
}

// ParseMessageDelivered decodes the data of a MessageDelivered log.
func ParseMessageDelivered(data []byte) (MessageDeliveredData, error) {
	values, err := unpackSchema("MessageDelivered", messageDeliveredSchema, data)
	if err != nil {
		return MessageDeliveredData{}, err
	}

	sender, err := asAddress(values[2])
	if err != nil {
		return MessageDeliveredData{}, fmt.Errorf("%w: sender: %v", ErrDecode, err)
	}
	baseFee, err := asBigInt(values[4])
	if err != nil {
		return MessageDeliveredData{}, fmt.Errorf("%w: base fee: %v", ErrDecode, err)
	}

	return MessageDeliveredData{Sender: sender, BaseFeeL1: baseFee}, nil
}

// ParseInboxMessageDelivered decodes the data of an InboxMessageDelivered log
// carrying a retryable submission.
func ParseInboxMessageDelivered(data []byte) (InboxMessageDeliveredData, error) {
	values, err := unpackSchema("InboxMessageDelivered", inboxMessageDeliveredSchema, data)
	if err != nil {
		return InboxMessageDeliveredData{}, err
	}

	ints := make([]*big.Int, len(values))
	for i, value := range values {
		ints[i], err = asBigInt(value)
		if err != nil {
			return InboxMessageDeliveredData{}, fmt.Errorf("%w: field %d: %v", ErrDecode, i, err)
		}
	}

	return InboxMessageDeliveredData{
		To:                     common.BytesToAddress(ints[2].Bytes()),
		L2CallValue:            ints[3],
		L1CallValue:            ints[4],
		MaxSubmissionCost:      ints[5],
		ExcessFeeRefundAddress: common.BytesToAddress(ints[6].Bytes()),
		CallValueRefundAddress: common.BytesToAddress(ints[7].Bytes()),
		GasLimit:               ints[8],
		MaxFeePerGas:           ints[9],
		DataLength:             ints[10],
	}, nil
}

// ParseTxToL2 extracts the L2 calldata carried by a TxToL2 log.
func ParseTxToL2(data []byte) ([]byte, error) {
	values, err := unpackSchema("TxToL2", txToL2Schema, data)
	if err != nil {
		return nil, err
	}

	length, err := asBigInt(values[1])
	if err != nil {
		return nil, fmt.Errorf("%w: length: %v", ErrDecode, err)
	}
	available := uint64(len(data) - txToL2PayloadOffset)
	if !length.IsUint64() || length.Uint64() > available {
		return nil, fmt.Errorf("%w: TxToL2 length %s exceeds payload of %d bytes", ErrDecode, length, available)
	}

	end := txToL2PayloadOffset + int(length.Uint64())
	out := make([]byte, end-txToL2PayloadOffset)
	copy(out, data[txToL2PayloadOffset:end])
	return out, nil
}

// ParseOutBoxTransactionExecuted decodes the data of an
// OutBoxTransactionExecuted log.
func ParseOutBoxTransactionExecuted(data []byte) (OutBoxTransactionExecutedData, error) {
	values, err := unpackSchema("OutBoxTransactionExecuted", outBoxTransactionExecutedSchema, data)
	if err != nil {
		return OutBoxTransactionExecutedData{}, err
	}
	index, err := asBigInt(values[0])
	if err != nil {
		return OutBoxTransactionExecutedData{}, fmt.Errorf("%w: transaction index: %v", ErrDecode, err)
	}
	return OutBoxTransactionExecutedData{TransactionIndex: index}, nil
}

// GetMessageDelivered finds and decodes the receipt's MessageDelivered log.
func GetMessageDelivered(receipt *types.Receipt, logger *zap.Logger) (MessageDeliveredData, error) {
	data, err := eventlog.FindUniqueLogData(receipt, MessageDeliveredSignature, logger)
	if err != nil {
		return MessageDeliveredData{}, err
	}
	decoded, err := ParseMessageDelivered(data)
	if err != nil {
		logDecodeFailure(logger, MessageDeliveredSignature, data, err)
	}
	return decoded, err
}

// GetInboxMessageDelivered finds and decodes the receipt's
// InboxMessageDelivered log.
func GetInboxMessageDelivered(receipt *types.Receipt, logger *zap.Logger) (InboxMessageDeliveredData, error) {
	data, err := eventlog.FindUniqueLogData(receipt, InboxMessageDeliveredSignature, logger)
	if err != nil {
		return InboxMessageDeliveredData{}, err
	}
	decoded, err := ParseInboxMessageDelivered(data)
	if err != nil {
		logDecodeFailure(logger, InboxMessageDeliveredSignature, data, err)
	}
	return decoded, err
}

// GetTxToL2 finds the receipt's TxToL2 log and returns its L2 calldata.
func GetTxToL2(receipt *types.Receipt, logger *zap.Logger) ([]byte, error) {
	data, err := eventlog.FindUniqueLogData(receipt, TxToL2Signature, logger)
	if err != nil {
		return nil, err
	}
	decoded, err := ParseTxToL2(data)
	if err != nil {
		logDecodeFailure(logger, TxToL2Signature, data, err)
	}
	return decoded, err
}

// GetOutBoxTransactionExecuted finds and decodes the receipt's
// OutBoxTransactionExecuted log.
func GetOutBoxTransactionExecuted(receipt *types.Receipt, logger *zap.Logger) (OutBoxTransactionExecutedData, error) {
	data, err := eventlog.FindUniqueLogData(receipt, OutBoxTransactionExecutedSignature, logger)
	if err != nil {
		return OutBoxTransactionExecutedData{}, err
	}
	decoded, err := ParseOutBoxTransactionExecuted(data)
	if err != nil {
		logDecodeFailure(logger, OutBoxTransactionExecutedSignature, data, err)
	}
	return decoded, err
}

// IsRouted reports whether the deposit went through the gateway router,
// i.e. the receipt holds exactly one TransferRouted log.
func IsRouted(receipt *types.Receipt) bool {
	return eventlog.CountMatches(receipt, eventlog.Topic(TransferRoutedSignature)) == 1
}

func logDecodeFailure(logger *zap.Logger, signature string, data []byte, err error) {
	if logger == nil {
		return
	}
	logger.Warn("could not decode event data",
		zap.String("event", eventlog.EventName(signature)),
		zap.String("data", hexutil.Encode(data)),
		zap.Error(err),
	)
}
