package bridge

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/byteutil"
	"bridgeScope/internal/rlp"
)

// SubmitRetryableTxType is the Arbitrum transaction type byte prefixed to the
// RLP payload before hashing.
const SubmitRetryableTxType = 0x69

var l2ChainIDs = map[uint64]int64{
	1:        42161,  // mainnet -> Arbitrum One
	5:        421613, // goerli -> Arbitrum Goerli
	11155111: 421614, // sepolia -> Arbitrum Sepolia
}

// L2ChainIDForL1 returns the Arbitrum chain ID settling to the given L1.
func L2ChainIDForL1(l1ChainID *big.Int) (*big.Int, error) {
	if l1ChainID == nil || !l1ChainID.IsUint64() {
		return nil, fmt.Errorf("%w: l1 chain id %v", ErrUnsupportedChain, l1ChainID)
	}
	id, ok := l2ChainIDs[l1ChainID.Uint64()]
	if !ok {
		return nil, fmt.Errorf("%w: l1 chain id %s", ErrUnsupportedChain, l1ChainID)
	}
	return big.NewInt(id), nil
}

// RetryableFields assembles the submit-retryable transaction fields in
// hashing order.
func RetryableFields(
	chainID *big.Int,
	sequenceNumber *big.Int,
	delivered arbitrum.MessageDeliveredData,
	inbox arbitrum.InboxMessageDeliveredData,
	data []byte,
) ([][]byte, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("%w: chain id %v", ErrUnsupportedChain, chainID)
	}
	msgNum, err := messageNumber(sequenceNumber)
	if err != nil {
		return nil, err
	}

	dest := inbox.To.Bytes()
	if inbox.To == (common.Address{}) {
		dest = []byte{}
	}

	return [][]byte{
		byteutil.BigIntToCanonicalBytes(chainID),
		msgNum,
		delivered.Sender.Bytes(),
		byteutil.BigIntToCanonicalBytes(delivered.BaseFeeL1),
		byteutil.BigIntToCanonicalBytes(inbox.L1CallValue),
		byteutil.BigIntToCanonicalBytes(inbox.MaxFeePerGas),
		byteutil.BigIntToCanonicalBytes(inbox.GasLimit),
		dest,
		byteutil.BigIntToCanonicalBytes(inbox.L2CallValue),
		inbox.CallValueRefundAddress.Bytes(),
		byteutil.BigIntToCanonicalBytes(inbox.MaxSubmissionCost),
		inbox.ExcessFeeRefundAddress.Bytes(),
		append([]byte{}, data...),
	}, nil
}

// messageNumber encodes the inbox sequence number as a 32-byte word.
func messageNumber(sequenceNumber *big.Int) ([]byte, error) {
	if sequenceNumber == nil || sequenceNumber.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid sequence number %v", ErrIncompleteFieldSet, sequenceNumber)
	}
	padded, err := byteutil.PadHexTo32Bytes(hexutil.EncodeBig(sequenceNumber))
	if err != nil {
		return nil, fmt.Errorf("%w: sequence number: %v", ErrIncompleteFieldSet, err)
	}
	return hexutil.MustDecode(padded), nil
}

// CalculateSubmitRetryableID hashes the RLP list of fields behind the
// submit-retryable type byte.
func CalculateSubmitRetryableID(fields [][]byte) common.Hash {
	encoded := rlp.EncodeList(fields)
	preimage := make([]byte, 0, 1+len(encoded))
	preimage = append(preimage, SubmitRetryableTxType)
	preimage = append(preimage, encoded...)
	return crypto.Keccak256Hash(preimage)
}

// RetryableTicketID computes the L2 ticket ID of the retryable created by a
// deposit. The receipt must hold exactly one MessageDelivered,
// InboxMessageDelivered and TxToL2 log; otherwise no ID is produced.
func RetryableTicketID(chainID, sequenceNumber *big.Int, receipt *types.Receipt, logger *zap.Logger) (common.Hash, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	delivered, err := arbitrum.GetMessageDelivered(receipt, logger)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: MessageDelivered: %w", ErrIncompleteFieldSet, err)
	}
	inbox, err := arbitrum.GetInboxMessageDelivered(receipt, logger)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: InboxMessageDelivered: %w", ErrIncompleteFieldSet, err)
	}
	data, err := arbitrum.GetTxToL2(receipt, logger)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: TxToL2: %w", ErrIncompleteFieldSet, err)
	}
	if inbox.DataLength != nil && inbox.DataLength.Cmp(big.NewInt(int64(len(data)))) != 0 {
		logger.Debug("inbox data length differs from TxToL2 payload",
			zap.String("inbox_length", inbox.DataLength.String()),
			zap.Int("payload_length", len(data)),
		)
	}

	fields, err := RetryableFields(chainID, sequenceNumber, delivered, inbox, data)
	if err != nil {
		return common.Hash{}, err
	}
	return CalculateSubmitRetryableID(fields), nil
}
