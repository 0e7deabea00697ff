package bridge_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/arbitrum/arbitrumtest"
	"bridgeScope/internal/bridge"
	"bridgeScope/internal/eventlog"
	"bridgeScope/internal/rlp"
)

func retryable(data []byte) arbitrumtest.Retryable {
	return arbitrumtest.Retryable{
		Sender:                 common.HexToAddress("0x1111111111111111111111111111111111111111"),
		BaseFeeL1:              big.NewInt(1_000_000_000),
		To:                     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		L2CallValue:            big.NewInt(0),
		L1CallValue:            big.NewInt(500_000_000_000),
		MaxSubmissionCost:      big.NewInt(100_000),
		ExcessFeeRefundAddress: common.HexToAddress("0x4444444444444444444444444444444444444444"),
		CallValueRefundAddress: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		GasLimit:               big.NewInt(21_000),
		MaxFeePerGas:           big.NewInt(2_000_000_000),
		Data:                   data,
	}
}

func TestRetryableTicketIDGolden(t *testing.T) {
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	tests := []struct {
		name    string
		chainID int64
		data    []byte
		want    string
	}{
		{
			name:    "arbitrum one empty data",
			chainID: 42161,
			want:    "0x8a7636aafcdea6b9d44b90dfe52e1af06132129843b28c6dd6cea53dc6598904",
		},
		{
			name:    "arbitrum sepolia empty data",
			chainID: 421614,
			want:    "0x3a750cabecc51551994786f1eedd44bb5570de641ef1a36427358dcbe9ba8098",
		},
		{
			name:    "long data uses multi-byte headers",
			chainID: 42161,
			data:    payload,
			want:    "0x14831d9657f9528069fc936d4c5932d58b99473dae19cce4135ee42d1ebcbd91",
		},
		{
			name:    "short data",
			chainID: 42161,
			data:    []byte{0xca, 0xfe, 0xba, 0xbe, 0x01},
			want:    "0x18439112be79a0626699797e9d8ea2b1e8c680d62dbad22d957193a08bf15612",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt := arbitrumtest.DepositReceipt(retryable(tt.data))
			id, err := bridge.RetryableTicketID(big.NewInt(tt.chainID), big.NewInt(42), receipt, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.Hex())
		})
	}
}

func TestRetryableFieldsEncoding(t *testing.T) {
	r := retryable(nil)
	fields, err := bridge.RetryableFields(
		big.NewInt(42161),
		big.NewInt(42),
		arbitrum.MessageDeliveredData{Sender: r.Sender, BaseFeeL1: r.BaseFeeL1},
		arbitrum.InboxMessageDeliveredData{
			To:                     r.To,
			L2CallValue:            r.L2CallValue,
			L1CallValue:            r.L1CallValue,
			MaxSubmissionCost:      r.MaxSubmissionCost,
			ExcessFeeRefundAddress: r.ExcessFeeRefundAddress,
			CallValueRefundAddress: r.CallValueRefundAddress,
			GasLimit:               r.GasLimit,
			MaxFeePerGas:           r.MaxFeePerGas,
			DataLength:             big.NewInt(0),
		},
		nil,
	)
	require.NoError(t, err)
	require.Len(t, fields, 13)
	assert.Len(t, fields[1], 32)

	want := "0xf89182a4b1a0000000000000000000000000000000000000000000000000000000000000002a" +
		"941111111111111111111111111111111111111111843b9aca0085746a5288008477359400825208" +
		"94222222222222222222222222222222222222222280943333333333333333333333333333333333333333" +
		"830186a094444444444444444444444444444444444444444480"
	assert.Equal(t, want, hexutil.Encode(rlp.EncodeList(fields)))
	assert.Equal(t, "0x8a7636aafcdea6b9d44b90dfe52e1af06132129843b28c6dd6cea53dc6598904",
		bridge.CalculateSubmitRetryableID(fields).Hex())
}

func TestRetryableFieldsZeroDestination(t *testing.T) {
	fields, err := bridge.RetryableFields(
		big.NewInt(42161),
		big.NewInt(1),
		arbitrum.MessageDeliveredData{BaseFeeL1: big.NewInt(1)},
		arbitrum.InboxMessageDeliveredData{},
		nil,
	)
	require.NoError(t, err)
	assert.Empty(t, fields[7])
	assert.Len(t, fields[9], 20)
}

func TestRetryableFieldsRejectsBadInputs(t *testing.T) {
	_, err := bridge.RetryableFields(nil, big.NewInt(1), arbitrum.MessageDeliveredData{}, arbitrum.InboxMessageDeliveredData{}, nil)
	assert.ErrorIs(t, err, bridge.ErrUnsupportedChain)

	_, err = bridge.RetryableFields(big.NewInt(42161), big.NewInt(-1), arbitrum.MessageDeliveredData{}, arbitrum.InboxMessageDeliveredData{}, nil)
	assert.ErrorIs(t, err, bridge.ErrIncompleteFieldSet)

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = bridge.RetryableFields(big.NewInt(42161), tooLarge, arbitrum.MessageDeliveredData{}, arbitrum.InboxMessageDeliveredData{}, nil)
	assert.ErrorIs(t, err, bridge.ErrNotFound)
}

func TestRetryableTicketIDMissingTxToL2(t *testing.T) {
	r := retryable(nil)
	receipt := &types.Receipt{Logs: []*types.Log{
		arbitrumtest.MessageDeliveredLog(r),
		arbitrumtest.InboxMessageDeliveredLog(r),
	}}

	core, logs := observer.New(zap.WarnLevel)
	id, err := bridge.RetryableTicketID(big.NewInt(42161), big.NewInt(42), receipt, zap.New(core))
	require.Error(t, err)
	assert.Equal(t, common.Hash{}, id)
	assert.True(t, errors.Is(err, bridge.ErrIncompleteFieldSet))
	assert.True(t, errors.Is(err, eventlog.ErrAmbiguousOrMissingLog))
	assert.True(t, errors.Is(err, bridge.ErrNotFound))

	var countErr *eventlog.MatchCountError
	require.True(t, errors.As(err, &countErr))
	assert.Equal(t, "TxToL2", countErr.Event)
	assert.Equal(t, 0, countErr.Count)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(0), logs.All()[0].ContextMap()["count"])
}

func TestRetryableTicketIDDuplicateMessageDelivered(t *testing.T) {
	r := retryable(nil)
	receipt := arbitrumtest.DepositReceipt(r, arbitrumtest.MessageDeliveredLog(r))

	_, err := bridge.RetryableTicketID(big.NewInt(42161), big.NewInt(42), receipt, nil)
	assert.ErrorIs(t, err, bridge.ErrIncompleteFieldSet)
}

func TestRetryableTicketIDNilReceipt(t *testing.T) {
	_, err := bridge.RetryableTicketID(big.NewInt(42161), big.NewInt(42), nil, nil)
	assert.ErrorIs(t, err, eventlog.ErrMissingReceipt)
	assert.ErrorIs(t, err, bridge.ErrIncompleteFieldSet)
}

func TestL2ChainIDForL1(t *testing.T) {
	tests := []struct {
		l1   int64
		want int64
	}{
		{1, 42161},
		{5, 421613},
		{11155111, 421614},
	}
	for _, tt := range tests {
		got, err := bridge.L2ChainIDForL1(big.NewInt(tt.l1))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Int64())
	}

	_, err := bridge.L2ChainIDForL1(big.NewInt(10))
	assert.ErrorIs(t, err, bridge.ErrUnsupportedChain)
	_, err = bridge.L2ChainIDForL1(nil)
	assert.ErrorIs(t, err, bridge.ErrUnsupportedChain)
}
