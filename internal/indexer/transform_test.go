package indexer

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/arbitrum/arbitrumtest"
	"bridgeScope/internal/bridge"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/model"
)

func TestRecordBuilderDepositWithoutRetryableEvents(t *testing.T) {
	builder := newRecordBuilder(1, big.NewInt(42161), zap.NewNop())
	log := arbitrumtest.DepositInitiatedLog(gateway, l1Token, holder, recipient, big.NewInt(42), big.NewInt(5))
	log.TxHash = common.HexToHash("0x01")

	record, resolveErr, err := builder.build(*log, &types.Receipt{}, chain.TxInfo{}, 1, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Nil(t, record.RetryableTicketID)
	assert.Equal(t, "42", *record.SequenceNumber)
	require.NotNil(t, resolveErr)
	assert.Equal(t, model.FieldRetryableTicketID, resolveErr.Field)
	assert.Equal(t, arbitrum.EventDepositInitiated, resolveErr.Event)
	assert.Contains(t, resolveErr.Error, "MessageDelivered")
}

func TestRecordBuilderWithdrawalFromCalldata(t *testing.T) {
	builder := newRecordBuilder(1, big.NewInt(42161), zap.NewNop())
	log := arbitrumtest.WithdrawalFinalizedLog(gateway, l1Token, recipient, holder, big.NewInt(3), big.NewInt(5))
	tx := chain.TxInfo{From: signerAddr, Input: arbitrumtest.ExecuteTransactionCalldata(big.NewInt(1234))}

	record, resolveErr, err := builder.build(*log, &types.Receipt{}, tx, 1, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Nil(t, resolveErr)
	assert.Equal(t, "1234", *record.TransactionIndex)
	assert.False(t, record.IsDeposit())
	assert.Equal(t, recipient.Hex(), record.Signer)
}

func TestRecordBuilderUnknownTopic(t *testing.T) {
	builder := newRecordBuilder(1, big.NewInt(42161), zap.NewNop())
	log := types.Log{Address: gateway, Topics: []common.Hash{{0x01}}}

	_, _, err := builder.build(log, &types.Receipt{}, chain.TxInfo{}, 1, time.Unix(0, 0))
	assert.True(t, errors.Is(err, arbitrum.ErrDecode))
	assert.True(t, errors.Is(err, bridge.ErrNotFound))
}
