package bridge_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/arbitrum/arbitrumtest"
	"bridgeScope/internal/bridge"
	"bridgeScope/internal/eventlog"
)

type mockLogSource struct {
	mock.Mock
}

func (m *mockLogSource) TransactionIndex(receipt *types.Receipt) (*big.Int, error) {
	args := m.Called(receipt)
	index, _ := args.Get(0).(*big.Int)
	return index, args.Error(1)
}

func TestTransactionIndexFromCalldata(t *testing.T) {
	index, err := bridge.TransactionIndexFromCalldata(arbitrumtest.ExecuteTransactionCalldata(big.NewInt(12345)))
	require.NoError(t, err)
	assert.Equal(t, "12345", index.String())
}

func TestTransactionIndexFromCalldataTruncatedTuple(t *testing.T) {
	head, err := arbitrum.ExecuteTransactionHead.Pack(
		big.NewInt(0x100), big.NewInt(99), common.Address{}, common.Address{},
		big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4),
	)
	require.NoError(t, err)
	calldata := append(arbitrum.ExecuteTransactionSelector[:], head...)

	index, err := bridge.TransactionIndexFromCalldata(calldata)
	require.NoError(t, err)
	assert.Equal(t, "99", index.String())
}

func TestTransactionIndexFromCalldataErrors(t *testing.T) {
	_, err := bridge.TransactionIndexFromCalldata(nil)
	assert.ErrorIs(t, err, bridge.ErrSelectorMismatch)

	_, err = bridge.TransactionIndexFromCalldata([]byte{0xac, 0x96, 0x50, 0xd8, 0x00})
	assert.ErrorIs(t, err, bridge.ErrSelectorMismatch)

	short := append(arbitrum.ExecuteTransactionSelector[:], make([]byte, 64)...)
	_, err = bridge.TransactionIndexFromCalldata(short)
	assert.ErrorIs(t, err, arbitrum.ErrDecode)
	assert.ErrorIs(t, err, bridge.ErrNotFound)
}

func TestResolveSelectorValidBypassesLogs(t *testing.T) {
	logs := new(mockLogSource)
	resolver := bridge.NewTxIndexResolverWithSource(logs, nil)

	receipt := &types.Receipt{Logs: []*types.Log{arbitrumtest.OutBoxTransactionExecutedLog(big.NewInt(1))}}
	index, err := resolver.Resolve(arbitrumtest.ExecuteTransactionCalldata(big.NewInt(31337)), receipt)
	require.NoError(t, err)
	assert.Equal(t, "31337", index.String())
	logs.AssertNotCalled(t, "TransactionIndex", mock.Anything)
}

func TestResolveFallsBackToReceipt(t *testing.T) {
	multicall := []byte{0xac, 0x96, 0x50, 0xd8, 0x00, 0x00, 0x00, 0x20}
	receipt := &types.Receipt{Logs: []*types.Log{arbitrumtest.OutBoxTransactionExecutedLog(big.NewInt(7))}}

	index, err := bridge.NewTxIndexResolver(nil).Resolve(multicall, receipt)
	require.NoError(t, err)
	assert.Equal(t, "7", index.String())
}

func TestResolveUsesSourceOnSelectorMismatch(t *testing.T) {
	receipt := &types.Receipt{}
	logs := new(mockLogSource)
	logs.On("TransactionIndex", receipt).Return(big.NewInt(7), nil).Once()

	index, err := bridge.NewTxIndexResolverWithSource(logs, nil).Resolve([]byte{0x01, 0x02, 0x03, 0x04}, receipt)
	require.NoError(t, err)
	assert.Equal(t, "7", index.String())
	logs.AssertExpectations(t)
}

func TestResolveBothPathsFail(t *testing.T) {
	receipt := &types.Receipt{}

	_, err := bridge.NewTxIndexResolver(nil).Resolve(nil, receipt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridge.ErrNotFound))
	assert.True(t, errors.Is(err, bridge.ErrSelectorMismatch))
	assert.True(t, errors.Is(err, eventlog.ErrAmbiguousOrMissingLog))
}
