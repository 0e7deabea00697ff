package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/arbitrum/arbitrumtest"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
)

var (
	gateway    = common.HexToAddress("0xa3A7B6F88361F48403514059F1F16C8E78d60EeC")
	otherAddr  = common.HexToAddress("0x9999999999999999999999999999999999999999")
	l1Token    = common.HexToAddress("0xc944E90C64B2c07662A292be6244BDf05Cda44a7")
	holder     = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	recipient  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	signerAddr = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

type fakeChain struct {
	mu          sync.Mutex
	chainID     int64
	latest      uint64
	logs        []types.Log
	receipts    map[common.Hash]*types.Receipt
	txs         map[common.Hash]chain.TxInfo
	filterFails int
	filterCalls int
}

func newFakeChain(chainID int64, latest uint64) *fakeChain {
	return &fakeChain{
		chainID:  chainID,
		latest:   latest,
		receipts: make(map[common.Hash]*types.Receipt),
		txs:      make(map[common.Hash]chain.TxInfo),
	}
}

func (f *fakeChain) add(log *types.Log, block uint64, txHash common.Hash, index uint, receipt *types.Receipt, tx chain.TxInfo) {
	log.BlockNumber = block
	log.BlockHash = common.BigToHash(new(big.Int).SetUint64(block))
	log.TxHash = txHash
	log.Index = index
	f.logs = append(f.logs, *log)
	if receipt != nil {
		receipt.TxHash = txHash
		f.receipts[txHash] = receipt
	}
	f.txs[txHash] = tx
}

func (f *fakeChain) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1_700_000_000 + number, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterCalls++
	if f.filterFails > 0 {
		f.filterFails--
		return nil, errors.New("rpc unavailable")
	}

	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber < fromBlock || log.BlockNumber > toBlock {
			continue
		}
		if !containsAddress(addresses, log.Address) || !containsHash(topic0, log.Topics[0]) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, ok := f.receipts[txHash]
	if !ok {
		return nil, errors.New("not found")
	}
	return receipt, nil
}

func (f *fakeChain) Transaction(_ context.Context, txHash, _ common.Hash, _ uint) (chain.TxInfo, error) {
	return f.txs[txHash], nil
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, v := range list {
		if v == h {
			return true
		}
	}
	return false
}

type memoryStorage struct {
	mu      sync.Mutex
	records []model.BridgeTransaction
}

func (m *memoryStorage) PutBatch(_ context.Context, records []model.BridgeTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

type memoryErrors struct {
	errs []model.ResolveError
}

func (m *memoryErrors) PutErrors(_ context.Context, errs []model.ResolveError) error {
	m.errs = append(m.errs, errs...)
	return nil
}

func sampleRetryable() arbitrumtest.Retryable {
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
	}
}

func bridgeChain() *fakeChain {
	fc := newFakeChain(1, 20)

	depositTx := common.HexToHash("0xd1")
	fc.add(
		arbitrumtest.DepositInitiatedLog(gateway, l1Token, holder, recipient, big.NewInt(42), big.NewInt(5000)),
		10, depositTx, 3,
		arbitrumtest.DepositReceipt(sampleRetryable(), arbitrumtest.TransferRoutedLog(gateway)),
		chain.TxInfo{From: signerAddr},
	)
	// Same log returned twice by the node.
	fc.logs = append(fc.logs, fc.logs[0])

	withdrawalTx := common.HexToHash("0xe1")
	fc.add(
		arbitrumtest.WithdrawalFinalizedLog(gateway, l1Token, recipient, holder, big.NewInt(9), big.NewInt(300)),
		12, withdrawalTx, 0,
		&types.Receipt{Logs: []*types.Log{arbitrumtest.OutBoxTransactionExecutedLog(big.NewInt(7))}},
		chain.TxInfo{From: signerAddr, Input: []byte{0xac, 0x96, 0x50, 0xd8}},
	)

	unresolvedTx := common.HexToHash("0xe2")
	fc.add(
		arbitrumtest.WithdrawalFinalizedLog(gateway, l1Token, recipient, holder, big.NewInt(10), big.NewInt(1)),
		15, unresolvedTx, 1,
		&types.Receipt{},
		chain.TxInfo{From: signerAddr},
	)

	foreign := arbitrumtest.DepositInitiatedLog(otherAddr, l1Token, holder, recipient, big.NewInt(1), big.NewInt(1))
	fc.add(foreign, 11, common.HexToHash("0xf1"), 0, nil, chain.TxInfo{})

	return fc
}

func TestRunnerIndexesGatewayLogs(t *testing.T) {
	fc := bridgeChain()
	fc.filterFails = 1
	sink := &memoryStorage{}
	errs := &memoryErrors{}
	checkpoint := NewFileCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	m := metrics.NewIndexer()

	runner := NewRunner(RunConfig{
		FromBlock:   1,
		ToBlock:     20,
		Gateways:    []common.Address{gateway},
		BatchSize:   5,
		Concurrency: 4,
		Retry:       RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond},
	}, fc, sink, nil, WithCheckpoint(checkpoint), WithErrorSink(errs), WithMetrics(m))

	require.NoError(t, runner.Run(context.Background()))
	require.Len(t, sink.records, 3)

	deposit := sink.records[0]
	assert.Equal(t, model.TypeDeposit, deposit.Type)
	assert.Equal(t, model.BridgeTransactionID(common.HexToHash("0xd1").Hex(), 3), deposit.ID)
	assert.Equal(t, uint64(42161), deposit.L2ChainID)
	assert.Equal(t, "5000", deposit.Amount)
	assert.Equal(t, signerAddr.Hex(), deposit.Signer)
	assert.Equal(t, uint64(1_700_000_010), deposit.Timestamp)
	assert.True(t, deposit.Routed)
	require.NotNil(t, deposit.RetryableTicketID)
	assert.Equal(t, "0x8a7636aafcdea6b9d44b90dfe52e1af06132129843b28c6dd6cea53dc6598904", *deposit.RetryableTicketID)

	withdrawal := sink.records[1]
	assert.Equal(t, model.TypeWithdrawal, withdrawal.Type)
	require.NotNil(t, withdrawal.TransactionIndex)
	assert.Equal(t, "7", *withdrawal.TransactionIndex)
	assert.Equal(t, "9", *withdrawal.ExitNum)
	assert.Equal(t, recipient.Hex(), withdrawal.Signer)

	unresolved := sink.records[2]
	assert.Nil(t, unresolved.TransactionIndex)
	require.Len(t, errs.errs, 1)
	assert.Equal(t, model.FieldTransactionIndex, errs.errs[0].Field)
	assert.Equal(t, arbitrum.EventWithdrawalFinalized, errs.errs[0].Event)

	last, ok, err := checkpoint.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(20), last)

	// 4 batches plus one failed attempt.
	assert.Equal(t, 5, fc.filterCalls)

	rerun := NewRunner(RunConfig{
		FromBlock: 1,
		Gateways:  []common.Address{gateway},
		BatchSize: 5,
	}, fc, sink, nil, WithCheckpoint(checkpoint))
	require.NoError(t, rerun.Run(context.Background()))
	assert.Len(t, sink.records, 3)
}

func TestRunnerRecordsUndecodableLogs(t *testing.T) {
	fc := newFakeChain(1, 5)
	gatewayABI, err := arbitrum.GatewayABI()
	require.NoError(t, err)
	broken := &types.Log{
		Address: gateway,
		Topics:  []common.Hash{gatewayABI.Events[arbitrum.EventDepositInitiated].ID},
		Data:    []byte{0x01},
	}
	fc.add(broken, 3, common.HexToHash("0xbad"), 0, &types.Receipt{}, chain.TxInfo{})

	sink := &memoryStorage{}
	errs := &memoryErrors{}
	runner := NewRunner(RunConfig{
		FromBlock: 1,
		Gateways:  []common.Address{gateway},
		BatchSize: 10,
	}, fc, sink, nil, WithErrorSink(errs))

	require.NoError(t, runner.Run(context.Background()))
	assert.Empty(t, sink.records)
	require.Len(t, errs.errs, 1)
	assert.Equal(t, model.FieldEvent, errs.errs[0].Field)
}

func TestRunnerUnsupportedChain(t *testing.T) {
	fc := newFakeChain(10, 5)
	runner := NewRunner(RunConfig{
		FromBlock: 1,
		Gateways:  []common.Address{gateway},
		BatchSize: 10,
	}, fc, &memoryStorage{}, nil)

	err := runner.Run(context.Background())
	require.Error(t, err)

	runner = NewRunner(RunConfig{
		FromBlock: 1,
		Gateways:  []common.Address{gateway},
		L2ChainID: big.NewInt(42170),
		BatchSize: 10,
	}, fc, &memoryStorage{}, nil)
	assert.NoError(t, runner.Run(context.Background()))
}

func TestRunnerFailsAfterRetries(t *testing.T) {
	fc := bridgeChain()
	fc.filterFails = 10
	runner := NewRunner(RunConfig{
		FromBlock: 1,
		ToBlock:   5,
		Gateways:  []common.Address{gateway},
		BatchSize: 5,
		Retry:     RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond},
	}, fc, &memoryStorage{}, nil)

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc unavailable")
	assert.Equal(t, 2, fc.filterCalls)
}
