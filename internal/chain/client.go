package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultHeaderCacheSize  = 4096
	defaultReceiptCacheSize = 1024
)

// Client wraps go-ethereum RPC with the calls the bridge indexer needs.
// Block timestamps and receipts are immutable once final and are cached.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	timestamps *lru.Cache[uint64, uint64]
	receipts   *lru.Cache[common.Hash, *types.Receipt]
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	timestamps, err := lru.New[uint64, uint64](defaultHeaderCacheSize)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("timestamp cache: %w", err)
	}
	receipts, err := lru.New[common.Hash, *types.Receipt](defaultReceiptCacheSize)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("receipt cache: %w", err)
	}

	return &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		timestamps: timestamps,
		receipts:   receipts,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the block timestamp.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := c.timestamps.Get(number); ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}
	c.timestamps.Add(number, header.Time)
	return header.Time, nil
}

// FilterLogs returns logs emitted by addresses in [fromBlock, toBlock] whose
// topic0 is one of topic0.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// TransactionReceipt returns the receipt of txHash. Several gateway logs in
// one transaction share the cached receipt.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if receipt, ok := c.receipts.Get(txHash); ok {
		return receipt, nil
	}
	receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	c.receipts.Add(txHash, receipt)
	return receipt, nil
}

// TxInfo holds the parts of a mined transaction the indexer records.
type TxInfo struct {
	Input []byte
	From  common.Address
}

// Transaction returns the calldata and signer of a mined transaction.
func (c *Client) Transaction(ctx context.Context, txHash common.Hash, blockHash common.Hash, txIndex uint) (TxInfo, error) {
	tx, _, err := c.ethClient.TransactionByHash(ctx, txHash)
	if err != nil {
		return TxInfo{}, err
	}
	from, err := c.ethClient.TransactionSender(ctx, tx, blockHash, txIndex)
	if err != nil {
		return TxInfo{}, fmt.Errorf("sender of %s: %w", txHash.Hex(), err)
	}
	return TxInfo{Input: tx.Data(), From: from}, nil
}

// CallContract performs an eth_call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
