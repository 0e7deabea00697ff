package aggregate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	escrowMethodBlock  = "balance_of_block"
	escrowMethodLatest = "balance_of_latest"
	escrowMethodNone   = "unavailable"
)

// fetchEscrow reads the token balance held by the gateway at blockNumber,
// falling back to the latest block when the node has pruned that state.
func (a *Aggregator) fetchEscrow(ctx context.Context, token, gateway common.Address, blockNumber uint64) (*big.Int, string, error) {
	if a.caller == nil {
		return nil, escrowMethodNone, fmt.Errorf("chain client is nil")
	}

	balance, err := balanceOf(ctx, a.caller, token, gateway, new(big.Int).SetUint64(blockNumber))
	if err == nil {
		return balance, escrowMethodBlock, nil
	}
	balance, latestErr := balanceOf(ctx, a.caller, token, gateway, nil)
	if latestErr == nil {
		return balance, escrowMethodLatest, nil
	}
	return nil, escrowMethodNone, fmt.Errorf("balanceOf at %d: %v; latest: %w", blockNumber, err, latestErr)
}

func balanceOf(ctx context.Context, caller ContractCaller, token, owner common.Address, blockNumber *big.Int) (*big.Int, error) {
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		return nil, err
	}
	values, err := callMethod(ctx, caller, token, parsed, "balanceOf", blockNumber, owner)
	if err != nil {
		return nil, err
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return balance, nil
}
