package arbitrum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	EventDepositInitiated    = "DepositInitiated"
	EventWithdrawalFinalized = "WithdrawalFinalized"
)

// DepositInitiatedData is a decoded gateway DepositInitiated event.
type DepositInitiatedData struct {
	L1Token        common.Address
	From           common.Address
	To             common.Address
	SequenceNumber *big.Int
	Amount         *big.Int
}

// WithdrawalFinalizedData is a decoded gateway WithdrawalFinalized event.
type WithdrawalFinalizedData struct {
	L1Token common.Address
	From    common.Address
	To      common.Address
	ExitNum *big.Int
	Amount  *big.Int
}

// GatewayTopics returns the topic0 hashes of the gateway events the indexer
// follows.
func GatewayTopics() ([]common.Hash, error) {
	gateway, err := GatewayABI()
	if err != nil {
		return nil, err
	}
	return []common.Hash{
		gateway.Events[EventDepositInitiated].ID,
		gateway.Events[EventWithdrawalFinalized].ID,
	}, nil
}

// GatewayEventName maps a topic0 to the gateway event name, or "".
func GatewayEventName(topic0 common.Hash) string {
	gateway, err := GatewayABI()
	if err != nil {
		return ""
	}
	for _, name := range []string{EventDepositInitiated, EventWithdrawalFinalized} {
		if gateway.Events[name].ID == topic0 {
			return name
		}
	}
	return ""
}

// ParseDepositInitiated decodes a DepositInitiated log.
func ParseDepositInitiated(log *types.Log) (DepositInitiatedData, error) {
	gateway, err := GatewayABI()
	if err != nil {
		return DepositInitiatedData{}, err
	}
	event := gateway.Events[EventDepositInitiated]

	var indexed struct {
		From           common.Address
		To             common.Address
		SequenceNumber *big.Int
	}
	l1Token, amount, err := parseGatewayLog(event, log, &indexed)
	if err != nil {
		return DepositInitiatedData{}, err
	}

	return DepositInitiatedData{
		L1Token:        l1Token,
		From:           indexed.From,
		To:             indexed.To,
		SequenceNumber: indexed.SequenceNumber,
		Amount:         amount,
	}, nil
}

// ParseWithdrawalFinalized decodes a WithdrawalFinalized log.
func ParseWithdrawalFinalized(log *types.Log) (WithdrawalFinalizedData, error) {
	gateway, err := GatewayABI()
	if err != nil {
		return WithdrawalFinalizedData{}, err
	}
	event := gateway.Events[EventWithdrawalFinalized]

	var indexed struct {
		From    common.Address
		To      common.Address
		ExitNum *big.Int
	}
	l1Token, amount, err := parseGatewayLog(event, log, &indexed)
	if err != nil {
		return WithdrawalFinalizedData{}, err
	}

	return WithdrawalFinalizedData{
		L1Token: l1Token,
		From:    indexed.From,
		To:      indexed.To,
		ExitNum: indexed.ExitNum,
		Amount:  amount,
	}, nil
}

// parseGatewayLog decodes the shared (l1Token, amount) data layout and fills
// indexed from the topics.
func parseGatewayLog(event abi.Event, log *types.Log, indexed interface{}) (common.Address, *big.Int, error) {
	if log == nil {
		return common.Address{}, nil, fmt.Errorf("%w: nil log", ErrDecode)
	}
	indexedArgs := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexedArgs)+1 {
		return common.Address{}, nil, fmt.Errorf("%w: expected %d topics, got %d", ErrDecode, len(indexedArgs)+1, len(log.Topics))
	}
	if log.Topics[0] != event.ID {
		return common.Address{}, nil, fmt.Errorf("%w: topic0 %s is not %s", ErrDecode, log.Topics[0].Hex(), event.Name)
	}
	if err := abi.ParseTopics(indexed, indexedArgs, log.Topics[1:]); err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: parse topics: %v", ErrDecode, err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: unpack %s: %v", ErrDecode, event.Name, err)
	}
	if len(values) != 2 {
		return common.Address{}, nil, fmt.Errorf("%w: unexpected %s values: %d", ErrDecode, event.Name, len(values))
	}

	l1Token, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: l1 token: %v", ErrDecode, err)
	}
	amount, err := asBigInt(values[1])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: amount: %v", ErrDecode, err)
	}
	return l1Token, amount, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
