package indexer

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/bridge"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/model"
)

// recordBuilder turns a gateway log and its transaction into a bridge record.
type recordBuilder struct {
	chainID   uint64
	l2ChainID *big.Int
	resolver  *bridge.TxIndexResolver
	logger    *zap.Logger
}

func newRecordBuilder(chainID uint64, l2ChainID *big.Int, logger *zap.Logger) *recordBuilder {
	return &recordBuilder{
		chainID:   chainID,
		l2ChainID: l2ChainID,
		resolver:  bridge.NewTxIndexResolver(logger),
		logger:    logger,
	}
}

// build returns the record for log. A non-nil ResolveError accompanies a
// record whose derived identifier is absent. An error means the log itself
// could not be decoded and no record exists.
func (b *recordBuilder) build(
	log types.Log,
	receipt *types.Receipt,
	tx chain.TxInfo,
	timestamp uint64,
	ingestedAt time.Time,
) (model.BridgeTransaction, *model.ResolveError, error) {
	record := model.BridgeTransaction{
		ID:          model.BridgeTransactionID(log.TxHash.Hex(), uint64(log.Index)),
		ChainID:     b.chainID,
		L2ChainID:   b.l2ChainID.Uint64(),
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		Timestamp:   timestamp,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Gateway:     log.Address.Hex(),
		Signer:      tx.From.Hex(),
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}

	if len(log.Topics) == 0 {
		return model.BridgeTransaction{}, nil, fmt.Errorf("%w: log without topics", arbitrum.ErrDecode)
	}

	switch arbitrum.GatewayEventName(log.Topics[0]) {
	case arbitrum.EventDepositInitiated:
		deposit, err := arbitrum.ParseDepositInitiated(&log)
		if err != nil {
			return model.BridgeTransaction{}, nil, err
		}
		record.Type = model.TypeDeposit
		record.From = deposit.From.Hex()
		record.To = deposit.To.Hex()
		record.L1Token = deposit.L1Token.Hex()
		record.Amount = deposit.Amount.String()
		seq := deposit.SequenceNumber.String()
		record.SequenceNumber = &seq
		record.Routed = arbitrum.IsRouted(receipt)

		ticketID, err := bridge.RetryableTicketID(b.l2ChainID, deposit.SequenceNumber, receipt, b.logger)
		if err != nil {
			return record, b.resolveError(record, arbitrum.EventDepositInitiated, model.FieldRetryableTicketID, err), nil
		}
		id := ticketID.Hex()
		record.RetryableTicketID = &id
		return record, nil, nil

	case arbitrum.EventWithdrawalFinalized:
		withdrawal, err := arbitrum.ParseWithdrawalFinalized(&log)
		if err != nil {
			return model.BridgeTransaction{}, nil, err
		}
		record.Type = model.TypeWithdrawal
		record.Signer = withdrawal.From.Hex()
		record.From = withdrawal.From.Hex()
		record.To = withdrawal.To.Hex()
		record.L1Token = withdrawal.L1Token.Hex()
		record.Amount = withdrawal.Amount.String()
		exitNum := withdrawal.ExitNum.String()
		record.ExitNum = &exitNum

		index, err := b.resolver.Resolve(tx.Input, receipt)
		if err != nil {
			return record, b.resolveError(record, arbitrum.EventWithdrawalFinalized, model.FieldTransactionIndex, err), nil
		}
		value := index.String()
		record.TransactionIndex = &value
		return record, nil, nil

	default:
		return model.BridgeTransaction{}, nil, fmt.Errorf("%w: unknown gateway topic %s", arbitrum.ErrDecode, log.Topics[0].Hex())
	}
}

func (b *recordBuilder) resolveError(record model.BridgeTransaction, event, field string, err error) *model.ResolveError {
	b.logger.Warn("could not derive identifier",
		zap.String("tx_hash", record.TxHash),
		zap.Uint64("log_index", record.LogIndex),
		zap.String("field", field),
		zap.Error(err),
	)
	return &model.ResolveError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Gateway:     record.Gateway,
		Event:       event,
		Field:       field,
		Error:       err.Error(),
	}
}

func decodeError(chainID uint64, log types.Log, err error) model.ResolveError {
	topic0 := ""
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0].Hex()
	}
	return model.ResolveError{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Gateway:     log.Address.Hex(),
		Event:       topic0,
		Field:       model.FieldEvent,
		Error:       err.Error(),
	}
}
