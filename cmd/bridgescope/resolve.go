package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/bridge"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/config"
	"bridgeScope/internal/indexer"
)

func resolveFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "L1 RPC URL")
	cmd.Flags().String("tx", "", "L1 transaction hash")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newTicketIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket-id",
		Short: "Print the retryable ticket id of every deposit in a transaction",
		RunE:  runTicketID,
	}
	resolveFlags(cmd)
	cmd.Flags().Uint64("l2-chain-id", 0, "L2 chain id, 0 derives it from the L1 chain id")
	return cmd
}

func newTxIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx-index",
		Short: "Print the outbox transaction index of a withdrawal transaction",
		RunE:  runTxIndex,
	}
	resolveFlags(cmd)
	return cmd
}

// resolveSession is the shared setup of the single-transaction commands.
type resolveSession struct {
	cfg     config.ResolveConfig
	logger  *zap.Logger
	client  *chain.Client
	receipt *types.Receipt
}

func openResolveSession(ctx context.Context, cmd *cobra.Command) (*resolveSession, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadResolve(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}
	txHash, err := indexer.ParseTxHash(cfg.TxHash)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}
	closeFn := func() {
		client.Close()
		_ = logger.Sync()
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("receipt %s: %w", txHash.Hex(), err)
	}
	return &resolveSession{cfg: cfg, logger: logger, client: client, receipt: receipt}, closeFn, nil
}

func runTicketID(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, closeFn, err := openResolveSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	l2ChainID := new(big.Int).SetUint64(session.cfg.L2ChainID)
	if l2ChainID.Sign() == 0 {
		l1ChainID, err := session.client.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		if l2ChainID, err = bridge.L2ChainIDForL1(l1ChainID); err != nil {
			return err
		}
	}
	return printTicketIDs(cmd.OutOrStdout(), session.receipt, l2ChainID, session.logger)
}

// printTicketIDs writes one "logIndex sequenceNumber ticketID" line per
// DepositInitiated log in receipt. A deposit whose ticket ID cannot be
// derived is printed as "not-found".
func printTicketIDs(w io.Writer, receipt *types.Receipt, l2ChainID *big.Int, logger *zap.Logger) error {
	found := 0
	for _, log := range receipt.Logs {
		if len(log.Topics) == 0 || arbitrum.GatewayEventName(log.Topics[0]) != arbitrum.EventDepositInitiated {
			continue
		}
		deposit, err := arbitrum.ParseDepositInitiated(log)
		if err != nil {
			return err
		}
		found++
		ticketID, err := bridge.RetryableTicketID(l2ChainID, deposit.SequenceNumber, receipt, logger)
		if err != nil {
			logger.Warn("ticket id not found", zap.Uint("log_index", log.Index), zap.Error(err))
			fmt.Fprintf(w, "%d %s not-found\n", log.Index, deposit.SequenceNumber)
			continue
		}
		fmt.Fprintf(w, "%d %s %s\n", log.Index, deposit.SequenceNumber, ticketID.Hex())
	}
	if found == 0 {
		return fmt.Errorf("no %s log in transaction %s", arbitrum.EventDepositInitiated, receipt.TxHash.Hex())
	}
	return nil
}

func runTxIndex(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, closeFn, err := openResolveSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	receipt := session.receipt
	tx, err := session.client.Transaction(ctx, receipt.TxHash, receipt.BlockHash, receipt.TransactionIndex)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", receipt.TxHash.Hex(), err)
	}

	index, err := bridge.NewTxIndexResolver(session.logger).Resolve(tx.Input, receipt)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), index.String())
	return nil
}
