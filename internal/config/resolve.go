package config

import (
	"github.com/spf13/pflag"
)

// ResolveConfig holds configuration for the ticket-id and tx-index commands.
type ResolveConfig struct {
	RPCURL    string
	TxHash    string
	L2ChainID uint64
	LogLevel  string
}

// LoadResolve merges config file, environment variables, and flags into ResolveConfig.
func LoadResolve(cfgFile string, flags *pflag.FlagSet) (ResolveConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return ResolveConfig{}, err
	}

	return ResolveConfig{
		RPCURL:    v.GetString("rpc"),
		TxHash:    v.GetString("tx"),
		L2ChainID: v.GetUint64("l2-chain-id"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
