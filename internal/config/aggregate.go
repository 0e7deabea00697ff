package config

import (
	"github.com/spf13/pflag"
)

// AggregateConfig holds configuration for aggregation.
type AggregateConfig struct {
	RPCURL     string
	Input      string
	PGDSN      string
	BatchSize  int
	StateFile  string
	SkipEscrow bool
	LogLevel   string
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":         "./data/bridge.jsonl",
		"batch-size": 1000,
		"log-level":  "info",
	})
	if err != nil {
		return AggregateConfig{}, err
	}

	return AggregateConfig{
		RPCURL:     v.GetString("rpc"),
		Input:      v.GetString("in"),
		PGDSN:      v.GetString("pg-dsn"),
		BatchSize:  v.GetInt("batch-size"),
		StateFile:  v.GetString("state-file"),
		SkipEscrow: v.GetBool("skip-escrow"),
		LogLevel:   v.GetString("log-level"),
	}, nil
}
