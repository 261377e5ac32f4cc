package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
)

func rpcFlags(cfg *config.RPCConfig) *pflag.FlagSet {
	fs := pflag.NewFlagSet("rpc", pflag.ContinueOnError)
	fs.StringVar(&cfg.URL, "rpc", cfg.URL, "HTTPS JSON-RPC endpoint for the chain")
	fs.Int64Var(&cfg.ChainID, "chain", cfg.ChainID, "chain ID (e.g. 1 for Ethereum mainnet)")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "addresses per JSON-RPC batch (two calls each)")
	fs.DurationVar(&cfg.BatchSleep, "sleep", cfg.BatchSleep, "pause between batches")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "retries per batch on rate limits and transient errors")
	fs.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "initial retry backoff")
	fs.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum retry backoff")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	return fs
}

func poolsFlags(cfg *config.PoolsConfig) *pflag.FlagSet {
	fs := pflag.NewFlagSet("pools", pflag.ContinueOnError)
	fs.StringVar(&cfg.APIBase, "api-base", cfg.APIBase, "pools API base URL")
	fs.StringSliceVar(&cfg.Networks, "networks", cfg.Networks, "ordered network:chainID pairs")
	fs.IntVar(&cfg.MaxPools, "max-pools", cfg.MaxPools, "pools to cover per network")
	fs.IntVar(&cfg.PerPage, "per-page", cfg.PerPage, "pools per API page")
	fs.IntVar(&cfg.DelayEvery, "delay-every", cfg.DelayEvery, "pause after every N pages (0 disables)")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "length of the courtesy pause")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	return fs
}

func outputFlags(cfg *config.OutputConfig) *pflag.FlagSet {
	fs := pflag.NewFlagSet("output", pflag.ContinueOnError)
	fs.StringVar(&cfg.Root, "out-root", cfg.Root, "root directory holding one directory per chain")
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "pretty-print JSON outputs")
	fs.StringVar(&cfg.IconURLTemplate, "icon-template", cfg.IconURLTemplate, "icon URL template taking chain ID and address")
	return fs
}

// logFlags records the effective value of every flag the command accepts
func logFlags(cmd *cobra.Command, logger *zap.Logger) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "rpc" || f.Name == "pushgateway" {
			// may embed credentials
			logger.Debug("Flag", zap.String("name", f.Name), zap.Bool("changed", f.Changed))
			return
		}
		logger.Debug("Flag",
			zap.String("name", f.Name),
			zap.String("value", f.Value.String()),
			zap.Bool("changed", f.Changed),
		)
	})
}
