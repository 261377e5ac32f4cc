package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/application/services"
	"github.com/bimakw/tokendata/internal/domain/repositories"
	"github.com/bimakw/tokendata/internal/infrastructure/cache"
	"github.com/bimakw/tokendata/internal/infrastructure/ethereum"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		file    string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Resolve name() and symbol() for an address list and rebuild a chain's tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			// Optional name/ticker cache
			var metaCache repositories.MetadataCache
			if cfg.Redis.Enabled {
				redisCache, err := cache.NewRedisCache(cfg.Redis, a.logger)
				if err != nil {
					a.logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
				} else {
					defer redisCache.Close()
					metaCache = redisCache

					if refresh {
						n, err := redisCache.DeleteChain(ctx, cfg.RPC.ChainID)
						if err != nil {
							return fmt.Errorf("failed to clear cache: %w", err)
						}
						a.logger.Info("Cleared cached metadata", zap.Int64("chain_id", cfg.RPC.ChainID), zap.Int("keys", n))
					}
				}
			}

			client, err := ethereum.NewBatchClient(cfg.RPC, a.metrics, a.logger)
			if err != nil {
				return err
			}
			fetcher := ethereum.NewMetadataFetcher(client, metaCache, cfg.RPC, a.metrics, a.logger)

			result, err := services.NewFetchService(fetcher, cfg.Output, a.logger).Run(ctx, cfg.RPC.ChainID, file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote:\n")
			for _, path := range result.Files {
				fmt.Fprintf(out, "  %s\n", path)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.AddFlagSet(rpcFlags(&a.cfg.RPC))
	f.AddFlagSet(outputFlags(&a.cfg.Output))
	f.StringVar(&file, "file", "", "file of token addresses separated by commas or whitespace")
	f.BoolVar(&refresh, "refresh-cache", false, "drop cached results for the chain before fetching")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
