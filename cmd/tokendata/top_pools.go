package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bimakw/tokendata/internal/application/services"
	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/infrastructure/coingecko"
)

func newTopPoolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top-pools [api-key]",
		Short: "Merge token metadata from the top pools of each network into the chain tables",
		Long: `Pages through the highest 24h-volume pools of each network and adds the
referenced tokens to <out-root>/<chain>/address_to_metadata.json. Existing
entries are never overwritten; only a missing decimals value is filled in.

The API key is taken from the argument or COINGECKO_API_KEY.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if len(args) == 1 {
				cfg.Pools.APIKey = args[0]
			}

			networks, err := config.ParseNetworks(cfg.Pools.Networks)
			if err != nil {
				return err
			}

			client, err := coingecko.NewClient(cfg.Pools, a.logger)
			if err != nil {
				return err
			}

			svc := services.NewHarvestService(client, cfg.Pools, cfg.Output, a.metrics, a.logger)
			report, err := svc.Run(cmd.Context(), networks)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, n := range report.Networks {
				fmt.Fprintf(out, "%s: %d tokens seen, %d added, %d backfilled -> %s\n",
					n.Network, n.Seen, n.Added, n.Backfilled, n.Path)
			}
			fmt.Fprintf(out, "Processed tickers: %s\n", strings.Join(report.Tickers, ", "))
			return nil
		},
	}

	f := cmd.Flags()
	f.AddFlagSet(poolsFlags(&a.cfg.Pools))
	f.StringVar(&a.cfg.Output.Root, "out-root", a.cfg.Output.Root, "root directory holding one directory per chain")

	return cmd
}
