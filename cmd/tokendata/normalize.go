package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bimakw/tokendata/internal/application/services"
)

func newNormalizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Lowercase every address in the per-chain tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services.NewNormalizeService(a.cfg.Output, a.logger)

			result, err := svc.Run(a.cfg.Output.ChainIDs)
			if result != nil {
				for _, path := range result.Files {
					fmt.Fprintf(cmd.OutOrStdout(), "Normalized %s\n", path)
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.cfg.Output.Root, "out-root", a.cfg.Output.Root, "root directory holding one directory per chain")
	f.Int64SliceVar(&a.cfg.Output.ChainIDs, "chains", a.cfg.Output.ChainIDs, "chain directories to normalize")

	return cmd
}
