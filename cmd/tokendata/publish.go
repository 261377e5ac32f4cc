package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bimakw/tokendata/internal/application/services"
	"github.com/bimakw/tokendata/internal/infrastructure/database"
)

func newPublishCmd(a *app) *cobra.Command {
	var chainID int64

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upsert a chain's address_to_metadata.json into PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := database.NewPostgresDB(a.cfg.Database, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}

			svc := services.NewPublishService(database.NewTokenRepo(db.DB()), a.cfg.Output, a.logger)
			result, err := svc.Run(ctx, chainID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Upserted %d tokens for chain %d (%d skipped, %d stored)\n",
				result.Upserted, result.ChainID, result.Skipped, result.Stored)
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64Var(&chainID, "chain", a.cfg.RPC.ChainID, "chain ID to publish")
	f.StringVar(&a.cfg.Output.Root, "out-root", a.cfg.Output.Root, "root directory holding one directory per chain")
	f.StringVar(&a.cfg.Database.Host, "db-host", a.cfg.Database.Host, "PostgreSQL host")
	f.IntVar(&a.cfg.Database.Port, "db-port", a.cfg.Database.Port, "PostgreSQL port")
	f.StringVar(&a.cfg.Database.Name, "db-name", a.cfg.Database.Name, "PostgreSQL database")

	return cmd
}
