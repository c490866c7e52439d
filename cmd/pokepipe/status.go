package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database connectivity and report the loaded pokemon count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			repo, pool, err := openRepository(ctx, a.cfg)
			if err != nil {
				return fmt.Errorf("database unavailable: %w", err)
			}
			defer pool.Close()

			if err := repo.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			count, err := repo.CountPokemon(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "database: ok\npokemon: %d\n", count)
			return nil
		},
	}
}
