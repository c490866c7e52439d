// Command pokepipe extracts pokemon from PokeAPI, transforms and validates
// them, and loads them into PostgreSQL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgolozar/PokePipeline/internal/config"
	"github.com/mgolozar/PokePipeline/pkg/logging"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app carries state shared by the subcommands once the root pre-run loaded it.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pokepipe",
		Short: "PokeAPI ETL pipeline",
		Long: `pokepipe fetches pokemon from PokeAPI, normalizes and enriches them,
validates them against quality rules and upserts them into PostgreSQL.

Configuration is read from defaults, the YAML file named by POKEPIPE_CONFIG,
and POKEPIPE_* environment variables, in that order of precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg

			logging.Setup(logging.Config{
				Level:  logging.LogLevel(cfg.LogLevel),
				Pretty: cfg.LogPretty,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	rootCmd.AddCommand(runCmd(a))
	rootCmd.AddCommand(inspectCmd(a))
	rootCmd.AddCommand(statusCmd(a))

	return rootCmd
}
