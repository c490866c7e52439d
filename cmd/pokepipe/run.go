package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mgolozar/PokePipeline/internal/pipeline"
	"github.com/mgolozar/PokePipeline/pkg/logging"
	"github.com/mgolozar/PokePipeline/pkg/metrics"
	"github.com/spf13/cobra"
)

func runCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline for a range or list of pokemon",
		Long: `Run resolves pokemon ids, fetches every record, transforms and validates
it, and loads it into PostgreSQL. The run summary is printed as JSON.

Example:
  pokepipe run --limit 151
  pokepipe run --ids 1,4,7 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			ctx := cmd.Context()
			logger := logging.NewLogger("pokepipe")

			req := pipeline.Request{Limit: cfg.TargetLimit, Offset: cfg.TargetOffset}
			if cmd.Flags().Changed("limit") {
				req.Limit, _ = cmd.Flags().GetInt("limit")
			}
			if cmd.Flags().Changed("offset") {
				req.Offset, _ = cmd.Flags().GetInt("offset")
			}
			if req.Limit < 1 {
				return fmt.Errorf("--limit must be >= 1 (got %d)", req.Limit)
			}
			if req.Offset < 0 {
				return fmt.Errorf("--offset must be >= 0 (got %d)", req.Offset)
			}

			rawIDs, _ := cmd.Flags().GetString("ids")
			ids, err := parseIDs(rawIDs)
			if err != nil {
				return err
			}
			req.IDs = ids

			dryRun, _ := cmd.Flags().GetBool("dry-run")

			if cfg.MetricsAddr != "" {
				go func() {
					if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
						logger.Error().Err(err).Msg("Metrics server failed")
					}
				}()
			}

			api, closeAPI, err := newAPIClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeAPI()

			runnerCfg := pipeline.Config{
				Concurrency:  cfg.HTTPConcurrency,
				FetchTimeout: pipeline.DefaultConfig().FetchTimeout,
				EnableEnrich: cfg.EnableEnrich,
				DryRun:       dryRun,
			}

			var loader pipeline.Loader
			if !dryRun {
				repo, pool, err := openRepository(ctx, cfg)
				if err != nil {
					return fmt.Errorf("open repository: %w", err)
				}
				defer pool.Close()
				loader = repo
			}

			runner, err := pipeline.NewRunner(api, loader, runnerCfg)
			if err != nil {
				return err
			}

			summary, runErr := runner.Run(ctx, req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}

			return runErr
		},
	}

	cmd.Flags().Int("limit", 20, "Number of pokemon to fetch (default from target_limit)")
	cmd.Flags().Int("offset", 0, "Offset into the pokemon list (default from target_offset)")
	cmd.Flags().String("ids", "", "Comma-separated pokemon ids; overrides --limit and --offset")
	cmd.Flags().Bool("dry-run", false, "Transform and validate without loading")

	return cmd
}

// parseIDs parses a comma-separated id list such as "1,4,7". Blank input
// yields nil. Ids must be positive; duplicates are removed and the result is
// ascending.
func parseIDs(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid pokemon id %q", part)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	sort.Ints(ids)
	return ids, nil
}
