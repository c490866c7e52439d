package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mgolozar/PokePipeline/internal/pipeline"
	"github.com/mgolozar/PokePipeline/internal/quality"
	"github.com/mgolozar/PokePipeline/internal/transform"
	"github.com/mgolozar/PokePipeline/pkg/pokeapi"
	"github.com/spf13/cobra"
)

// inspectReport is what inspect prints.
type inspectReport struct {
	ID        int              `json:"id"`
	Dropped   string           `json:"dropped,omitempty"`
	Batch     *transform.Batch `json:"batch,omitempty"`
	Quality   *quality.Result  `json:"quality,omitempty"`
	Evolution []string         `json:"evolution,omitempty"`
}

func inspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <id>",
		Short: "Fetch, transform and validate one pokemon without loading it",
		Long: `Inspect runs a single pokemon through extraction, mapping, enrichment and
quality checks and prints the resulting batch as JSON. Nothing is written to
the database.

With --evolution (or enable_evolution) the species and evolution chain are
fetched as well and the chain's species are listed base form first.

Example:
  pokepipe inspect 25
  pokepipe inspect 1 --evolution`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			ctx := cmd.Context()

			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid pokemon id %q", args[0])
			}

			evolution := cfg.EnableEvolution
			if cmd.Flags().Changed("evolution") {
				evolution, _ = cmd.Flags().GetBool("evolution")
			}

			api, closeAPI, err := newAPIClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeAPI()

			rec, err := api.FetchDetail(ctx, id)
			if err != nil {
				return err
			}

			report := inspectReport{ID: id}

			b, result, err := pipeline.Transform(rec, cfg.EnableEnrich)
			var dropErr *transform.DropError
			switch {
			case errors.As(err, &dropErr):
				report.Dropped = dropErr.Reason
			case err != nil:
				return err
			default:
				report.Batch = &b
				report.Quality = &result
			}

			if evolution {
				names, err := evolutionNames(cmd, api, id)
				if err != nil {
					return err
				}
				report.Evolution = names
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().Bool("evolution", false, "Also fetch species and evolution chain (default from enable_evolution)")

	return cmd
}

// evolutionNames follows species -> evolution chain for pokemon id.
func evolutionNames(cmd *cobra.Command, api *pokeapi.Client, id int) ([]string, error) {
	ctx := cmd.Context()

	species, err := api.FetchSpecies(ctx, id)
	if err != nil {
		return nil, err
	}

	chainID, ok := pokeapi.ExtractTrailingID(species.EvolutionChainURL)
	if !ok {
		return nil, fmt.Errorf("species %d has no evolution chain url", species.ID)
	}

	chain, err := api.FetchEvolutionChain(ctx, chainID)
	if err != nil {
		return nil, err
	}

	return chain.SpeciesNames(), nil
}
