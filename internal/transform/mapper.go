package transform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mgolozar/PokePipeline/pkg/pokeapi"
	"github.com/rs/zerolog/log"
)

// ErrDrop marks a record excluded by mapping policy. It is an expected
// outcome, not a failure.
var ErrDrop = errors.New("pokemon dropped")

// DropError is returned by ToBatch when a record is excluded.
type DropError struct {
	PokemonID int
	Reason    string
}

// Error implements the error interface.
func (e *DropError) Error() string {
	return fmt.Sprintf("pokemon %d dropped: %s", e.PokemonID, e.Reason)
}

// Unwrap makes errors.Is(err, ErrDrop) hold.
func (e *DropError) Unwrap() error {
	return ErrDrop
}

// ToBatch maps an extraction record into a Batch, or returns a *DropError
// when the name is empty or no usable type remains.
func ToBatch(rec *pokeapi.Pokemon) (Batch, error) {
	if rec == nil {
		return Batch{}, &DropError{Reason: "nil record"}
	}

	logger := log.With().
		Str("component", "transform").
		Int("pokemon_id", rec.ID).
		Logger()

	name := NormalizeName(rec.Name)
	if name == "" {
		return Batch{}, &DropError{PokemonID: rec.ID, Reason: "empty name"}
	}

	types := make(map[string]TypeDTO)
	var typeLinks []TypeLink
	for _, ref := range rec.Types {
		n := NormalizeName(ref.Name)
		if n == "" {
			logger.Warn().Msg("Skipping empty type name")
			continue
		}
		types[n] = TypeDTO{ID: refID(ref.URL), Name: n}
		typeLinks = append(typeLinks, TypeLink{PokemonID: rec.ID, TypeName: n})
	}
	if len(typeLinks) == 0 {
		return Batch{}, &DropError{PokemonID: rec.ID, Reason: "no types"}
	}

	abilities := make(map[string]AbilityDTO)
	var abilityLinks []AbilityLink
	for _, ref := range rec.Abilities {
		n := NormalizeName(ref.Name)
		if n == "" {
			logger.Warn().Msg("Skipping empty ability name")
			continue
		}
		abilities[n] = AbilityDTO{ID: refID(ref.URL), Name: n}
		abilityLinks = append(abilityLinks, AbilityLink{
			PokemonID:   rec.ID,
			AbilityName: n,
			IsHidden:    ref.IsHidden,
			Slot:        nonZero(ref.Slot),
		})
	}

	stats := make(map[string]StatDTO)
	var statLinks []StatLink
	for _, ref := range rec.Stats {
		n := NormalizeName(ref.Name)
		if n == "" {
			logger.Warn().Msg("Skipping empty stat name")
			continue
		}
		stats[n] = StatDTO{ID: refID(ref.URL), Name: n}
		statLinks = append(statLinks, StatLink{
			PokemonID: rec.ID,
			StatName:  n,
			BaseValue: ref.BaseStat,
			Effort:    ref.Effort,
		})
	}

	if missing := missingRequiredStats(stats); len(missing) > 0 {
		logger.Warn().Strs("missing", missing).Msg("Missing standard stats")
	}

	return Batch{
		Pokemons: []PokemonDTO{{
			ID:             rec.ID,
			Name:           name,
			Height:         nonZero(rec.Height),
			Weight:         nonZero(rec.Weight),
			BaseExperience: nonZero(rec.BaseExperience),
		}},
		Types:            sortedValues(types),
		Abilities:        sortedValues(abilities),
		Stats:            sortedValues(stats),
		PokemonTypes:     typeLinks,
		PokemonAbilities: abilityLinks,
		PokemonStats:     statLinks,
	}, nil
}

// nonZero treats a zero raw value as absent.
func nonZero(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func refID(url string) *int {
	id, ok := pokeapi.ExtractTrailingID(url)
	if !ok {
		return nil
	}
	return &id
}

// sortedValues returns the map values ordered by key.
func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func missingRequiredStats(stats map[string]StatDTO) []string {
	var missing []string
	for _, name := range requiredStats {
		if _, ok := stats[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
