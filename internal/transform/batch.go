// Package transform maps extraction records into transfer batches and derives
// the computed pokemon fields.
//
// A Batch is a value: ToBatch builds it once and Enrich returns a new one.
// Nothing in this package mutates a Batch it was handed.
package transform

import "strings"

// requiredStats are the six canonical stats every complete record carries, sorted.
var requiredStats = []string{
	"attack",
	"defense",
	"hp",
	"special-attack",
	"special-defense",
	"speed",
}

var requiredStatSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(requiredStats))
	for _, s := range requiredStats {
		m[s] = struct{}{}
	}
	return m
}()

// RequiredStats returns a copy of the six canonical stat names, sorted.
func RequiredStats() []string {
	return append([]string(nil), requiredStats...)
}

// IsRequiredStat reports whether name is one of RequiredStats.
func IsRequiredStat(name string) bool {
	_, ok := requiredStatSet[name]
	return ok
}

// NormalizeName trims surrounding whitespace and lowercases s.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PokemonDTO is the central entity. Raw and derived numeric fields are nil
// when absent.
type PokemonDTO struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Height         *int     `json:"height"`
	Weight         *int     `json:"weight"`
	BaseExperience *int     `json:"base_experience"`
	HeightM        *float64 `json:"height_m"`
	WeightKg       *float64 `json:"weight_kg"`
	BaseStatTotal  *int     `json:"base_stat_total"`
	BulkIndex      *float64 `json:"bulk_index"`
}

// TypeDTO is a type dimension. ID is the upstream id when the ref url had one.
type TypeDTO struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

// AbilityDTO is an ability dimension.
type AbilityDTO struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

// StatDTO is a stat dimension.
type StatDTO struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

// TypeLink joins a pokemon to a type by name.
type TypeLink struct {
	PokemonID int    `json:"pokemon_id"`
	TypeName  string `json:"type_name"`
}

// AbilityLink joins a pokemon to an ability by name.
type AbilityLink struct {
	PokemonID   int    `json:"pokemon_id"`
	AbilityName string `json:"ability_name"`
	IsHidden    bool   `json:"is_hidden"`
	Slot        *int   `json:"slot"`
}

// StatLink joins a pokemon to a stat by name.
type StatLink struct {
	PokemonID int    `json:"pokemon_id"`
	StatName  string `json:"stat_name"`
	BaseValue int    `json:"base_value"`
	Effort    int    `json:"effort"`
}

// Batch is the transfer bundle handed from the mapper to the repository.
type Batch struct {
	Pokemons         []PokemonDTO  `json:"pokemons"`
	Types            []TypeDTO     `json:"types"`
	Abilities        []AbilityDTO  `json:"abilities"`
	Stats            []StatDTO     `json:"stats"`
	PokemonTypes     []TypeLink    `json:"pokemon_types"`
	PokemonAbilities []AbilityLink `json:"pokemon_abilities"`
	PokemonStats     []StatLink    `json:"pokemon_stats"`
}
