package pokeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var trailingID = regexp.MustCompile(`/(\d+)$`)

// ExtractTrailingID returns the numeric last path segment of a PokeAPI
// resource URL, tolerating a trailing slash.
//
//	ExtractTrailingID("https://pokeapi.co/api/v2/pokemon/42/") // 42, true
//	ExtractTrailingID("no-digits")                             // 0, false
func ExtractTrailingID(url string) (int, bool) {
	m := trailingID.FindStringSubmatch(strings.TrimRight(url, "/"))
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeObject decodes body into a generic JSON object, keeping numbers exact.
func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrParse, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: expected json object", ErrParse)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after json object", ErrParse)
	}
	return doc, nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// asInt accepts integral JSON numbers that fit a PostgreSQL INTEGER column.
func asInt(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return 0, false
		}
		i = int64(f)
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, false
	}
	return int(i), true
}

func intOrZero(v any) int {
	i, _ := asInt(v)
	return i
}

// requireID and requireName enforce the two fields every record must carry.
func requireID(doc map[string]any) (int, error) {
	id, ok := asInt(doc["id"])
	if !ok {
		return 0, fmt.Errorf("%w: missing or invalid field %q", ErrParse, "id")
	}
	return id, nil
}

func requireName(doc map[string]any) (string, error) {
	name, ok := doc["name"].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing or invalid field %q", ErrParse, "name")
	}
	return name, nil
}

func parsePokemon(body []byte) (*Pokemon, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	id, err := requireID(doc)
	if err != nil {
		return nil, err
	}
	name, err := requireName(doc)
	if err != nil {
		return nil, err
	}

	p := &Pokemon{
		ID:             id,
		Name:           name,
		Height:         intOrZero(doc["height"]),
		Weight:         intOrZero(doc["weight"]),
		BaseExperience: intOrZero(doc["base_experience"]),
	}

	for _, raw := range asSlice(doc["types"]) {
		entry := asMap(raw)
		ref := asMap(entry["type"])
		p.Types = append(p.Types, TypeRef{
			Name: asString(ref["name"]),
			URL:  asString(ref["url"]),
			Slot: intOrZero(entry["slot"]),
		})
	}

	for _, raw := range asSlice(doc["abilities"]) {
		entry := asMap(raw)
		ref := asMap(entry["ability"])
		p.Abilities = append(p.Abilities, AbilityRef{
			Name:     asString(ref["name"]),
			URL:      asString(ref["url"]),
			Slot:     intOrZero(entry["slot"]),
			IsHidden: asBool(entry["is_hidden"]),
		})
	}

	for _, raw := range asSlice(doc["stats"]) {
		entry := asMap(raw)
		ref := asMap(entry["stat"])
		p.Stats = append(p.Stats, StatRef{
			Name:     asString(ref["name"]),
			URL:      asString(ref["url"]),
			BaseStat: intOrZero(entry["base_stat"]),
			Effort:   intOrZero(entry["effort"]),
		})
	}

	return p, nil
}

func parseSpecies(body []byte) (*Species, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	id, err := requireID(doc)
	if err != nil {
		return nil, err
	}
	name, err := requireName(doc)
	if err != nil {
		return nil, err
	}

	return &Species{
		ID:                id,
		Name:              name,
		EvolutionChainURL: asString(asMap(doc["evolution_chain"])["url"]),
	}, nil
}

func parseEvolutionChain(body []byte) (*EvolutionChain, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	id, err := requireID(doc)
	if err != nil {
		return nil, err
	}

	return &EvolutionChain{
		ID:    id,
		Chain: asMap(doc["chain"]),
	}, nil
}

// parseListIDs extracts ids from results[].url, skipping entries without a
// usable url. The result is sorted ascending by the caller.
func parseListIDs(body []byte) ([]int, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	var ids []int
	for _, raw := range asSlice(doc["results"]) {
		id, ok := ExtractTrailingID(asString(asMap(raw)["url"]))
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
