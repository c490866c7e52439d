package pokeapi

// TypeRef is a type entry of a pokemon record.
type TypeRef struct {
	Name string
	URL  string
	Slot int
}

// AbilityRef is an ability entry of a pokemon record.
type AbilityRef struct {
	Name     string
	URL      string
	Slot     int
	IsHidden bool
}

// StatRef is a stat entry of a pokemon record.
type StatRef struct {
	Name     string
	URL      string
	BaseStat int
	Effort   int
}

// Pokemon is the extraction record for /pokemon/{id}/. Numeric fields missing
// upstream are zero.
type Pokemon struct {
	ID             int
	Name           string
	Height         int
	Weight         int
	BaseExperience int
	Types          []TypeRef
	Abilities      []AbilityRef
	Stats          []StatRef
}

// Species is the subset of /pokemon-species/{id}/ the pipeline uses.
type Species struct {
	ID                int
	Name              string
	EvolutionChainURL string
}

// EvolutionChain is /evolution-chain/{id}/ with the chain kept as raw JSON.
type EvolutionChain struct {
	ID    int
	Chain map[string]any
}

// SpeciesNames flattens the chain depth-first, base form first.
func (c *EvolutionChain) SpeciesNames() []string {
	var names []string
	var walk func(node map[string]any)
	walk = func(node map[string]any) {
		if node == nil {
			return
		}
		if name := asString(asMap(node["species"])["name"]); name != "" {
			names = append(names, name)
		}
		for _, next := range asSlice(node["evolves_to"]) {
			walk(asMap(next))
		}
	}
	walk(c.Chain)
	return names
}
