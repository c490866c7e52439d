package transform

// Enrich returns a copy of b with height_m, weight_kg, base_stat_total and
// bulk_index filled in for every pokemon. b itself is left untouched.
func Enrich(b Batch) Batch {
	pokemons := make([]PokemonDTO, len(b.Pokemons))
	for i, p := range b.Pokemons {
		p.HeightM = tenths(p.Height)
		p.WeightKg = tenths(p.Weight)
		p.BaseStatTotal = baseStatTotal(p.ID, b.PokemonStats)
		p.BulkIndex = bulkIndex(p.HeightM, p.WeightKg)
		pokemons[i] = p
	}

	out := b
	out.Pokemons = pokemons
	return out
}

func tenths(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v) / 10
	return &f
}

// baseStatTotal sums the required stats linked to pokemonID. A stat linked
// twice counts once, with the later value. Nil when none are present.
func baseStatTotal(pokemonID int, links []StatLink) *int {
	values := make(map[string]int)
	for _, l := range links {
		if l.PokemonID == pokemonID && IsRequiredStat(l.StatName) {
			values[l.StatName] = l.BaseValue
		}
	}
	if len(values) == 0 {
		return nil
	}

	total := 0
	for _, v := range values {
		total += v
	}
	return &total
}

// bulkIndex is kg / m², defined only for a positive height.
func bulkIndex(m, kg *float64) *float64 {
	if m == nil || kg == nil || *m <= 0 {
		return nil
	}
	bi := *kg / (*m * *m)
	return &bi
}
