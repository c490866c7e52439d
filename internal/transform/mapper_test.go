package transform

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mgolozar/PokePipeline/pkg/pokeapi"
)

func pikachuRecord() *pokeapi.Pokemon {
	return &pokeapi.Pokemon{
		ID:             25,
		Name:           "  Pikachu ",
		Height:         4,
		Weight:         60,
		BaseExperience: 112,
		Types: []pokeapi.TypeRef{
			{Name: "Electric", URL: "https://pokeapi.co/api/v2/type/13/", Slot: 1},
		},
		Abilities: []pokeapi.AbilityRef{
			{Name: "static", URL: "https://pokeapi.co/api/v2/ability/9/", Slot: 1},
			{Name: "lightning-rod", URL: "https://pokeapi.co/api/v2/ability/31/", Slot: 3, IsHidden: true},
		},
		Stats: []pokeapi.StatRef{
			{Name: "speed", URL: "https://pokeapi.co/api/v2/stat/6/", BaseStat: 90, Effort: 2},
			{Name: "hp", URL: "https://pokeapi.co/api/v2/stat/1/", BaseStat: 35},
			{Name: "attack", URL: "https://pokeapi.co/api/v2/stat/2/", BaseStat: 55},
			{Name: "defense", URL: "https://pokeapi.co/api/v2/stat/3/", BaseStat: 40},
			{Name: "special-attack", URL: "https://pokeapi.co/api/v2/stat/4/", BaseStat: 50},
			{Name: "special-defense", URL: "https://pokeapi.co/api/v2/stat/5/", BaseStat: 50},
		},
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pikachu", "pikachu"},
		{"  Charizard  ", "charizard"},
		{"MR-MIME", "mr-mime"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRequiredStat(t *testing.T) {
	for _, name := range RequiredStats() {
		if !IsRequiredStat(name) {
			t.Errorf("IsRequiredStat(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"accuracy", "evasion", "HP", ""} {
		if IsRequiredStat(name) {
			t.Errorf("IsRequiredStat(%q) = true, want false", name)
		}
	}
}

func TestToBatch(t *testing.T) {
	b, err := ToBatch(pikachuRecord())
	if err != nil {
		t.Fatalf("ToBatch() error = %v", err)
	}

	if len(b.Pokemons) != 1 {
		t.Fatalf("len(Pokemons) = %d, want 1", len(b.Pokemons))
	}
	p := b.Pokemons[0]
	if p.ID != 25 || p.Name != "pikachu" {
		t.Errorf("ID, Name = %d, %q, want 25, pikachu", p.ID, p.Name)
	}
	if p.Height == nil || *p.Height != 4 || p.Weight == nil || *p.Weight != 60 {
		t.Errorf("Height, Weight = %v, %v, want 4, 60", p.Height, p.Weight)
	}
	if p.HeightM != nil || p.WeightKg != nil || p.BaseStatTotal != nil || p.BulkIndex != nil {
		t.Error("derived fields set by mapper, want nil until Enrich")
	}

	if len(b.Types) != 1 || b.Types[0].Name != "electric" || b.Types[0].ID == nil || *b.Types[0].ID != 13 {
		t.Errorf("Types = %+v, want [electric#13]", b.Types)
	}
	if !reflect.DeepEqual(b.PokemonTypes, []TypeLink{{PokemonID: 25, TypeName: "electric"}}) {
		t.Errorf("PokemonTypes = %+v", b.PokemonTypes)
	}

	var abilityNames []string
	for _, a := range b.Abilities {
		abilityNames = append(abilityNames, a.Name)
	}
	if !reflect.DeepEqual(abilityNames, []string{"lightning-rod", "static"}) {
		t.Errorf("Abilities = %v, want sorted [lightning-rod static]", abilityNames)
	}
	hidden := b.PokemonAbilities[1]
	if hidden.AbilityName != "lightning-rod" || !hidden.IsHidden || hidden.Slot == nil || *hidden.Slot != 3 {
		t.Errorf("PokemonAbilities[1] = %+v, want hidden lightning-rod slot 3", hidden)
	}

	var statNames []string
	for _, s := range b.Stats {
		statNames = append(statNames, s.Name)
	}
	if !reflect.DeepEqual(statNames, RequiredStats()) {
		t.Errorf("Stats = %v, want %v", statNames, RequiredStats())
	}
	if len(b.PokemonStats) != 6 {
		t.Fatalf("len(PokemonStats) = %d, want 6", len(b.PokemonStats))
	}
	if s := b.PokemonStats[0]; s.StatName != "speed" || s.BaseValue != 90 || s.Effort != 2 {
		t.Errorf("PokemonStats[0] = %+v, want speed 90/2", s)
	}
}

func TestToBatch_LinksReferenceDimensions(t *testing.T) {
	rec := pikachuRecord()
	rec.Types = append(rec.Types, pokeapi.TypeRef{Name: "ELECTRIC"}, pokeapi.TypeRef{Name: "fairy"})

	b, err := ToBatch(rec)
	if err != nil {
		t.Fatalf("ToBatch() error = %v", err)
	}

	typeNames := make(map[string]bool)
	for _, d := range b.Types {
		if typeNames[d.Name] {
			t.Errorf("duplicate type dimension %q", d.Name)
		}
		typeNames[d.Name] = true
	}
	for _, l := range b.PokemonTypes {
		if !typeNames[l.TypeName] {
			t.Errorf("type link %q has no dimension", l.TypeName)
		}
	}

	abilityNames := make(map[string]bool)
	for _, d := range b.Abilities {
		abilityNames[d.Name] = true
	}
	for _, l := range b.PokemonAbilities {
		if !abilityNames[l.AbilityName] {
			t.Errorf("ability link %q has no dimension", l.AbilityName)
		}
	}

	statNames := make(map[string]bool)
	for _, d := range b.Stats {
		statNames[d.Name] = true
	}
	for _, l := range b.PokemonStats {
		if !statNames[l.StatName] {
			t.Errorf("stat link %q has no dimension", l.StatName)
		}
	}

	if len(b.Types) != 2 {
		t.Errorf("len(Types) = %d, want 2 after dedup", len(b.Types))
	}
}

func TestToBatch_Drops(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *pokeapi.Pokemon)
		reason string
	}{
		{
			name:   "empty name",
			modify: func(p *pokeapi.Pokemon) { p.Name = "" },
			reason: "empty name",
		},
		{
			name:   "whitespace name",
			modify: func(p *pokeapi.Pokemon) { p.Name = "   " },
			reason: "empty name",
		},
		{
			name:   "no types",
			modify: func(p *pokeapi.Pokemon) { p.Types = nil },
			reason: "no types",
		},
		{
			name:   "only blank type names",
			modify: func(p *pokeapi.Pokemon) { p.Types = []pokeapi.TypeRef{{Name: ""}, {Name: "  "}} },
			reason: "no types",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := pikachuRecord()
			tt.modify(rec)

			_, err := ToBatch(rec)
			if !errors.Is(err, ErrDrop) {
				t.Fatalf("ToBatch() error = %v, want ErrDrop", err)
			}

			var dropErr *DropError
			if !errors.As(err, &dropErr) {
				t.Fatal("errors.As(*DropError) = false")
			}
			if dropErr.PokemonID != 25 {
				t.Errorf("PokemonID = %d, want 25", dropErr.PokemonID)
			}
			if dropErr.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", dropErr.Reason, tt.reason)
			}
		})
	}
}

func TestToBatch_ZeroRawValuesAreAbsent(t *testing.T) {
	rec := pikachuRecord()
	rec.Height = 0
	rec.Weight = 0
	rec.BaseExperience = 0

	b, err := ToBatch(rec)
	if err != nil {
		t.Fatalf("ToBatch() error = %v", err)
	}

	p := b.Pokemons[0]
	if p.Height != nil || p.Weight != nil || p.BaseExperience != nil {
		t.Errorf("Height, Weight, BaseExperience = %v, %v, %v, want nil", p.Height, p.Weight, p.BaseExperience)
	}
}

func TestToBatch_NegativeRawValuesAreKept(t *testing.T) {
	rec := pikachuRecord()
	rec.Height = -4
	rec.BaseExperience = -1

	b, err := ToBatch(rec)
	if err != nil {
		t.Fatalf("ToBatch() error = %v", err)
	}

	p := b.Pokemons[0]
	if p.Height == nil || *p.Height != -4 {
		t.Errorf("Height = %v, want -4", p.Height)
	}
	if p.BaseExperience == nil || *p.BaseExperience != -1 {
		t.Errorf("BaseExperience = %v, want -1", p.BaseExperience)
	}

	e := Enrich(b).Pokemons[0]
	if e.HeightM == nil || *e.HeightM != -0.4 {
		t.Errorf("HeightM = %v, want -0.4", e.HeightM)
	}
	if e.BulkIndex != nil {
		t.Errorf("BulkIndex = %v, want nil for non-positive height", *e.BulkIndex)
	}
}

func TestRequiredStats_ReturnsCopy(t *testing.T) {
	stats := RequiredStats()
	stats[0] = "luck"

	if IsRequiredStat("luck") {
		t.Error("IsRequiredStat(\"luck\") = true after mutating the returned slice")
	}
	if got := RequiredStats()[0]; got != "attack" {
		t.Errorf("RequiredStats()[0] = %q, want attack", got)
	}

	b, err := ToBatch(pikachuRecord())
	if err != nil {
		t.Fatalf("ToBatch() error = %v", err)
	}
	if bst := Enrich(b).Pokemons[0].BaseStatTotal; bst == nil || *bst != 320 {
		t.Errorf("BaseStatTotal = %v, want 320", bst)
	}
}

func TestToBatch_SkipsBlankNamesAndKeepsMissingStats(t *testing.T) {
	rec := pikachuRecord()
	rec.Abilities = []pokeapi.AbilityRef{{Name: ""}, {Name: "static"}}
	rec.Stats = []pokeapi.StatRef{{Name: " "}, {Name: "hp", BaseStat: 35}}

	b, err := ToBatch(rec)
	if err != nil {
		t.Fatalf("ToBatch() error = %v, want missing stats tolerated", err)
	}

	if len(b.Abilities) != 1 || len(b.PokemonAbilities) != 1 {
		t.Errorf("abilities = %d/%d, want 1/1", len(b.Abilities), len(b.PokemonAbilities))
	}
	if b.PokemonAbilities[0].Slot != nil {
		t.Errorf("Slot = %v, want nil for missing slot", *b.PokemonAbilities[0].Slot)
	}
	if len(b.Stats) != 1 || b.Stats[0].Name != "hp" {
		t.Errorf("Stats = %+v, want [hp]", b.Stats)
	}
	if b.Stats[0].ID != nil {
		t.Errorf("Stats[0].ID = %v, want nil without url", *b.Stats[0].ID)
	}
}

func TestToBatch_NilRecord(t *testing.T) {
	if _, err := ToBatch(nil); !errors.Is(err, ErrDrop) {
		t.Errorf("ToBatch(nil) error = %v, want ErrDrop", err)
	}
}
