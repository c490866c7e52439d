package quality

import (
	"strings"
	"testing"

	"github.com/mgolozar/PokePipeline/internal/transform"
)

func statDTOs(names ...string) []transform.StatDTO {
	out := make([]transform.StatDTO, 0, len(names))
	for _, n := range names {
		out = append(out, transform.StatDTO{Name: n})
	}
	return out
}

func TestValidate(t *testing.T) {
	allStats := statDTOs(transform.RequiredStats()...)
	types := []transform.TypeDTO{{Name: "grass"}}

	tests := []struct {
		name        string
		batch       transform.Batch
		wantOK      bool
		wantReasons []string
	}{
		{
			name:   "complete batch",
			batch:  transform.Batch{Stats: allStats, Types: types},
			wantOK: true,
		},
		{
			name:   "extra stats allowed",
			batch:  transform.Batch{Stats: append(statDTOs("accuracy"), allStats...), Types: types},
			wantOK: true,
		},
		{
			name: "missing defense and special-attack",
			batch: transform.Batch{
				Stats: statDTOs("hp", "attack", "special-defense", "speed"),
				Types: types,
			},
			wantReasons: []string{"missing required stats: [defense special-attack]"},
		},
		{
			name:        "no types",
			batch:       transform.Batch{Stats: allStats},
			wantReasons: []string{ReasonNoTypes},
		},
		{
			name:  "both checks fail",
			batch: transform.Batch{},
			wantReasons: []string{
				"missing required stats: [attack defense hp special-attack special-defense speed]",
				ReasonNoTypes,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.batch)

			if got.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v", got.OK, tt.wantOK)
			}
			if strings.Join(got.Reasons, "|") != strings.Join(tt.wantReasons, "|") {
				t.Errorf("Reasons = %q, want %q", got.Reasons, tt.wantReasons)
			}
		})
	}
}

func TestValidate_MappedBatch(t *testing.T) {
	b := transform.Batch{
		Stats: statDTOs("speed", "hp"),
		Types: []transform.TypeDTO{{Name: "normal"}},
	}

	got := Validate(b)
	if got.OK {
		t.Fatal("OK = true, want false")
	}
	reason := got.Reasons[0]
	for _, name := range []string{"attack", "defense", "special-attack", "special-defense"} {
		if !strings.Contains(reason, name) {
			t.Errorf("reason %q does not mention %q", reason, name)
		}
	}
	if strings.Index(reason, "attack") > strings.Index(reason, "defense") {
		t.Errorf("reason %q not sorted", reason)
	}
}
