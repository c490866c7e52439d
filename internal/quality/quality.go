// Package quality validates transfer batches before they are loaded.
package quality

import (
	"fmt"

	"github.com/mgolozar/PokePipeline/internal/transform"
)

// ReasonNoTypes is reported when a batch carries no type dimension.
const ReasonNoTypes = "no types found"

// Result is the outcome of Validate. OK is true iff Reasons is empty.
type Result struct {
	OK      bool     `json:"ok"`
	Reasons []string `json:"reasons,omitempty"`
}

// Validate runs every check against b and reports all failures together.
func Validate(b transform.Batch) Result {
	var reasons []string

	if missing := missingStats(b); len(missing) > 0 {
		reasons = append(reasons, fmt.Sprintf("missing required stats: %v", missing))
	}

	if len(b.Types) == 0 {
		reasons = append(reasons, ReasonNoTypes)
	}

	return Result{
		OK:      len(reasons) == 0,
		Reasons: reasons,
	}
}

// missingStats returns the required stats absent from b.Stats, sorted.
func missingStats(b transform.Batch) []string {
	present := make(map[string]struct{}, len(b.Stats))
	for _, s := range b.Stats {
		present[s.Name] = struct{}{}
	}

	var missing []string
	for _, name := range transform.RequiredStats() {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
