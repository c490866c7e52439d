package cache

import (
	"fmt"
	"strings"
)

// Key identifies a cached PokeAPI resource.
type Key struct {
	// Resource is the PokeAPI resource path segment (e.g. "pokemon", "pokemon-species").
	Resource string

	// ID is the numeric resource id.
	ID int
}

// String generates the Redis key.
// Format: pokeapi:{resource}:{id}
//
// Example:
//
//	pokeapi:pokemon:25
func (k Key) String() string {
	resource := strings.ToLower(strings.Trim(k.Resource, "/ "))
	return fmt.Sprintf("pokeapi:%s:%d", resource, k.ID)
}
