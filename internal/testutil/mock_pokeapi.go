// Package testutil provides testing utilities for the PokeAPI pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable mock PokeAPI server for testing.
// Paths are registered without the base prefix, e.g. "/pokemon/25/".
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	requests map[string]int

	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockPokeAPI creates a new mock PokeAPI server.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		requests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.requests[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
	}))

	return mock
}

// URL returns the mock server base URL (the equivalent of https://pokeapi.co/api/v2).
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.requests = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPokeAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockPokeAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetFlakyResponse fails the first `failures` requests to path with status,
// then serves resp.
func (m *MockPokeAPI) SetFlakyResponse(path string, failures int, status int, resp MockResponse) {
	var mu sync.Mutex
	served := 0

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		fail := served <= failures
		mu.Unlock()

		if fail {
			w.WriteHeader(status)
			w.Write([]byte(`{"detail": "flaky"}`))
			return
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// SetPokemon registers the detail endpoint for a pokemon.
func (m *MockPokeAPI) SetPokemon(p PokemonFixture) {
	m.SetResponse(fmt.Sprintf("/pokemon/%d/", p.ID), NewJSONResponse(p.JSON()))
}

// SetPokemonList registers the list endpoint with one result per id, in the given order.
func (m *MockPokeAPI) SetPokemonList(ids ...int) {
	m.SetResponse("/pokemon", NewJSONResponse(PokemonListJSON(m.URL(), ids...)))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockPokeAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// GetPathCount returns the number of requests made to path.
func (m *MockPokeAPI) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// NewJSONResponse creates a standard 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// StatFixture is a stat entry of a PokemonFixture.
type StatFixture struct {
	Name     string
	BaseStat int
	Effort   int
}

// PokemonFixture describes a PokeAPI pokemon detail document.
type PokemonFixture struct {
	ID             int
	Name           string
	Height         int
	Weight         int
	BaseExperience int
	Types          []string
	Abilities      []string
	HiddenAbility  string
	Stats          []StatFixture
}

// Bulbasaur returns a complete fixture with all six canonical stats.
func Bulbasaur() PokemonFixture {
	return PokemonFixture{
		ID:             1,
		Name:           "bulbasaur",
		Height:         7,
		Weight:         69,
		BaseExperience: 64,
		Types:          []string{"grass", "poison"},
		Abilities:      []string{"overgrow"},
		HiddenAbility:  "chlorophyll",
		Stats: []StatFixture{
			{Name: "hp", BaseStat: 45},
			{Name: "attack", BaseStat: 49},
			{Name: "defense", BaseStat: 49},
			{Name: "special-attack", BaseStat: 65, Effort: 1},
			{Name: "special-defense", BaseStat: 65},
			{Name: "speed", BaseStat: 45},
		},
	}
}

// Pikachu returns a complete fixture with all six canonical stats.
func Pikachu() PokemonFixture {
	return PokemonFixture{
		ID:             25,
		Name:           "Pikachu",
		Height:         4,
		Weight:         60,
		BaseExperience: 112,
		Types:          []string{"electric"},
		Abilities:      []string{"static"},
		HiddenAbility:  "lightning-rod",
		Stats: []StatFixture{
			{Name: "hp", BaseStat: 35},
			{Name: "attack", BaseStat: 55},
			{Name: "defense", BaseStat: 40},
			{Name: "special-attack", BaseStat: 50},
			{Name: "special-defense", BaseStat: 50},
			{Name: "speed", BaseStat: 90, Effort: 2},
		},
	}
}

// JSON renders the fixture the way PokeAPI shapes /pokemon/{id}/.
func (p PokemonFixture) JSON() string {
	ref := func(kind, name string, id int) map[string]any {
		return map[string]any{
			"name": name,
			"url":  fmt.Sprintf("https://pokeapi.co/api/v2/%s/%d/", kind, id),
		}
	}

	types := make([]map[string]any, 0, len(p.Types))
	for i, name := range p.Types {
		types = append(types, map[string]any{
			"slot": i + 1,
			"type": ref("type", name, 100+i),
		})
	}

	abilities := make([]map[string]any, 0, len(p.Abilities)+1)
	for i, name := range p.Abilities {
		abilities = append(abilities, map[string]any{
			"slot":      i + 1,
			"is_hidden": false,
			"ability":   ref("ability", name, 200+i),
		})
	}
	if p.HiddenAbility != "" {
		abilities = append(abilities, map[string]any{
			"slot":      3,
			"is_hidden": true,
			"ability":   ref("ability", p.HiddenAbility, 299),
		})
	}

	stats := make([]map[string]any, 0, len(p.Stats))
	for i, s := range p.Stats {
		stats = append(stats, map[string]any{
			"base_stat": s.BaseStat,
			"effort":    s.Effort,
			"stat":      ref("stat", s.Name, i+1),
		})
	}

	doc := map[string]any{
		"id":              p.ID,
		"name":            p.Name,
		"height":          p.Height,
		"weight":          p.Weight,
		"base_experience": p.BaseExperience,
		"types":           types,
		"abilities":       abilities,
		"stats":           stats,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal fixture: %v", err))
	}
	return string(data)
}

// PokemonListJSON renders a /pokemon?limit=&offset= page for ids.
func PokemonListJSON(baseURL string, ids ...int) string {
	results := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		results = append(results, map[string]any{
			"name": fmt.Sprintf("pokemon-%d", id),
			"url":  fmt.Sprintf("%s/pokemon/%d/", baseURL, id),
		})
	}

	data, err := json.Marshal(map[string]any{
		"count":   len(ids),
		"results": results,
	})
	if err != nil {
		panic(fmt.Sprintf("marshal list: %v", err))
	}
	return string(data)
}
