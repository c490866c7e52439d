// Package store persists transfer batches into PostgreSQL.
//
// Loads are idempotent: the pokemon row is upserted with full replace, while
// dimension and link rows are only inserted when absent. Each Load runs in
// its own transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mgolozar/PokePipeline/internal/transform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for load operations.
var (
	rowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokepipe_store_rows_written_total",
		Help: "Rows inserted or upserted by table",
	}, []string{"table"})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokepipe_store_load_duration_seconds",
		Help:    "Duration of a single batch load transaction",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	loadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokepipe_store_load_errors_total",
		Help: "Batch loads that failed and were rolled back",
	})
)

// ErrLoad marks a failed, rolled back batch load.
var ErrLoad = errors.New("load failed")

// LoadError carries the pokemon id of a failed load and the database cause.
type LoadError struct {
	PokemonID int
	Op        string
	Err       error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load pokemon %d: %s: %v", e.PokemonID, e.Op, e.Err)
}

// Unwrap exposes both ErrLoad and the database cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// LinkMetrics counts inserted link rows per link table.
type LinkMetrics struct {
	Types     int `json:"types"`
	Abilities int `json:"abilities"`
	Stats     int `json:"stats"`
}

// LoadMetrics reports what a Load wrote.
type LoadMetrics struct {
	UpsertedPokemon   int         `json:"upserted_pokemon"`
	InsertedTypes     int         `json:"inserted_types"`
	InsertedAbilities int         `json:"inserted_abilities"`
	InsertedStats     int         `json:"inserted_stats"`
	InsertedLinks     LinkMetrics `json:"inserted_links"`
}

// Add accumulates o into m.
func (m *LoadMetrics) Add(o LoadMetrics) {
	m.UpsertedPokemon += o.UpsertedPokemon
	m.InsertedTypes += o.InsertedTypes
	m.InsertedAbilities += o.InsertedAbilities
	m.InsertedStats += o.InsertedStats
	m.InsertedLinks.Types += o.InsertedLinks.Types
	m.InsertedLinks.Abilities += o.InsertedLinks.Abilities
	m.InsertedLinks.Stats += o.InsertedLinks.Stats
}

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Open creates a connection pool for databaseURL and verifies it with a ping.
func Open(ctx context.Context, databaseURL string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// Repository loads batches into PostgreSQL.
type Repository struct {
	db          DB
	schemaReady atomic.Bool
	logger      zerolog.Logger
}

// New creates a repository over db.
func New(db DB) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}

	return &Repository{
		db:     db,
		logger: log.With().Str("component", "store").Logger(),
	}, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// CountPokemon returns the number of stored pokemon rows.
func (r *Repository) CountPokemon(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM pokemon`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pokemon: %w", err)
	}
	return n, nil
}

// Load writes b in a single transaction. An empty batch is a no-op that never
// touches the database. On failure the transaction is rolled back and a
// *LoadError is returned.
func (r *Repository) Load(ctx context.Context, b transform.Batch) (LoadMetrics, error) {
	var m LoadMetrics

	if len(b.Pokemons) == 0 {
		r.logger.Warn().Msg("Empty batch, skipping load")
		return m, nil
	}

	pokemonID := b.Pokemons[0].ID
	logger := r.logger.With().Int("pokemon_id", pokemonID).Logger()

	if err := r.EnsureSchema(ctx); err != nil {
		logger.Warn().Err(err).Msg("Could not ensure schema")
	}

	start := time.Now()
	defer func() { loadDuration.Observe(time.Since(start).Seconds()) }()

	fail := func(op string, err error) (LoadMetrics, error) {
		loadErrorsTotal.Inc()
		return LoadMetrics{}, &LoadError{PokemonID: pokemonID, Op: op, Err: err}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fail("begin", err)
	}
	defer tx.Rollback(ctx)

	if m.UpsertedPokemon, err = upsertPokemons(ctx, tx, b.Pokemons); err != nil {
		return fail("upsert pokemon", err)
	}

	if err := insertDimensions(ctx, tx, b, &m); err != nil {
		return fail("insert dimensions", err)
	}

	ids, err := resolveDimensionIDs(ctx, tx, b)
	if err != nil {
		return fail("resolve dimension ids", err)
	}

	if err := insertLinks(ctx, tx, b, ids, &m); err != nil {
		return fail("insert links", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}

	rowsWrittenTotal.WithLabelValues("pokemon").Add(float64(m.UpsertedPokemon))
	rowsWrittenTotal.WithLabelValues("type").Add(float64(m.InsertedTypes))
	rowsWrittenTotal.WithLabelValues("ability").Add(float64(m.InsertedAbilities))
	rowsWrittenTotal.WithLabelValues("stat").Add(float64(m.InsertedStats))
	rowsWrittenTotal.WithLabelValues("pokemon_type").Add(float64(m.InsertedLinks.Types))
	rowsWrittenTotal.WithLabelValues("pokemon_ability").Add(float64(m.InsertedLinks.Abilities))
	rowsWrittenTotal.WithLabelValues("pokemon_stat").Add(float64(m.InsertedLinks.Stats))

	logger.Debug().
		Int("types", m.InsertedLinks.Types).
		Int("abilities", m.InsertedLinks.Abilities).
		Int("stats", m.InsertedLinks.Stats).
		Msg("Load batch completed")

	return m, nil
}

const upsertPokemonSQL = `
INSERT INTO pokemon (id, name, height, weight, base_experience,
                     height_m, weight_kg, base_stat_total, bulk_index)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	name            = EXCLUDED.name,
	height          = EXCLUDED.height,
	weight          = EXCLUDED.weight,
	base_experience = EXCLUDED.base_experience,
	height_m        = EXCLUDED.height_m,
	weight_kg       = EXCLUDED.weight_kg,
	base_stat_total = EXCLUDED.base_stat_total,
	bulk_index      = EXCLUDED.bulk_index,
	updated_at      = now()`

func upsertPokemons(ctx context.Context, tx pgx.Tx, pokemons []transform.PokemonDTO) (int, error) {
	total := 0
	for _, p := range pokemons {
		tag, err := tx.Exec(ctx, upsertPokemonSQL,
			p.ID, p.Name, p.Height, p.Weight, p.BaseExperience,
			p.HeightM, p.WeightKg, p.BaseStatTotal, p.BulkIndex)
		if err != nil {
			return total, fmt.Errorf("pokemon %d: %w", p.ID, err)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}

// sendCounted runs every queued statement of b and sums RowsAffected per
// counter. counters[i] receives the rows of the i-th queued statement.
func sendCounted(ctx context.Context, tx pgx.Tx, b *pgx.Batch, counters []*int) error {
	if b.Len() == 0 {
		return nil
	}

	br := tx.SendBatch(ctx, b)
	for _, c := range counters {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return err
		}
		*c += int(tag.RowsAffected())
	}
	return br.Close()
}

func insertDimensions(ctx context.Context, tx pgx.Tx, b transform.Batch, m *LoadMetrics) error {
	batch := &pgx.Batch{}
	var counters []*int

	for _, d := range b.Types {
		batch.Queue(`INSERT INTO "type" (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, d.Name)
		counters = append(counters, &m.InsertedTypes)
	}
	for _, d := range b.Abilities {
		batch.Queue(`INSERT INTO ability (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, d.Name)
		counters = append(counters, &m.InsertedAbilities)
	}
	for _, d := range b.Stats {
		batch.Queue(`INSERT INTO stat (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, d.Name)
		counters = append(counters, &m.InsertedStats)
	}

	return sendCounted(ctx, tx, batch, counters)
}

type dimensionIDs struct {
	types     map[string]int
	abilities map[string]int
	stats     map[string]int
}

func resolveDimensionIDs(ctx context.Context, tx pgx.Tx, b transform.Batch) (dimensionIDs, error) {
	var ids dimensionIDs
	var err error

	typeNames := make([]string, 0, len(b.Types))
	for _, d := range b.Types {
		typeNames = append(typeNames, d.Name)
	}
	if ids.types, err = lookupIDs(ctx, tx, `"type"`, typeNames); err != nil {
		return ids, err
	}

	abilityNames := make([]string, 0, len(b.Abilities))
	for _, d := range b.Abilities {
		abilityNames = append(abilityNames, d.Name)
	}
	if ids.abilities, err = lookupIDs(ctx, tx, "ability", abilityNames); err != nil {
		return ids, err
	}

	statNames := make([]string, 0, len(b.Stats))
	for _, d := range b.Stats {
		statNames = append(statNames, d.Name)
	}
	if ids.stats, err = lookupIDs(ctx, tx, "stat", statNames); err != nil {
		return ids, err
	}

	return ids, nil
}

// lookupIDs maps names to ids in table. table is one of the fixed dimension
// table identifiers, never user input.
func lookupIDs(ctx context.Context, tx pgx.Tx, table string, names []string) (map[string]int, error) {
	out := make(map[string]int, len(names))
	if len(names) == 0 {
		return out, nil
	}

	rows, err := tx.Query(ctx, `SELECT name, id FROM `+table+` WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("select %s ids: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var id int
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		out[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s ids: %w", table, err)
	}
	return out, nil
}

// insertLinks queues one insert per resolvable link. Links whose dimension
// name did not resolve are skipped.
func insertLinks(ctx context.Context, tx pgx.Tx, b transform.Batch, ids dimensionIDs, m *LoadMetrics) error {
	batch := &pgx.Batch{}
	var counters []*int

	for _, l := range b.PokemonTypes {
		typeID, ok := ids.types[l.TypeName]
		if !ok {
			continue
		}
		batch.Queue(`INSERT INTO pokemon_type (pokemon_id, type_id) VALUES ($1, $2)
			ON CONFLICT (pokemon_id, type_id) DO NOTHING`, l.PokemonID, typeID)
		counters = append(counters, &m.InsertedLinks.Types)
	}

	for _, l := range b.PokemonAbilities {
		abilityID, ok := ids.abilities[l.AbilityName]
		if !ok {
			continue
		}
		batch.Queue(`INSERT INTO pokemon_ability (pokemon_id, ability_id, is_hidden, slot) VALUES ($1, $2, $3, $4)
			ON CONFLICT (pokemon_id, ability_id) DO NOTHING`, l.PokemonID, abilityID, l.IsHidden, l.Slot)
		counters = append(counters, &m.InsertedLinks.Abilities)
	}

	for _, l := range b.PokemonStats {
		statID, ok := ids.stats[l.StatName]
		if !ok {
			continue
		}
		batch.Queue(`INSERT INTO pokemon_stat (pokemon_id, stat_id, base_value, effort) VALUES ($1, $2, $3, $4)
			ON CONFLICT (pokemon_id, stat_id) DO NOTHING`, l.PokemonID, statID, l.BaseValue, l.Effort)
		counters = append(counters, &m.InsertedLinks.Stats)
	}

	return sendCounted(ctx, tx, batch, counters)
}
