package store

import (
	"context"
	"fmt"
)

// tableDDL lists every table in foreign-key order: parents before children.
var tableDDL = []struct {
	name string
	ddl  string
}{
	{"pokemon", `CREATE TABLE IF NOT EXISTS pokemon (
		id              INTEGER PRIMARY KEY,
		name            VARCHAR(100) NOT NULL,
		height          INTEGER,
		weight          INTEGER,
		base_experience INTEGER,
		height_m        DOUBLE PRECISION,
		weight_kg       DOUBLE PRECISION,
		base_stat_total INTEGER,
		bulk_index      DOUBLE PRECISION,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"type", `CREATE TABLE IF NOT EXISTS "type" (
		id         SERIAL PRIMARY KEY,
		name       VARCHAR(50) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"ability", `CREATE TABLE IF NOT EXISTS ability (
		id         SERIAL PRIMARY KEY,
		name       VARCHAR(100) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"stat", `CREATE TABLE IF NOT EXISTS stat (
		id         SERIAL PRIMARY KEY,
		name       VARCHAR(50) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"pokemon_type", `CREATE TABLE IF NOT EXISTS pokemon_type (
		pokemon_id INTEGER NOT NULL REFERENCES pokemon (id) ON DELETE CASCADE,
		type_id    INTEGER NOT NULL REFERENCES "type" (id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (pokemon_id, type_id)
	)`},
	{"pokemon_ability", `CREATE TABLE IF NOT EXISTS pokemon_ability (
		pokemon_id INTEGER NOT NULL REFERENCES pokemon (id) ON DELETE CASCADE,
		ability_id INTEGER NOT NULL REFERENCES ability (id) ON DELETE CASCADE,
		is_hidden  BOOLEAN NOT NULL DEFAULT false,
		slot       INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (pokemon_id, ability_id)
	)`},
	{"pokemon_stat", `CREATE TABLE IF NOT EXISTS pokemon_stat (
		pokemon_id INTEGER NOT NULL REFERENCES pokemon (id) ON DELETE CASCADE,
		stat_id    INTEGER NOT NULL REFERENCES stat (id) ON DELETE CASCADE,
		base_value INTEGER NOT NULL,
		effort     INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (pokemon_id, stat_id)
	)`},
}

// Tables returns the managed table names in foreign-key order.
func Tables() []string {
	names := make([]string, len(tableDDL))
	for i, t := range tableDDL {
		names[i] = t.name
	}
	return names
}

// EnsureSchema creates whichever managed tables are missing from the public
// schema. After one successful call later calls return immediately.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r.schemaReady.Load() {
		return nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_name = ANY($1)`, Tables())
	if err != nil {
		return fmt.Errorf("inspect tables: %w", err)
	}

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan table name: %w", err)
		}
		existing[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect tables: %w", err)
	}

	var missing []string
	for _, t := range tableDDL {
		if !existing[t.name] {
			missing = append(missing, t.name)
		}
	}

	if len(missing) == 0 {
		r.schemaReady.Store(true)
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range tableDDL {
		if existing[t.name] {
			continue
		}
		if _, err := tx.Exec(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}

	r.logger.Info().Strs("tables", missing).Msg("Created missing tables")
	r.schemaReady.Store(true)
	return nil
}
