package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS exercise (
	id              BIGSERIAL PRIMARY KEY,
	vault_id        UUID NOT NULL,
	name            TEXT NOT NULL,
	modality        TEXT NOT NULL CHECK (modality IN ('REPS', 'ISOMETRIC')),
	uses_bodyweight BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_exercise_vault ON exercise(vault_id);

CREATE TABLE IF NOT EXISTS anatomical_target (
	id        BIGSERIAL PRIMARY KEY,
	vault_id  UUID NOT NULL,
	kind      TEXT NOT NULL CHECK (kind IN ('MUSCLE_GROUP', 'TENDON')),
	name      TEXT NOT NULL,
	slug      TEXT NOT NULL,
	parent_id BIGINT REFERENCES anatomical_target(id),
	UNIQUE (vault_id, slug)
);

CREATE TABLE IF NOT EXISTS exercise_target (
	id          BIGSERIAL PRIMARY KEY,
	exercise_id BIGINT NOT NULL REFERENCES exercise(id) ON DELETE CASCADE,
	target_id   BIGINT NOT NULL REFERENCES anatomical_target(id),
	role        TEXT CHECK (role IN ('PRIMARY', 'SECONDARY', 'STABILIZER')),
	confidence  TEXT CHECK (confidence IN ('HIGH', 'MED', 'LOW')),
	UNIQUE (exercise_id, target_id)
);

CREATE TABLE IF NOT EXISTS workout_template (
	id         BIGSERIAL PRIMARY KEY,
	vault_id   UUID NOT NULL,
	name       TEXT NOT NULL,
	sort_order INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_workout_template_vault ON workout_template(vault_id);

CREATE TABLE IF NOT EXISTS template_item (
	id          BIGSERIAL PRIMARY KEY,
	template_id BIGINT NOT NULL REFERENCES workout_template(id) ON DELETE CASCADE,
	exercise_id BIGINT NOT NULL REFERENCES exercise(id),
	sort_order  INT NOT NULL,
	target_sets INT CHECK (target_sets >= 0)
);

CREATE TABLE IF NOT EXISTS workout_session (
	id             BIGSERIAL PRIMARY KEY,
	vault_id       UUID NOT NULL,
	template_id    BIGINT REFERENCES workout_template(id),
	session_date   DATE NOT NULL,
	started_at     TIMESTAMPTZ,
	finished_at    TIMESTAMPTZ,
	body_weight_kg NUMERIC CHECK (body_weight_kg BETWEEN 20 AND 250),
	notes          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_workout_session_vault_date ON workout_session(vault_id, session_date);

CREATE TABLE IF NOT EXISTS workout_entry (
	id          BIGSERIAL PRIMARY KEY,
	session_id  BIGINT NOT NULL REFERENCES workout_session(id),
	exercise_id BIGINT NOT NULL REFERENCES exercise(id),
	sort_order  INT NOT NULL,
	UNIQUE (session_id, sort_order)
);

CREATE TABLE IF NOT EXISTS workout_set (
	id           BIGSERIAL PRIMARY KEY,
	entry_id     BIGINT NOT NULL REFERENCES workout_entry(id),
	set_index    INT NOT NULL CHECK (set_index >= 1),
	reps         INT CHECK (reps >= 0 AND reps <= 1000),
	weight_kg    NUMERIC CHECK (weight_kg >= 0 AND weight_kg <= 2000),
	duration_sec INT CHECK (duration_sec >= 0 AND duration_sec <= 14400),
	CHECK (duration_sec IS NULL OR (reps IS NULL AND weight_kg IS NULL)),
	UNIQUE (entry_id, set_index)
);

CREATE TABLE IF NOT EXISTS exercise_pr (
	id          BIGSERIAL PRIMARY KEY,
	vault_id    UUID NOT NULL,
	exercise_id BIGINT NOT NULL REFERENCES exercise(id) ON DELETE CASCADE,
	pr_type     TEXT NOT NULL CHECK (pr_type IN ('REPS_MAX_WEIGHT', 'REPS_MAX_REPS', 'ISO_MAX_DURATION')),
	best_value  NUMERIC NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (vault_id, exercise_id, pr_type)
);

CREATE TABLE IF NOT EXISTS pr_event (
	id          BIGSERIAL PRIMARY KEY,
	vault_id    UUID NOT NULL,
	exercise_id BIGINT NOT NULL REFERENCES exercise(id) ON DELETE CASCADE,
	pr_type     TEXT NOT NULL,
	value       NUMERIC NOT NULL,
	set_id      BIGINT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE OR REPLACE VIEW weekly_muscle_metrics AS
SELECT
	ws.vault_id,
	at.id AS target_id,
	at.name AS target_name,
	to_char(date_trunc('week', ws.session_date), 'YYYY-MM-DD') AS week_start,
	et.role,
	COUNT(*) FILTER (WHERE s.reps IS NOT NULL OR s.weight_kg IS NOT NULL) AS set_count,
	COALESCE(SUM(s.reps), 0) AS reps,
	COALESCE(SUM(s.reps * s.weight_kg), 0) AS tonnage_kg
FROM workout_set s
JOIN workout_entry we ON we.id = s.entry_id
JOIN workout_session ws ON ws.id = we.session_id
JOIN exercise_target et ON et.exercise_id = we.exercise_id
JOIN anatomical_target at ON at.id = et.target_id AND at.kind = 'MUSCLE_GROUP'
GROUP BY ws.vault_id, at.id, at.name, date_trunc('week', ws.session_date), et.role;

CREATE OR REPLACE VIEW weekly_tendon_metrics AS
SELECT
	ws.vault_id,
	at.id AS target_id,
	at.name AS target_name,
	to_char(date_trunc('week', ws.session_date), 'YYYY-MM-DD') AS week_start,
	et.confidence,
	COUNT(*) FILTER (WHERE s.duration_sec IS NOT NULL) AS set_count,
	COALESCE(SUM(s.duration_sec), 0) AS iso_sec,
	COALESCE(SUM(s.duration_sec * CASE WHEN e.uses_bodyweight THEN ws.body_weight_kg END), 0) AS iso_load_kg_sec
FROM workout_set s
JOIN workout_entry we ON we.id = s.entry_id
JOIN workout_session ws ON ws.id = we.session_id
JOIN exercise e ON e.id = we.exercise_id
JOIN exercise_target et ON et.exercise_id = we.exercise_id
JOIN anatomical_target at ON at.id = et.target_id AND at.kind = 'TENDON'
GROUP BY ws.vault_id, at.id, at.name, date_trunc('week', ws.session_date), et.confidence;
`

// Migrate ensures tables and derived views exist. Call once at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
