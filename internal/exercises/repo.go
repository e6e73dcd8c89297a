package exercises

import (
	"context"
	"errors"
	"fmt"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrExerciseNotFound = errors.New("exercise not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO exercise (vault_id, name, modality, uses_bodyweight, created_at)
				VALUES ($1, $2, $3, $4, $5)
			RETURNING id;`,
		exercise.VaultID, exercise.Name, exercise.Modality, exercise.UsesBodyweight, exercise.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int64
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int64("exercise.id", id))

	exercise.ID = id
	return &exercise, nil
}

func (r *Repo) Update(ctx context.Context, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", exercise.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET name = $1, modality = $2, uses_bodyweight = $3
			WHERE id = $4 AND vault_id = $5;`,
		exercise.Name, exercise.Modality, exercise.UsesBodyweight, exercise.ID, exercise.VaultID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, vaultID string, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise WHERE id = $1 AND vault_id = $2;`,
		id, vaultID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, vaultID string, id int64) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, name, modality, uses_bodyweight, created_at
			FROM exercise
			WHERE id = $1 AND vault_id = $2;`,
		id, vaultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := r.rows2exercises(rows)
	if err != nil {
		return nil, err
	}

	if len(all) != 1 {
		return nil, ErrExerciseNotFound
	}

	return &all[0], nil
}

func (r *Repo) List(ctx context.Context, vaultID string) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, name, modality, uses_bodyweight, created_at
			FROM exercise
			WHERE vault_id = $1
			ORDER BY name;`,
		vaultID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2exercises(rows)
}

func (r *Repo) ListTargetLinks(ctx context.Context, vaultID string, exerciseID int64) (_ []TargetLink, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.listtargetlinks")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("exercise.id", exerciseID))

	rows, err := r.db.Query(
		ctx,
		`SELECT et.id, et.exercise_id, et.target_id, et.role, et.confidence
			FROM exercise_target et
			JOIN exercise e ON e.id = et.exercise_id
			WHERE et.exercise_id = $1 AND e.vault_id = $2
			ORDER BY et.id;`,
		exerciseID, vaultID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var links []TargetLink
	for rows.Next() {
		var l TargetLink
		if err := rows.Scan(&l.ID, &l.ExerciseID, &l.TargetID, &l.Role, &l.Confidence); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if links == nil {
		links = make([]TargetLink, 0)
	}
	return links, nil
}

// UpsertTargetLink inserts or overwrites the link for (exercise, target).
func (r *Repo) UpsertTargetLink(ctx context.Context, link TargetLink) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.upserttargetlink")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO exercise_target (exercise_id, target_id, role, confidence)
			VALUES ($1, $2, $3, $4)
		ON CONFLICT (exercise_id, target_id)
			DO UPDATE SET role = $3, confidence = $4;`,
		link.ExerciseID, link.TargetID, link.Role, link.Confidence,
	)
	return err
}

func (r *Repo) DeleteTargetLinks(ctx context.Context, exerciseID int64, targetIDs []int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.deletetargetlinks")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if len(targetIDs) == 0 {
		return nil
	}

	_, err = r.db.Exec(
		ctx,
		`DELETE FROM exercise_target WHERE exercise_id = $1 AND target_id = ANY($2);`,
		exerciseID, targetIDs,
	)
	return err
}

func (r *Repo) rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	var all []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.VaultID, &e.Name, &e.Modality, &e.UsesBodyweight, &e.CreatedAt); err != nil {
			return nil, err
		}
		all = append(all, e)
	}

	if all == nil {
		all = make([]Exercise, 0)
	}
	return all, nil
}
