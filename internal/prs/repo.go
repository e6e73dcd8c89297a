package prs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrPrNotFound = errors.New("personal record not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// BestValue returns the stored best for (vault, exercise, pr type), or
// ErrPrNotFound when no record exists yet.
func (r *Repo) BestValue(ctx context.Context, vaultID string, exerciseID int64, prType Type) (_ float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prs.bestvalue")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("exercise.id", exerciseID))
	span.SetAttributes(attribute.String("pr.type", string(prType)))

	rows, err := r.db.Query(
		ctx,
		`SELECT best_value FROM exercise_pr
			WHERE vault_id = $1 AND exercise_id = $2 AND pr_type = $3;`,
		vaultID, exerciseID, prType,
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return 0, err
	}
	if !rows.Next() {
		return 0, ErrPrNotFound
	}

	var best float64
	if err := rows.Scan(&best); err != nil {
		return 0, fmt.Errorf("rows scan: %w", err)
	}
	return best, nil
}

// UpsertBest overwrites the best value for (vault, exercise, pr type).
// Strictly-greater comparison happens in the Detector, not here.
func (r *Repo) UpsertBest(ctx context.Context, pr ExercisePR) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prs.upsertbest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO exercise_pr (vault_id, exercise_id, pr_type, best_value, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (vault_id, exercise_id, pr_type)
			DO UPDATE SET best_value = $4, updated_at = $5;`,
		pr.VaultID, pr.ExerciseID, pr.Type, pr.BestValue, pr.UpdatedAt,
	)
	return err
}

func (r *Repo) AddEvent(ctx context.Context, event Event) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prs.addevent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO pr_event (vault_id, exercise_id, pr_type, value, set_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6);`,
		event.VaultID, event.ExerciseID, event.Type, event.Value, event.SetID, event.CreatedAt,
	)
	return err
}

func (r *Repo) List(ctx context.Context, vaultID string) (_ []ExercisePR, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prs.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, exercise_id, pr_type, best_value, updated_at
			FROM exercise_pr
			WHERE vault_id = $1
			ORDER BY exercise_id, pr_type;`,
		vaultID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var all []ExercisePR
	for rows.Next() {
		var pr ExercisePR
		if err := rows.Scan(&pr.ID, &pr.VaultID, &pr.ExerciseID, &pr.Type, &pr.BestValue, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		all = append(all, pr)
	}
	if all == nil {
		all = make([]ExercisePR, 0)
	}
	return all, nil
}

func (r *Repo) ListEvents(ctx context.Context, vaultID string) (_ []Event, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prs.listevents")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, exercise_id, pr_type, value, set_id, created_at
			FROM pr_event
			WHERE vault_id = $1
			ORDER BY created_at DESC;`,
		vaultID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var all []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.VaultID, &e.ExerciseID, &e.Type, &e.Value, &e.SetID, &e.CreatedAt); err != nil {
			return nil, err
		}
		all = append(all, e)
	}
	if all == nil {
		all = make([]Event, 0)
	}
	return all, nil
}
