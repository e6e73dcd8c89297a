package targets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrTargetNotFound = errors.New("anatomical target not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, target AnatomicalTarget) (_ *AnatomicalTarget, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.targets.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO anatomical_target (vault_id, kind, name, slug, parent_id)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id;`,
		target.VaultID, target.Kind, target.Name, target.Slug, target.ParentID,
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

	target.ID = id
	return &target, nil
}

func (r *Repo) Get(ctx context.Context, vaultID string, id int64) (_ *AnatomicalTarget, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.targets.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, kind, name, slug, parent_id
			FROM anatomical_target
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

	all, err := r.rows2targets(rows)
	if err != nil {
		return nil, err
	}
	if len(all) != 1 {
		return nil, ErrTargetNotFound
	}
	return &all[0], nil
}

// List returns the vault's anatomical targets, optionally filtered by kind.
func (r *Repo) List(ctx context.Context, vaultID string, kind Kind) (_ []AnatomicalTarget, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.targets.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("kind", string(kind)))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, kind, name, slug, parent_id
			FROM anatomical_target
			WHERE vault_id = $1
			AND ($2::text = '' OR kind = $2)
			ORDER BY name;`,
		vaultID, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2targets(rows)
}

func (r *Repo) rows2targets(rows pgx.Rows) ([]AnatomicalTarget, error) {
	var all []AnatomicalTarget
	for rows.Next() {
		var t AnatomicalTarget
		if err := rows.Scan(&t.ID, &t.VaultID, &t.Kind, &t.Name, &t.Slug, &t.ParentID); err != nil {
			return nil, err
		}
		all = append(all, t)
	}

	if all == nil {
		all = make([]AnatomicalTarget, 0)
	}
	return all, nil
}
