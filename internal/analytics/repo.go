package analytics

import (
	"context"
	"fmt"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// Repo reads the weekly metric views. The views hold one row per
// (target, week, role/confidence) bucket, all folding happens in Go.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// ListMuscleRows returns the vault's raw weekly muscle buckets, optionally
// bounded by week start. week_start is a fixed-width ISO date, string
// comparison orders it correctly.
func (r *Repo) ListMuscleRows(ctx context.Context, vaultID, fromWeek, toWeek string) (_ []MuscleRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.analytics.listmusclerows")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("vault.id", vaultID))

	rows, err := r.db.Query(
		ctx,
		`SELECT target_id, target_name, week_start, role, set_count, reps, tonnage_kg
			FROM weekly_muscle_metrics
			WHERE vault_id = $1
			AND ($2::text = '' OR week_start >= $2)
			AND ($3::text = '' OR week_start <= $3)
			ORDER BY target_id, week_start;`,
		vaultID, fromWeek, toWeek,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var all []MuscleRow
	for rows.Next() {
		row := MuscleRow{VaultID: vaultID}
		if err := rows.Scan(
			&row.TargetID, &row.TargetName, &row.WeekStart,
			&row.Role, &row.SetCount, &row.Reps, &row.TonnageKg,
		); err != nil {
			return nil, err
		}
		all = append(all, row)
	}
	return all, nil
}

func (r *Repo) ListTendonRows(ctx context.Context, vaultID, fromWeek, toWeek string) (_ []TendonRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.analytics.listtendonrows")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("vault.id", vaultID))

	rows, err := r.db.Query(
		ctx,
		`SELECT target_id, target_name, week_start, confidence, set_count, iso_sec, iso_load_kg_sec
			FROM weekly_tendon_metrics
			WHERE vault_id = $1
			AND ($2::text = '' OR week_start >= $2)
			AND ($3::text = '' OR week_start <= $3)
			ORDER BY target_id, week_start;`,
		vaultID, fromWeek, toWeek,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var all []TendonRow
	for rows.Next() {
		row := TendonRow{VaultID: vaultID}
		if err := rows.Scan(
			&row.TargetID, &row.TargetName, &row.WeekStart,
			&row.Confidence, &row.SetCount, &row.IsoSec, &row.IsoLoadKgSec,
		); err != nil {
			return nil, err
		}
		all = append(all, row)
	}
	return all, nil
}
