package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddSession(ctx context.Context, session Session) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.addsession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_session
				(vault_id, template_id, session_date, started_at, finished_at, body_weight_kg, notes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id;`,
		session.VaultID, session.TemplateID, session.SessionDate,
		session.StartedAt, session.FinishedAt, session.BodyWeightKg,
		session.Notes, session.CreatedAt,
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

	span.SetAttributes(attribute.Int64("session.id", id))

	session.ID = id
	return &session, nil
}

func (r *Repo) GetSession(ctx context.Context, vaultID string, id int64) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getsession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, template_id, session_date, started_at, finished_at, body_weight_kg, notes, created_at
			FROM workout_session
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
	if !rows.Next() {
		return nil, ErrSessionNotFound
	}

	var s Session
	if err := rows.Scan(
		&s.ID, &s.VaultID, &s.TemplateID, &s.SessionDate,
		&s.StartedAt, &s.FinishedAt, &s.BodyWeightKg, &s.Notes, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) DeleteSession(ctx context.Context, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.deletesession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_session WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *Repo) UpdateSessionTimes(ctx context.Context, id int64, startedAt, finishedAt *time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.updatetimes")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_session SET started_at = $1, finished_at = $2 WHERE id = $3;`,
		startedAt, finishedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *Repo) UpdateBodyWeight(ctx context.Context, id int64, bodyWeightKg *float64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.updatebodyweight")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_session SET body_weight_kg = $1 WHERE id = $2;`,
		bodyWeightKg, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *Repo) AddEntry(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.addentry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_entry (session_id, exercise_id, sort_order)
			VALUES ($1, $2, $3)
		RETURNING id;`,
		entry.SessionID, entry.ExerciseID, entry.SortOrder,
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

	if err := rows.Scan(&entry.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}
	return &entry, nil
}

func (r *Repo) ListEntries(ctx context.Context, sessionID int64) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.listentries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("session.id", sessionID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, session_id, exercise_id, sort_order
			FROM workout_entry
			WHERE session_id = $1
			ORDER BY sort_order;`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ExerciseID, &e.SortOrder); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if entries == nil {
		entries = make([]Entry, 0)
	}
	return entries, nil
}

func (r *Repo) DeleteEntry(ctx context.Context, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.deleteentry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_entry WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) UpdateEntrySortOrder(ctx context.Context, id int64, sortOrder int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.updateentrysortorder")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))
	span.SetAttributes(attribute.Int("sort_order", sortOrder))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_entry SET sort_order = $1 WHERE id = $2;`,
		sortOrder, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) AddSet(ctx context.Context, set Set) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.addset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_set (entry_id, set_index, reps, weight_kg, duration_sec)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id;`,
		set.EntryID, set.SetIndex, set.Reps, set.WeightKg, set.DurationSec,
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

	if err := rows.Scan(&set.ID); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}
	return &set, nil
}

func (r *Repo) ListSets(ctx context.Context, entryID int64) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.listsets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("entry.id", entryID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, entry_id, set_index, reps, weight_kg, duration_sec
			FROM workout_set
			WHERE entry_id = $1
			ORDER BY set_index;`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return rows2sets(rows)
}

// GetSetContext resolves a set and its owning entry, session and exercise
// modality in one vault-scoped lookup. Returns ErrSetNotFound when the set
// does not belong to the given session and vault.
func (r *Repo) GetSetContext(ctx context.Context, vaultID string, sessionID, setID int64) (_ *SetContext, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getsetcontext")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("set.id", setID))

	rows, err := r.db.Query(
		ctx,
		`SELECT s.id, s.entry_id, s.set_index, s.reps, s.weight_kg, s.duration_sec,
				we.session_id, we.exercise_id, e.modality
			FROM workout_set s
			JOIN workout_entry we ON we.id = s.entry_id
			JOIN workout_session ws ON ws.id = we.session_id
			JOIN exercise e ON e.id = we.exercise_id
			WHERE s.id = $1 AND we.session_id = $2 AND ws.vault_id = $3;`,
		setID, sessionID, vaultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, ErrSetNotFound
	}

	var sc SetContext
	if err := rows.Scan(
		&sc.Set.ID, &sc.Set.EntryID, &sc.Set.SetIndex,
		&sc.Set.Reps, &sc.Set.WeightKg, &sc.Set.DurationSec,
		&sc.SessionID, &sc.ExerciseID, &sc.Modality,
	); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (r *Repo) UpdateSetValues(ctx context.Context, setID int64, reps *int, weightKg *float64, durationSec *int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.updatesetvalues")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("set.id", setID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_set SET reps = $1, weight_kg = $2, duration_sec = $3 WHERE id = $4;`,
		reps, weightKg, durationSec, setID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

func (r *Repo) DeleteSet(ctx context.Context, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.deleteset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_set WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

func (r *Repo) DeleteSetsForEntry(ctx context.Context, entryID int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.deletesetsforentry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("entry.id", entryID))

	_, err = r.db.Exec(ctx, `DELETE FROM workout_set WHERE entry_id = $1;`, entryID)
	return err
}

func rows2sets(rows pgx.Rows) ([]Set, error) {
	var sets []Set
	for rows.Next() {
		var s Set
		if err := rows.Scan(&s.ID, &s.EntryID, &s.SetIndex, &s.Reps, &s.WeightKg, &s.DurationSec); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	if sets == nil {
		sets = make([]Set, 0)
	}
	return sets, nil
}
