package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrTemplateNotFound = errors.New("template not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add inserts the template and its items. Item sort order follows the
// slice order of the request.
func (r *Repo) Add(ctx context.Context, template Template) (_ *Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO workout_template (vault_id, name, sort_order)
			VALUES ($1, $2, $3)
		RETURNING id;`,
		template.VaultID, template.Name, template.SortOrder,
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
	rows.Close()

	template.ID = id
	span.SetAttributes(attribute.Int64("template.id", id))

	for i := range template.Items {
		template.Items[i].TemplateID = id
		template.Items[i].SortOrder = i
		if err := r.addItem(ctx, &template.Items[i]); err != nil {
			return nil, fmt.Errorf("add template item %d: %w", i, err)
		}
	}

	return &template, nil
}

func (r *Repo) addItem(ctx context.Context, item *Item) error {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO template_item (template_id, exercise_id, sort_order, target_sets)
			VALUES ($1, $2, $3, $4)
		RETURNING id;`,
		item.TemplateID, item.ExerciseID, item.SortOrder, item.TargetSets,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return err
	}
	if !rows.Next() {
		return errors.New("unexpected error [no rows next]")
	}
	return rows.Scan(&item.ID)
}

func (r *Repo) Get(ctx context.Context, vaultID string, id int64) (_ *Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, name, sort_order
			FROM workout_template
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
		return nil, ErrTemplateNotFound
	}

	var t Template
	if err := rows.Scan(&t.ID, &t.VaultID, &t.Name, &t.SortOrder); err != nil {
		return nil, err
	}
	rows.Close()

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list template items: %w", err)
	}
	t.Items = items

	return &t, nil
}

func (r *Repo) listItems(ctx context.Context, templateID int64) ([]Item, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, template_id, exercise_id, sort_order, target_sets
			FROM template_item
			WHERE template_id = $1
			ORDER BY sort_order;`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.ExerciseID, &item.SortOrder, &item.TargetSets); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if items == nil {
		items = make([]Item, 0)
	}
	return items, nil
}

func (r *Repo) List(ctx context.Context, vaultID string) (_ []Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, vault_id, name, sort_order
			FROM workout_template
			WHERE vault_id = $1
			ORDER BY sort_order, name;`,
		vaultID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var all []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.VaultID, &t.Name, &t.SortOrder); err != nil {
			return nil, err
		}
		all = append(all, t)
	}
	rows.Close()

	for i := range all {
		items, err := r.listItems(ctx, all[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list items for template %d: %w", all[i].ID, err)
		}
		all[i].Items = items
	}

	if all == nil {
		all = make([]Template, 0)
	}
	return all, nil
}

// Update replaces the template row and all its items.
func (r *Repo) Update(ctx context.Context, template *Template) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", template.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_template SET name = $1, sort_order = $2
			WHERE id = $3 AND vault_id = $4;`,
		template.Name, template.SortOrder, template.ID, template.VaultID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM template_item WHERE template_id = $1;`, template.ID); err != nil {
		return fmt.Errorf("delete old template items: %w", err)
	}
	for i := range template.Items {
		template.Items[i].TemplateID = template.ID
		template.Items[i].SortOrder = i
		if err := r.addItem(ctx, &template.Items[i]); err != nil {
			return fmt.Errorf("add template item %d: %w", i, err)
		}
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, vaultID string, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_template WHERE id = $1 AND vault_id = $2;`,
		id, vaultID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
