package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

type InstantiateParams struct {
	TemplateID        int64
	SessionDate       time.Time
	StartedAt         string // local "HH:MM", empty to leave unset
	BodyWeightKg      *float64
	Notes             string
	DefaultTargetSets int // sets seeded for items without a target, <=0 means DefaultSeedSets
}

// Instantiate creates a session from a template: one entry per template
// item in template order, each seeded with the item's target number of
// unlogged sets. Creation is multi-step without a wrapping transaction, so
// on failure every row already created is compensated in reverse order.
// Undo failures are logged and swallowed, the caller always sees the
// original error.
func (s *Service) Instantiate(ctx context.Context, vaultID string, params InstantiateParams) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.instantiate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("template.id", params.TemplateID))

	if params.SessionDate.IsZero() {
		return nil, errors.New("session date is required")
	}
	defaultTargetSets := params.DefaultTargetSets
	if defaultTargetSets <= 0 {
		defaultTargetSets = DefaultSeedSets
	}

	tpl, err := s.templates.Get(ctx, vaultID, params.TemplateID)
	if err != nil {
		return nil, err
	}

	var startedAt *time.Time
	if params.StartedAt != "" {
		t, err := LocalInstant(params.SessionDate, params.StartedAt, s.loc)
		if err != nil {
			return nil, err
		}
		startedAt = &t
	}
	if err := ValidateBodyWeight(params.BodyWeightKg); err != nil {
		return nil, err
	}

	var undos []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		var undoErr error
		for i := len(undos) - 1; i >= 0; i-- {
			undoErr = multierr.Append(undoErr, undos[i](ctx))
		}
		if undoErr != nil {
			log.Errorf("failed to fully undo session instantiation: %s", undoErr)
		}
	}()

	session, err := s.repo.AddSession(ctx, Session{
		VaultID:      vaultID,
		TemplateID:   &tpl.ID,
		SessionDate:  params.SessionDate,
		StartedAt:    startedAt,
		BodyWeightKg: params.BodyWeightKg,
		Notes:        params.Notes,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("add session: %w", err)
	}
	undos = append(undos, func(ctx context.Context) error {
		return s.repo.DeleteSession(ctx, session.ID)
	})

	for _, item := range tpl.Items {
		entry, err := s.repo.AddEntry(ctx, Entry{
			SessionID:  session.ID,
			ExerciseID: item.ExerciseID,
			SortOrder:  item.SortOrder,
		})
		if err != nil {
			return nil, fmt.Errorf("add entry for exercise %d: %w", item.ExerciseID, err)
		}
		undos = append(undos, func(ctx context.Context) error {
			return s.repo.DeleteEntry(ctx, entry.ID)
		})

		numSets := defaultTargetSets
		if item.TargetSets != nil {
			numSets = *item.TargetSets
		}
		if numSets > 0 {
			undos = append(undos, func(ctx context.Context) error {
				return s.repo.DeleteSetsForEntry(ctx, entry.ID)
			})
		}
		for i := 1; i <= numSets; i++ {
			set, err := s.repo.AddSet(ctx, Set{EntryID: entry.ID, SetIndex: i})
			if err != nil {
				return nil, fmt.Errorf("seed set %d for entry %d: %w", i, entry.ID, err)
			}
			entry.Sets = append(entry.Sets, *set)
		}

		session.Entries = append(session.Entries, *entry)
	}

	return session, nil
}
