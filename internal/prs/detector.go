package prs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/exercises"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type prsRepo interface {
	BestValue(ctx context.Context, vaultID string, exerciseID int64, prType Type) (float64, error)
	UpsertBest(ctx context.Context, pr ExercisePR) error
	AddEvent(ctx context.Context, event Event) error
}

type Detector struct {
	repo prsRepo
	now  func() time.Time
}

func NewDetector(repo prsRepo) *Detector {
	return &Detector{
		repo: repo,
		now:  time.Now,
	}
}

// Candidates derives the PR candidates a logged set raises. REPS sets can
// raise max-weight and max-reps independently, ISOMETRIC sets raise
// max-duration. An unlogged set raises nothing.
func Candidates(modality exercises.Modality, reps *int, weightKg *float64, durationSec *int) []Candidate {
	var candidates []Candidate
	switch modality {
	case exercises.ModalityReps:
		if weightKg != nil {
			candidates = append(candidates, Candidate{Type: TypeRepsMaxWeight, Value: *weightKg})
		}
		if reps != nil {
			candidates = append(candidates, Candidate{Type: TypeRepsMaxReps, Value: float64(*reps)})
		}
	case exercises.ModalityIsometric:
		if durationSec != nil {
			candidates = append(candidates, Candidate{Type: TypeIsoMaxDuration, Value: float64(*durationSec)})
		}
	}
	return candidates
}

// Evaluate compares each candidate against the stored best and records an
// improvement when the candidate is strictly greater (or no best exists).
// Ties are not improvements. Returns the recorded events.
func (d *Detector) Evaluate(
	ctx context.Context,
	vaultID string,
	exerciseID int64,
	setID *int64,
	candidates []Candidate,
) (_ []Event, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "prs.detector.evaluate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("exercise.id", exerciseID))
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	var events []Event
	for _, candidate := range candidates {
		best, err := d.repo.BestValue(ctx, vaultID, exerciseID, candidate.Type)
		switch {
		case errors.Is(err, ErrPrNotFound):
			// no record yet, anything counts
		case err != nil:
			return events, fmt.Errorf("get best value [%s]: %w", candidate.Type, err)
		case candidate.Value <= best:
			continue
		}

		now := d.now()
		if err := d.repo.UpsertBest(ctx, ExercisePR{
			VaultID:    vaultID,
			ExerciseID: exerciseID,
			Type:       candidate.Type,
			BestValue:  candidate.Value,
			UpdatedAt:  now,
		}); err != nil {
			return events, fmt.Errorf("upsert best [%s]: %w", candidate.Type, err)
		}

		event := Event{
			VaultID:    vaultID,
			ExerciseID: exerciseID,
			Type:       candidate.Type,
			Value:      candidate.Value,
			SetID:      setID,
			CreatedAt:  now,
		}
		if err := d.repo.AddEvent(ctx, event); err != nil {
			return events, fmt.Errorf("add pr event [%s]: %w", candidate.Type, err)
		}

		log.Debugf("new PR [%s] for exercise %d: %.2f", candidate.Type, exerciseID, candidate.Value)
		events = append(events, event)
	}

	return events, nil
}
