package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/exercises"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/prs"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/templates"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type sessionsRepo interface {
	AddSession(ctx context.Context, session Session) (*Session, error)
	GetSession(ctx context.Context, vaultID string, id int64) (*Session, error)
	DeleteSession(ctx context.Context, id int64) error
	UpdateSessionTimes(ctx context.Context, id int64, startedAt, finishedAt *time.Time) error
	UpdateBodyWeight(ctx context.Context, id int64, bodyWeightKg *float64) error

	AddEntry(ctx context.Context, entry Entry) (*Entry, error)
	ListEntries(ctx context.Context, sessionID int64) ([]Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
	UpdateEntrySortOrder(ctx context.Context, id int64, sortOrder int) error

	AddSet(ctx context.Context, set Set) (*Set, error)
	ListSets(ctx context.Context, entryID int64) ([]Set, error)
	GetSetContext(ctx context.Context, vaultID string, sessionID, setID int64) (*SetContext, error)
	UpdateSetValues(ctx context.Context, setID int64, reps *int, weightKg *float64, durationSec *int) error
	DeleteSet(ctx context.Context, id int64) error
	DeleteSetsForEntry(ctx context.Context, entryID int64) error
}

type templateGetter interface {
	Get(ctx context.Context, vaultID string, id int64) (*templates.Template, error)
}

type prDetector interface {
	Evaluate(ctx context.Context, vaultID string, exerciseID int64, setID *int64, candidates []prs.Candidate) ([]prs.Event, error)
}

type Service struct {
	repo      sessionsRepo
	templates templateGetter
	detector  prDetector
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo sessionsRepo, templatesRepo templateGetter, detector prDetector, loc *time.Location) *Service {
	return &Service{
		repo:      repo,
		templates: templatesRepo,
		detector:  detector,
		loc:       loc,
		now:       time.Now,
	}
}

// Get returns a session with its entries and sets.
func (s *Service) Get(ctx context.Context, vaultID string, sessionID int64) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, vaultID, sessionID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	for i := range entries {
		sets, err := s.repo.ListSets(ctx, entries[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list sets for entry %d: %w", entries[i].ID, err)
		}
		entries[i].Sets = sets
	}
	session.Entries = entries

	return session, nil
}

type SaveSetResult struct {
	Set      Set         `json:"set"`
	PrEvents []prs.Event `json:"prEvents"`
}

// SaveSet validates and persists one set's logged values. Nil patch fields
// preserve the stored value; fields belonging to the other modality's shape
// are forced to null so a set can never carry both reps and duration.
func (s *Service) SaveSet(ctx context.Context, vaultID string, sessionID, setID int64, patch SetPatch) (_ *SaveSetResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.saveset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("set.id", setID))

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	sc, err := s.repo.GetSetContext(ctx, vaultID, sessionID, setID)
	if err != nil {
		return nil, err
	}

	var reps *int
	var weightKg *float64
	var durationSec *int
	switch sc.Modality {
	case exercises.ModalityReps:
		if patch.DurationSec != nil {
			return nil, ErrDurationOnRepsSet
		}
		reps = coalesceInt(patch.Reps, sc.Set.Reps)
		weightKg = coalesceFloat(patch.WeightKg, sc.Set.WeightKg)
	case exercises.ModalityIsometric:
		if patch.Reps != nil {
			return nil, ErrRepsOnIsometricSet
		}
		durationSec = coalesceInt(patch.DurationSec, sc.Set.DurationSec)
	default:
		return nil, fmt.Errorf("unknown exercise modality: %s", sc.Modality)
	}

	if err := s.repo.UpdateSetValues(ctx, setID, reps, weightKg, durationSec); err != nil {
		return nil, fmt.Errorf("update set values: %w", err)
	}

	result := &SaveSetResult{
		Set: Set{
			ID:          sc.Set.ID,
			EntryID:     sc.Set.EntryID,
			SetIndex:    sc.Set.SetIndex,
			Reps:        reps,
			WeightKg:    weightKg,
			DurationSec: durationSec,
		},
	}

	if result.Set.Logged() {
		candidates := prs.Candidates(sc.Modality, reps, weightKg, durationSec)
		events, err := s.detector.Evaluate(ctx, vaultID, sc.ExerciseID, &setID, candidates)
		if err != nil {
			// the set write went through, a failed PR evaluation must not undo it
			log.Errorf("failed to evaluate PRs for set %d: %s", setID, err)
		}
		result.PrEvents = events
	}

	return result, nil
}

// AddExercise appends an entry for the exercise at the end of the session
// and seeds it with unlogged sets.
func (s *Service) AddExercise(ctx context.Context, vaultID string, sessionID, exerciseID int64, numSets int) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.addexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if numSets <= 0 {
		numSets = DefaultSeedSets
	}

	if _, err := s.repo.GetSession(ctx, vaultID, sessionID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	sortOrder := 0
	for _, e := range entries {
		if e.SortOrder >= sortOrder {
			sortOrder = e.SortOrder + 1
		}
	}

	entry, err := s.repo.AddEntry(ctx, Entry{
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		SortOrder:  sortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}

	for i := 1; i <= numSets; i++ {
		set, err := s.repo.AddSet(ctx, Set{EntryID: entry.ID, SetIndex: i})
		if err != nil {
			return nil, fmt.Errorf("seed set %d: %w", i, err)
		}
		entry.Sets = append(entry.Sets, *set)
	}

	return entry, nil
}

// RemoveExercise deletes an entry and its sets, unless any set is logged.
func (s *Service) RemoveExercise(ctx context.Context, vaultID string, sessionID, entryID int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.removeexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entry, err := s.findEntry(ctx, vaultID, sessionID, entryID)
	if err != nil {
		return err
	}

	sets, err := s.repo.ListSets(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("list sets: %w", err)
	}
	for _, set := range sets {
		if set.Logged() {
			return ErrEntryHasLoggedSets
		}
	}

	if err := s.repo.DeleteSetsForEntry(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete sets: %w", err)
	}
	if err := s.repo.DeleteEntry(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// AddSet appends one unlogged set at the end of the entry.
func (s *Service) AddSet(ctx context.Context, vaultID string, sessionID, entryID int64) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.addset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entry, err := s.findEntry(ctx, vaultID, sessionID, entryID)
	if err != nil {
		return nil, err
	}

	sets, err := s.repo.ListSets(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	setIndex := 1
	for _, set := range sets {
		if set.SetIndex >= setIndex {
			setIndex = set.SetIndex + 1
		}
	}

	return s.repo.AddSet(ctx, Set{EntryID: entry.ID, SetIndex: setIndex})
}

// DeleteSet removes an unlogged set. Logged sets are never deleted.
func (s *Service) DeleteSet(ctx context.Context, vaultID string, sessionID, setID int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.deleteset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	sc, err := s.repo.GetSetContext(ctx, vaultID, sessionID, setID)
	if err != nil {
		return err
	}
	if sc.Set.Logged() {
		return ErrSetIsLogged
	}
	return s.repo.DeleteSet(ctx, setID)
}

// MoveEntry swaps the entry with its immediate neighbor in the requested
// direction. No-op when the entry is already first/last. The swap goes
// through a temporary out-of-range sort order so the unique
// (session, sort_order) constraint never sees both rows on one value.
func (s *Service) MoveEntry(ctx context.Context, vaultID string, sessionID, entryID int64, direction MoveDirection) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.moveentry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("direction", string(direction)))

	if !direction.Valid() {
		return fmt.Errorf("unknown move direction: %s", direction)
	}

	if _, err := s.repo.GetSession(ctx, vaultID, sessionID); err != nil {
		return err
	}

	entries, err := s.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	entryIdx := -1
	for i, e := range entries {
		if e.ID == entryID {
			entryIdx = i
			break
		}
	}
	if entryIdx == -1 {
		return ErrEntryNotFound
	}

	neighborIdx := entryIdx - 1
	if direction == MoveDown {
		neighborIdx = entryIdx + 1
	}
	if neighborIdx < 0 || neighborIdx >= len(entries) {
		return nil // already first/last
	}

	entry, neighbor := entries[entryIdx], entries[neighborIdx]

	const sentinelOrder = -1
	if err := s.repo.UpdateEntrySortOrder(ctx, entry.ID, sentinelOrder); err != nil {
		return fmt.Errorf("move entry to sentinel: %w", err)
	}
	if err := s.repo.UpdateEntrySortOrder(ctx, neighbor.ID, entry.SortOrder); err != nil {
		return fmt.Errorf("move neighbor: %w", err)
	}
	if err := s.repo.UpdateEntrySortOrder(ctx, entry.ID, neighbor.SortOrder); err != nil {
		return fmt.Errorf("move entry: %w", err)
	}
	return nil
}

// SetBodyWeight persists the session's bodyweight, nil clears it.
func (s *Service) SetBodyWeight(ctx context.Context, vaultID string, sessionID int64, bodyWeightKg *float64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.setbodyweight")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := ValidateBodyWeight(bodyWeightKg); err != nil {
		return err
	}
	if _, err := s.repo.GetSession(ctx, vaultID, sessionID); err != nil {
		return err
	}
	return s.repo.UpdateBodyWeight(ctx, sessionID, bodyWeightKg)
}

// Discard deletes the session and everything it owns: sets, then entries,
// then the session row. Unconditional - logged sets do not guard a discard.
func (s *Service) Discard(ctx context.Context, vaultID string, sessionID int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.discard")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := s.repo.GetSession(ctx, vaultID, sessionID); err != nil {
		return err
	}

	entries, err := s.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	for _, entry := range entries {
		if err := s.repo.DeleteSetsForEntry(ctx, entry.ID); err != nil {
			return fmt.Errorf("delete sets for entry %d: %w", entry.ID, err)
		}
		if err := s.repo.DeleteEntry(ctx, entry.ID); err != nil {
			return fmt.Errorf("delete entry %d: %w", entry.ID, err)
		}
	}

	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *Service) findEntry(ctx context.Context, vaultID string, sessionID, entryID int64) (*Entry, error) {
	if _, err := s.repo.GetSession(ctx, vaultID, sessionID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	for i := range entries {
		if entries[i].ID == entryID {
			return &entries[i], nil
		}
	}
	return nil, ErrEntryNotFound
}

func coalesceInt(patch, existing *int) *int {
	if patch != nil {
		return patch
	}
	return existing
}

func coalesceFloat(patch, existing *float64) *float64 {
	if patch != nil {
		return patch
	}
	return existing
}
