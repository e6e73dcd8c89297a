package sessions

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/exercises"
)

const (
	MaxReps        = 1000
	MaxDurationSec = 14400 // 4 hours
	MaxWeightKg    = 2000

	MinBodyWeightKg = 20
	MaxBodyWeightKg = 250

	// sets seeded when an exercise is added to a session directly
	DefaultSeedSets = 3
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrSetNotFound     = errors.New("set not found")

	ErrEntryHasLoggedSets = errors.New("entry has logged sets and cannot be removed")
	ErrSetIsLogged        = errors.New("set is logged and cannot be deleted")

	ErrRepsAndDuration     = errors.New("reps and duration are mutually exclusive")
	ErrDurationOnRepsSet   = errors.New("duration not allowed for a REPS exercise")
	ErrRepsOnIsometricSet  = errors.New("reps not allowed for an ISOMETRIC exercise")
	ErrFinishBeforeStart   = errors.New("finish time cannot precede start time")
	ErrBodyWeightOutOfRange = fmt.Errorf("body weight must be between %d and %d kg", MinBodyWeightKg, MaxBodyWeightKg)
)

type Session struct {
	ID           int64      `json:"id"`
	VaultID      string     `json:"vaultId"`
	TemplateID   *int64     `json:"templateId,omitempty"`
	SessionDate  time.Time  `json:"sessionDate"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	BodyWeightKg *float64   `json:"bodyWeightKg,omitempty"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"createdAt"`

	Entries []Entry `json:"entries,omitempty"`
}

type Entry struct {
	ID         int64 `json:"id"`
	SessionID  int64 `json:"sessionId"`
	ExerciseID int64 `json:"exerciseId"`
	SortOrder  int   `json:"sortOrder"`

	Sets []Set `json:"sets,omitempty"`
}

// Set is in exactly one of three states: unlogged (all values nil),
// REPS-logged (reps and/or weight set, duration nil) or ISOMETRIC-logged
// (duration set, reps and weight nil). set_index is 1-based per entry.
type Set struct {
	ID          int64    `json:"id"`
	EntryID     int64    `json:"entryId"`
	SetIndex    int      `json:"setIndex"`
	Reps        *int     `json:"reps,omitempty"`
	WeightKg    *float64 `json:"weightKg,omitempty"`
	DurationSec *int     `json:"durationSec,omitempty"`
}

// Logged reports whether the set carries any logged value.
func (s Set) Logged() bool {
	return s.Reps != nil || s.WeightKg != nil || s.DurationSec != nil
}

// SetPatch carries the fields of a save-set request. A nil field means
// "preserve the existing value", never "clear it".
type SetPatch struct {
	Reps        *int     `json:"reps,omitempty"`
	WeightKg    *float64 `json:"weightKg,omitempty"`
	DurationSec *int     `json:"durationSec,omitempty"`
}

func (p SetPatch) Validate() error {
	if p.Reps != nil && p.DurationSec != nil {
		return ErrRepsAndDuration
	}
	if p.Reps != nil && (*p.Reps < 0 || *p.Reps > MaxReps) {
		return fmt.Errorf("reps must be between 0 and %d", MaxReps)
	}
	if p.DurationSec != nil && (*p.DurationSec < 0 || *p.DurationSec > MaxDurationSec) {
		return fmt.Errorf("duration must be between 0 and %d seconds", MaxDurationSec)
	}
	if p.WeightKg != nil {
		w := *p.WeightKg
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.New("weight must be a finite number")
		}
		if w < 0 || w > MaxWeightKg {
			return fmt.Errorf("weight must be between 0 and %d kg", MaxWeightKg)
		}
	}
	return nil
}

func ValidateBodyWeight(bodyWeightKg *float64) error {
	if bodyWeightKg == nil {
		return nil
	}
	w := *bodyWeightKg
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return ErrBodyWeightOutOfRange
	}
	if w < MinBodyWeightKg || w > MaxBodyWeightKg {
		return ErrBodyWeightOutOfRange
	}
	return nil
}

// SetContext resolves a set together with its owning entry, session and the
// exercise modality, as one vault-scoped lookup.
type SetContext struct {
	Set        Set
	SessionID  int64
	ExerciseID int64
	Modality   exercises.Modality
}

// MoveDirection of a reorder request.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

func (d MoveDirection) Valid() bool {
	return d == MoveUp || d == MoveDown
}
