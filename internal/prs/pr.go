package prs

import "time"

// Type of personal record tracked per (vault, exercise).
type Type string

const (
	TypeRepsMaxWeight  Type = "REPS_MAX_WEIGHT"
	TypeRepsMaxReps    Type = "REPS_MAX_REPS"
	TypeIsoMaxDuration Type = "ISO_MAX_DURATION"
)

// ExercisePR is the current best value for one (vault, exercise, pr type).
type ExercisePR struct {
	ID         int64     `json:"id"`
	VaultID    string    `json:"vaultId"`
	ExerciseID int64     `json:"exerciseId"`
	Type       Type      `json:"type"`
	BestValue  float64   `json:"bestValue"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Event is the immutable record of one PR improvement.
type Event struct {
	ID         int64     `json:"id"`
	VaultID    string    `json:"vaultId"`
	ExerciseID int64     `json:"exerciseId"`
	Type       Type      `json:"type"`
	Value      float64   `json:"value"`
	SetID      *int64    `json:"setId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Candidate is one potential PR raised by a saved set.
type Candidate struct {
	Type  Type
	Value float64
}
