package exercises

import (
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/targets"
)

// Modality is a closed set: every validation, PR detection and aggregation
// switch over it must stay exhaustive, so adding a third modality is a
// compile-surfaced change, not a silent fallthrough.
type Modality string

const (
	ModalityReps      Modality = "REPS"
	ModalityIsometric Modality = "ISOMETRIC"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityReps, ModalityIsometric:
		return true
	}
	return false
}

type Exercise struct {
	ID             int64     `json:"id"`
	VaultID        string    `json:"vaultId"`
	Name           string    `json:"name"`
	Modality       Modality  `json:"modality"`
	UsesBodyweight bool      `json:"usesBodyweight"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TargetLink assigns one anatomical target to an exercise. Muscle group
// targets carry a role, tendon targets carry a confidence - never both.
type TargetLink struct {
	ID         int64               `json:"id"`
	ExerciseID int64               `json:"exerciseId"`
	TargetID   int64               `json:"targetId"`
	Role       *targets.Role       `json:"role,omitempty"`
	Confidence *targets.Confidence `json:"confidence,omitempty"`
}

func (l TargetLink) Validate() error {
	if l.Role != nil && l.Confidence != nil {
		return ErrLinkRoleAndConfidence
	}
	if l.Role == nil && l.Confidence == nil {
		return ErrLinkRoleOrConfidenceMissing
	}
	if l.Role != nil && !l.Role.Valid() {
		return ErrLinkInvalidRole
	}
	if l.Confidence != nil && !l.Confidence.Valid() {
		return ErrLinkInvalidConfidence
	}
	return nil
}
