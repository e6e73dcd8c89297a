package targets

// Kind says what kind of anatomical structure a target describes.
type Kind string

const (
	KindMuscleGroup Kind = "MUSCLE_GROUP"
	KindTendon      Kind = "TENDON"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMuscleGroup, KindTendon:
		return true
	}
	return false
}

// Role of a muscle group within an exercise.
type Role string

const (
	RolePrimary    Role = "PRIMARY"
	RoleSecondary  Role = "SECONDARY"
	RoleStabilizer Role = "STABILIZER"
)

func (r Role) Valid() bool {
	switch r {
	case RolePrimary, RoleSecondary, RoleStabilizer:
		return true
	}
	return false
}

// Confidence of tendon exposure within an exercise.
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceMed  Confidence = "MED"
	ConfidenceLow  Confidence = "LOW"
)

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMed, ConfidenceLow:
		return true
	}
	return false
}

type AnatomicalTarget struct {
	ID       int64  `json:"id"`
	VaultID  string `json:"vaultId"`
	Kind     Kind   `json:"kind"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID *int64 `json:"parentId,omitempty"`
}
