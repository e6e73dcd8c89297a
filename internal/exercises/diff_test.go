package exercises

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/targets"
)

func rolePtr(r targets.Role) *targets.Role                   { return &r }
func confidencePtr(c targets.Confidence) *targets.Confidence { return &c }

func TestDiffTargetLinks(t *testing.T) {
	current := []TargetLink{
		{ExerciseID: 1, TargetID: 10, Role: rolePtr(targets.RolePrimary)},
		{ExerciseID: 1, TargetID: 20, Role: rolePtr(targets.RoleSecondary)},
		{ExerciseID: 1, TargetID: 30, Confidence: confidencePtr(targets.ConfidenceHigh)},
	}
	desired := []TargetLink{
		{ExerciseID: 1, TargetID: 10, Role: rolePtr(targets.RoleStabilizer)}, // role change
		{ExerciseID: 1, TargetID: 40, Role: rolePtr(targets.RolePrimary)},    // new link
	}

	diff := DiffTargetLinks(current, desired)

	// every desired link is upserted, role changes ride the upsert
	require.Len(t, diff.Upserts, 2)
	assert.Equal(t, int64(10), diff.Upserts[0].TargetID)
	assert.Equal(t, targets.RoleStabilizer, *diff.Upserts[0].Role)
	assert.Equal(t, int64(40), diff.Upserts[1].TargetID)

	// current links not desired anymore get deleted
	assert.ElementsMatch(t, []int64{20, 30}, diff.Deletes)
}

func TestDiffTargetLinks_EmptyDesiredDeletesAll(t *testing.T) {
	current := []TargetLink{
		{ExerciseID: 1, TargetID: 10, Role: rolePtr(targets.RolePrimary)},
		{ExerciseID: 1, TargetID: 20, Role: rolePtr(targets.RoleSecondary)},
	}

	diff := DiffTargetLinks(current, nil)
	assert.Empty(t, diff.Upserts)
	assert.ElementsMatch(t, []int64{10, 20}, diff.Deletes)
}

func TestDiffTargetLinks_NoCurrent(t *testing.T) {
	desired := []TargetLink{
		{ExerciseID: 1, TargetID: 10, Role: rolePtr(targets.RolePrimary)},
	}
	diff := DiffTargetLinks(nil, desired)
	assert.Len(t, diff.Upserts, 1)
	assert.Empty(t, diff.Deletes)
}

func TestTargetLinkValidate(t *testing.T) {
	valid := TargetLink{TargetID: 10, Role: rolePtr(targets.RolePrimary)}
	require.NoError(t, valid.Validate())
	valid = TargetLink{TargetID: 10, Confidence: confidencePtr(targets.ConfidenceLow)}
	require.NoError(t, valid.Validate())

	both := TargetLink{
		TargetID:   10,
		Role:       rolePtr(targets.RolePrimary),
		Confidence: confidencePtr(targets.ConfidenceHigh),
	}
	assert.ErrorIs(t, both.Validate(), ErrLinkRoleAndConfidence)

	neither := TargetLink{TargetID: 10}
	assert.ErrorIs(t, neither.Validate(), ErrLinkRoleOrConfidenceMissing)

	badRole := targets.Role("TERTIARY")
	assert.ErrorIs(t, TargetLink{TargetID: 10, Role: &badRole}.Validate(), ErrLinkInvalidRole)

	badConfidence := targets.Confidence("MAYBE")
	assert.ErrorIs(t, TargetLink{TargetID: 10, Confidence: &badConfidence}.Validate(), ErrLinkInvalidConfidence)
}
