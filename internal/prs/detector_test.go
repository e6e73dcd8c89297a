package prs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/exercises"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func newTestDetector(repo *repoMock) *Detector {
	d := NewDetector(repo)
	d.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return d
}

func TestCandidates(t *testing.T) {
	// a full REPS set raises both reps and weight candidates
	candidates := Candidates(exercises.ModalityReps, intPtr(8), floatPtr(60), nil)
	require.Len(t, candidates, 2)
	assert.Contains(t, candidates, Candidate{Type: TypeRepsMaxWeight, Value: 60})
	assert.Contains(t, candidates, Candidate{Type: TypeRepsMaxReps, Value: 8})

	// reps without weight raises only max-reps
	candidates = Candidates(exercises.ModalityReps, intPtr(12), nil, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, TypeRepsMaxReps, candidates[0].Type)

	candidates = Candidates(exercises.ModalityIsometric, nil, nil, intPtr(45))
	require.Len(t, candidates, 1)
	assert.Equal(t, Candidate{Type: TypeIsoMaxDuration, Value: 45}, candidates[0])

	// unlogged set raises nothing
	assert.Empty(t, Candidates(exercises.ModalityReps, nil, nil, nil))
	assert.Empty(t, Candidates(exercises.ModalityIsometric, nil, nil, nil))
}

func TestDetector_FirstValueIsAlwaysARecord(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPrsRepo()
	detector := newTestDetector(repo)

	events, err := detector.Evaluate(ctx, "vault1", 100, nil, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 60},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeRepsMaxWeight, events[0].Type)
	assert.InDelta(t, 60, events[0].Value, 0.001)

	best, err := repo.BestValue(ctx, "vault1", 100, TypeRepsMaxWeight)
	require.NoError(t, err)
	assert.InDelta(t, 60, best, 0.001)
}

func TestDetector_StrictlyGreaterOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPrsRepo()
	detector := newTestDetector(repo)

	_, err := detector.Evaluate(ctx, "vault1", 100, nil, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 60},
	})
	require.NoError(t, err)

	// a tie is not an improvement
	events, err := detector.Evaluate(ctx, "vault1", 100, nil, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 60},
	})
	require.NoError(t, err)
	assert.Empty(t, events)

	// neither is a regression
	events, err = detector.Evaluate(ctx, "vault1", 100, nil, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 55},
	})
	require.NoError(t, err)
	assert.Empty(t, events)

	// best value is untouched, and only the original event exists
	best, err := repo.BestValue(ctx, "vault1", 100, TypeRepsMaxWeight)
	require.NoError(t, err)
	assert.InDelta(t, 60, best, 0.001)
	assert.Len(t, repo.events, 1)

	events, err = detector.Evaluate(ctx, "vault1", 100, nil, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 62.5},
	})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestDetector_TypesAndVaultsIndependent(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPrsRepo()
	detector := newTestDetector(repo)

	setID := int64(77)
	events, err := detector.Evaluate(ctx, "vault1", 100, &setID, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 60},
		{Type: TypeRepsMaxReps, Value: 8},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotNil(t, events[0].SetID)
	assert.Equal(t, setID, *events[0].SetID)

	// more reps on a lighter weight still moves the reps record only
	events, err = detector.Evaluate(ctx, "vault1", 100, nil, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 40},
		{Type: TypeRepsMaxReps, Value: 12},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeRepsMaxReps, events[0].Type)

	// another vault starts from scratch
	events, err = detector.Evaluate(ctx, "vault2", 100, nil, []Candidate{
		{Type: TypeRepsMaxWeight, Value: 20},
	})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
