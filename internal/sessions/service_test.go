package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/exercises"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/prs"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/templates"
)

type templatesMock struct {
	templates map[int64]*templates.Template
}

func (m *templatesMock) Get(_ context.Context, vaultID string, id int64) (*templates.Template, error) {
	t, ok := m.templates[id]
	if !ok || t.VaultID != vaultID {
		return nil, templates.ErrTemplateNotFound
	}
	return t, nil
}

type detectorMock struct {
	evaluated []prs.Candidate
	events    []prs.Event
	err       error
}

func (m *detectorMock) Evaluate(_ context.Context, _ string, _ int64, _ *int64, candidates []prs.Candidate) ([]prs.Event, error) {
	m.evaluated = append(m.evaluated, candidates...)
	return m.events, m.err
}

func newTestService(repo *repoMock, tpls *templatesMock, detector *detectorMock) *Service {
	sydney, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		panic(err)
	}
	if tpls == nil {
		tpls = &templatesMock{templates: map[int64]*templates.Template{}}
	}
	if detector == nil {
		detector = &detectorMock{}
	}
	return NewService(repo, tpls, detector, sydney)
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func seedSession(t *testing.T, repo *repoMock, vaultID string) *Session {
	t.Helper()
	session, err := repo.AddSession(context.Background(), Session{
		VaultID:     vaultID,
		SessionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return session
}

func TestInstantiate(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	tpls := &templatesMock{templates: map[int64]*templates.Template{
		10: {
			ID:      10,
			VaultID: "vault1",
			Name:    "push day",
			Items: []templates.Item{
				{ID: 1, TemplateID: 10, ExerciseID: 100, SortOrder: 0, TargetSets: intPtr(4)},
				{ID: 2, TemplateID: 10, ExerciseID: 200, SortOrder: 1},
			},
		},
	}}
	svc := newTestService(repo, tpls, nil)

	session, err := svc.Instantiate(ctx, "vault1", InstantiateParams{
		TemplateID:  10,
		SessionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Len(t, session.Entries, 2)

	assert.Equal(t, int64(100), session.Entries[0].ExerciseID)
	assert.Equal(t, 0, session.Entries[0].SortOrder)
	assert.Len(t, session.Entries[0].Sets, 4)

	// second item has no target sets, falls back to the default
	assert.Equal(t, int64(200), session.Entries[1].ExerciseID)
	assert.Len(t, session.Entries[1].Sets, DefaultSeedSets)

	// every seeded set is unlogged, indices 1-based and dense
	for _, entry := range session.Entries {
		for i, set := range entry.Sets {
			assert.Equal(t, i+1, set.SetIndex)
			assert.False(t, set.Logged())
		}
	}
}

func TestInstantiate_StampsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	tpls := &templatesMock{templates: map[int64]*templates.Template{
		10: {ID: 10, VaultID: "vault1", Name: "push day"},
	}}
	svc := newTestService(repo, tpls, nil)
	now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	session, err := svc.Instantiate(ctx, "vault1", InstantiateParams{
		TemplateID:  10,
		SessionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, now, session.CreatedAt)

	// the repo persists created_at verbatim, it must reach it non-zero
	stored, err := repo.GetSession(ctx, "vault1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, now, stored.CreatedAt)
}

func TestInstantiate_EmptyTemplate(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	tpls := &templatesMock{templates: map[int64]*templates.Template{
		10: {ID: 10, VaultID: "vault1", Name: "rest day"},
	}}
	svc := newTestService(repo, tpls, nil)

	session, err := svc.Instantiate(ctx, "vault1", InstantiateParams{
		TemplateID:  10,
		SessionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, session.Entries)
}

func TestInstantiate_WrongVault(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	tpls := &templatesMock{templates: map[int64]*templates.Template{
		10: {ID: 10, VaultID: "vault1"},
	}}
	svc := newTestService(repo, tpls, nil)

	_, err := svc.Instantiate(ctx, "vault2", InstantiateParams{
		TemplateID:  10,
		SessionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, templates.ErrTemplateNotFound)
}

func TestInstantiate_CompensatesOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	// first item seeds no sets so the session and two entries are already
	// created before the first AddSet call fails
	tpls := &templatesMock{templates: map[int64]*templates.Template{
		10: {
			ID:      10,
			VaultID: "vault1",
			Items: []templates.Item{
				{ID: 1, TemplateID: 10, ExerciseID: 100, SortOrder: 0, TargetSets: intPtr(0)},
				{ID: 2, TemplateID: 10, ExerciseID: 200, SortOrder: 1, TargetSets: intPtr(3)},
			},
		},
	}}
	svc := newTestService(repo, tpls, nil)

	repo.FailOn["AddSet"] = true

	_, err := svc.Instantiate(ctx, "vault1", InstantiateParams{
		TemplateID:  10,
		SessionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTestInduced)

	// everything created before the failure was undone
	assert.Empty(t, repo.sessions)
	assert.Empty(t, repo.entries)
	assert.Empty(t, repo.sets)
}

func TestInstantiate_OriginalErrorSurvivesFailedUndo(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	tpls := &templatesMock{templates: map[int64]*templates.Template{
		10: {
			ID:      10,
			VaultID: "vault1",
			Items: []templates.Item{
				{ID: 1, TemplateID: 10, ExerciseID: 100, SortOrder: 0, TargetSets: intPtr(1)},
			},
		},
	}}
	svc := newTestService(repo, tpls, nil)

	repo.FailOn["AddSet"] = true
	repo.FailOn["DeleteSession"] = true

	_, err := svc.Instantiate(ctx, "vault1", InstantiateParams{
		TemplateID:  10,
		SessionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	// the undo failure is swallowed, the caller sees the original error
	assert.ErrorIs(t, err, errTestInduced)
}

func TestSaveSet_Reps(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")
	entry, err := repo.AddEntry(ctx, Entry{SessionID: session.ID, ExerciseID: 100})
	require.NoError(t, err)
	set, err := repo.AddSet(ctx, Set{EntryID: entry.ID, SetIndex: 1})
	require.NoError(t, err)

	result, err := svc.SaveSet(ctx, "vault1", session.ID, set.ID, SetPatch{
		Reps:     intPtr(8),
		WeightKg: floatPtr(60),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Set.Reps)
	assert.Equal(t, 8, *result.Set.Reps)
	require.NotNil(t, result.Set.WeightKg)
	assert.InDelta(t, 60, *result.Set.WeightKg, 0.001)
	assert.Nil(t, result.Set.DurationSec)

	// a later patch with only weight preserves the stored reps
	result, err = svc.SaveSet(ctx, "vault1", session.ID, set.ID, SetPatch{
		WeightKg: floatPtr(62.5),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Set.Reps)
	assert.Equal(t, 8, *result.Set.Reps)
	assert.InDelta(t, 62.5, *result.Set.WeightKg, 0.001)
}

func TestSaveSet_ModalityShapeEnforced(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")

	repsEntry, err := repo.AddEntry(ctx, Entry{SessionID: session.ID, ExerciseID: 100})
	require.NoError(t, err)
	repsSet, err := repo.AddSet(ctx, Set{EntryID: repsEntry.ID, SetIndex: 1})
	require.NoError(t, err)

	repo.SetModality(200, exercises.ModalityIsometric)
	isoEntry, err := repo.AddEntry(ctx, Entry{SessionID: session.ID, ExerciseID: 200})
	require.NoError(t, err)
	isoSet, err := repo.AddSet(ctx, Set{EntryID: isoEntry.ID, SetIndex: 1})
	require.NoError(t, err)

	_, err = svc.SaveSet(ctx, "vault1", session.ID, repsSet.ID, SetPatch{DurationSec: intPtr(30)})
	assert.ErrorIs(t, err, ErrDurationOnRepsSet)

	_, err = svc.SaveSet(ctx, "vault1", session.ID, isoSet.ID, SetPatch{Reps: intPtr(10)})
	assert.ErrorIs(t, err, ErrRepsOnIsometricSet)

	_, err = svc.SaveSet(ctx, "vault1", session.ID, repsSet.ID, SetPatch{
		Reps:        intPtr(5),
		DurationSec: intPtr(30),
	})
	assert.ErrorIs(t, err, ErrRepsAndDuration)

	result, err := svc.SaveSet(ctx, "vault1", session.ID, isoSet.ID, SetPatch{DurationSec: intPtr(45)})
	require.NoError(t, err)
	require.NotNil(t, result.Set.DurationSec)
	assert.Equal(t, 45, *result.Set.DurationSec)
	assert.Nil(t, result.Set.Reps)
	assert.Nil(t, result.Set.WeightKg)
}

func TestSaveSet_Bounds(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")
	entry, err := repo.AddEntry(ctx, Entry{SessionID: session.ID, ExerciseID: 100})
	require.NoError(t, err)
	set, err := repo.AddSet(ctx, Set{EntryID: entry.ID, SetIndex: 1})
	require.NoError(t, err)

	_, err = svc.SaveSet(ctx, "vault1", session.ID, set.ID, SetPatch{Reps: intPtr(MaxReps + 1)})
	assert.Error(t, err)
	_, err = svc.SaveSet(ctx, "vault1", session.ID, set.ID, SetPatch{Reps: intPtr(-1)})
	assert.Error(t, err)
	_, err = svc.SaveSet(ctx, "vault1", session.ID, set.ID, SetPatch{WeightKg: floatPtr(MaxWeightKg + 0.5)})
	assert.Error(t, err)
}

func TestSaveSet_EvaluatesPrs(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	detector := &detectorMock{events: []prs.Event{{ID: 1, Type: prs.TypeRepsMaxWeight}}}
	svc := newTestService(repo, nil, detector)

	session := seedSession(t, repo, "vault1")
	entry, err := repo.AddEntry(ctx, Entry{SessionID: session.ID, ExerciseID: 100})
	require.NoError(t, err)
	set, err := repo.AddSet(ctx, Set{EntryID: entry.ID, SetIndex: 1})
	require.NoError(t, err)

	result, err := svc.SaveSet(ctx, "vault1", session.ID, set.ID, SetPatch{
		Reps:     intPtr(5),
		WeightKg: floatPtr(100),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, detector.evaluated)
	assert.Len(t, result.PrEvents, 1)
}

func TestAddExercise_AppendsAtEnd(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")

	first, err := svc.AddExercise(ctx, "vault1", session.ID, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, first.SortOrder)
	assert.Len(t, first.Sets, DefaultSeedSets)

	second, err := svc.AddExercise(ctx, "vault1", session.ID, 200, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, second.SortOrder)
	assert.Len(t, second.Sets, 2)
}

func TestRemoveExercise_LoggedSetGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")
	entry, err := svc.AddExercise(ctx, "vault1", session.ID, 100, 2)
	require.NoError(t, err)

	_, err = svc.SaveSet(ctx, "vault1", session.ID, entry.Sets[0].ID, SetPatch{Reps: intPtr(5)})
	require.NoError(t, err)

	err = svc.RemoveExercise(ctx, "vault1", session.ID, entry.ID)
	assert.ErrorIs(t, err, ErrEntryHasLoggedSets)

	// an entry with only unlogged sets goes away together with its sets
	empty, err := svc.AddExercise(ctx, "vault1", session.ID, 200, 2)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveExercise(ctx, "vault1", session.ID, empty.ID))
	sets, err := repo.ListSets(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestDeleteSet_LoggedGuardAndIndexing(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")
	entry, err := svc.AddExercise(ctx, "vault1", session.ID, 100, 2)
	require.NoError(t, err)

	added, err := svc.AddSet(ctx, "vault1", session.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, added.SetIndex)

	_, err = svc.SaveSet(ctx, "vault1", session.ID, added.ID, SetPatch{Reps: intPtr(5)})
	require.NoError(t, err)
	err = svc.DeleteSet(ctx, "vault1", session.ID, added.ID)
	assert.ErrorIs(t, err, ErrSetIsLogged)

	require.NoError(t, svc.DeleteSet(ctx, "vault1", session.ID, entry.Sets[1].ID))

	// after deleting set 2, a new set continues after the highest index
	next, err := svc.AddSet(ctx, "vault1", session.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, next.SetIndex)
}

func TestMoveEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")
	a, err := svc.AddExercise(ctx, "vault1", session.ID, 100, 0)
	require.NoError(t, err)
	b, err := svc.AddExercise(ctx, "vault1", session.ID, 200, 0)
	require.NoError(t, err)
	c, err := svc.AddExercise(ctx, "vault1", session.ID, 300, 0)
	require.NoError(t, err)

	order := func() []int64 {
		entries, err := repo.ListEntries(ctx, session.ID)
		require.NoError(t, err)
		ids := make([]int64, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		return ids
	}

	require.NoError(t, svc.MoveEntry(ctx, "vault1", session.ID, b.ID, MoveUp))
	assert.Equal(t, []int64{b.ID, a.ID, c.ID}, order())

	require.NoError(t, svc.MoveEntry(ctx, "vault1", session.ID, a.ID, MoveDown))
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, order())

	// first up and last down are no-ops
	require.NoError(t, svc.MoveEntry(ctx, "vault1", session.ID, b.ID, MoveUp))
	require.NoError(t, svc.MoveEntry(ctx, "vault1", session.ID, a.ID, MoveDown))
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, order())
}

func TestSetBodyWeight(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")

	require.NoError(t, svc.SetBodyWeight(ctx, "vault1", session.ID, floatPtr(82.5)))

	err := svc.SetBodyWeight(ctx, "vault1", session.ID, floatPtr(10))
	assert.ErrorIs(t, err, ErrBodyWeightOutOfRange)
	err = svc.SetBodyWeight(ctx, "vault1", session.ID, floatPtr(500))
	assert.ErrorIs(t, err, ErrBodyWeightOutOfRange)

	// nil clears
	require.NoError(t, svc.SetBodyWeight(ctx, "vault1", session.ID, nil))
	got, err := repo.GetSession(ctx, "vault1", session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BodyWeightKg)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")
	entry, err := svc.AddExercise(ctx, "vault1", session.ID, 100, 2)
	require.NoError(t, err)

	// a logged set does not guard a discard
	_, err = svc.SaveSet(ctx, "vault1", session.ID, entry.Sets[0].ID, SetPatch{Reps: intPtr(5)})
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, "vault1", session.ID))
	assert.Empty(t, repo.sessions)
	assert.Empty(t, repo.entries)
	assert.Empty(t, repo.sets)

	err = svc.Discard(ctx, "vault1", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVaultScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")
	entry, err := svc.AddExercise(ctx, "vault1", session.ID, 100, 1)
	require.NoError(t, err)

	_, err = svc.Get(ctx, "vault2", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.SaveSet(ctx, "vault2", session.ID, entry.Sets[0].ID, SetPatch{Reps: intPtr(5)})
	assert.ErrorIs(t, err, ErrSetNotFound)
	err = svc.Discard(ctx, "vault2", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
