package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/exercises"
)

// repoMock is an in-memory sessionsRepo used in tests.
type repoMock struct {
	mu        sync.Mutex
	nextID    int64
	sessions  map[int64]*Session
	entries   map[int64]*Entry
	sets      map[int64]*Set
	modalities map[int64]exercises.Modality // exercise id -> modality, set by tests

	// FailOn makes the named repo method return errTestInduced, for
	// exercising compensation paths.
	FailOn map[string]bool
}

func NewMockSessionsRepo() *repoMock {
	return &repoMock{
		nextID:     1,
		sessions:   make(map[int64]*Session),
		entries:    make(map[int64]*Entry),
		sets:       make(map[int64]*Set),
		modalities: make(map[int64]exercises.Modality),
		FailOn:     make(map[string]bool),
	}
}

type errInduced struct{}

func (errInduced) Error() string { return "induced test failure" }

var errTestInduced = errInduced{}

func (m *repoMock) fail(method string) bool {
	return m.FailOn[method]
}

func (m *repoMock) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *repoMock) AddSession(_ context.Context, session Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("AddSession") {
		return nil, errTestInduced
	}
	session.ID = m.id()
	m.sessions[session.ID] = &session
	out := session
	return &out, nil
}

func (m *repoMock) GetSession(_ context.Context, vaultID string, id int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("GetSession") {
		return nil, errTestInduced
	}
	s, ok := m.sessions[id]
	if !ok || s.VaultID != vaultID {
		return nil, ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (m *repoMock) DeleteSession(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("DeleteSession") {
		return errTestInduced
	}
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *repoMock) UpdateSessionTimes(_ context.Context, id int64, startedAt, finishedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("UpdateSessionTimes") {
		return errTestInduced
	}
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.StartedAt = startedAt
	s.FinishedAt = finishedAt
	return nil
}

func (m *repoMock) UpdateBodyWeight(_ context.Context, id int64, bodyWeightKg *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("UpdateBodyWeight") {
		return errTestInduced
	}
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.BodyWeightKg = bodyWeightKg
	return nil
}

func (m *repoMock) AddEntry(_ context.Context, entry Entry) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("AddEntry") {
		return nil, errTestInduced
	}
	entry.ID = m.id()
	entry.Sets = nil
	m.entries[entry.ID] = &entry
	out := entry
	return &out, nil
}

func (m *repoMock) ListEntries(_ context.Context, sessionID int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("ListEntries") {
		return nil, errTestInduced
	}
	var out []Entry
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			out = append(out, *e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *repoMock) DeleteEntry(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("DeleteEntry") {
		return errTestInduced
	}
	if _, ok := m.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *repoMock) UpdateEntrySortOrder(_ context.Context, id int64, sortOrder int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("UpdateEntrySortOrder") {
		return errTestInduced
	}
	e, ok := m.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	e.SortOrder = sortOrder
	return nil
}

func (m *repoMock) AddSet(_ context.Context, set Set) (*Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("AddSet") {
		return nil, errTestInduced
	}
	set.ID = m.id()
	m.sets[set.ID] = &set
	out := set
	return &out, nil
}

func (m *repoMock) ListSets(_ context.Context, entryID int64) ([]Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("ListSets") {
		return nil, errTestInduced
	}
	var out []Set
	for _, s := range m.sets {
		if s.EntryID == entryID {
			out = append(out, *s)
		}
	}
	sortSets(out)
	return out, nil
}

func (m *repoMock) GetSetContext(_ context.Context, vaultID string, sessionID, setID int64) (*SetContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("GetSetContext") {
		return nil, errTestInduced
	}
	set, ok := m.sets[setID]
	if !ok {
		return nil, ErrSetNotFound
	}
	entry, ok := m.entries[set.EntryID]
	if !ok || entry.SessionID != sessionID {
		return nil, ErrSetNotFound
	}
	session, ok := m.sessions[sessionID]
	if !ok || session.VaultID != vaultID {
		return nil, ErrSetNotFound
	}
	modality, ok := m.modalities[entry.ExerciseID]
	if !ok {
		modality = exercises.ModalityReps
	}
	return &SetContext{
		Set:        *set,
		SessionID:  sessionID,
		ExerciseID: entry.ExerciseID,
		Modality:   modality,
	}, nil
}

func (m *repoMock) UpdateSetValues(_ context.Context, setID int64, reps *int, weightKg *float64, durationSec *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("UpdateSetValues") {
		return errTestInduced
	}
	s, ok := m.sets[setID]
	if !ok {
		return ErrSetNotFound
	}
	s.Reps = reps
	s.WeightKg = weightKg
	s.DurationSec = durationSec
	return nil
}

func (m *repoMock) DeleteSet(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("DeleteSet") {
		return errTestInduced
	}
	if _, ok := m.sets[id]; !ok {
		return ErrSetNotFound
	}
	delete(m.sets, id)
	return nil
}

func (m *repoMock) DeleteSetsForEntry(_ context.Context, entryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail("DeleteSetsForEntry") {
		return errTestInduced
	}
	for id, s := range m.sets {
		if s.EntryID == entryID {
			delete(m.sets, id)
		}
	}
	return nil
}

// SetModality lets tests declare an exercise's modality, REPS when unset.
func (m *repoMock) SetModality(exerciseID int64, modality exercises.Modality) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modalities[exerciseID] = modality
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SortOrder < entries[j].SortOrder
	})
}

func sortSets(sets []Set) {
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].SetIndex < sets[j].SetIndex
	})
}
