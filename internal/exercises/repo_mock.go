package exercises

import (
	"context"
	"sort"
	"sync"
)

type repoMock struct {
	mu     sync.Mutex
	nextID int64
	all    map[int64]*Exercise
	links  map[int64]*TargetLink // keyed by link id
}

func NewMockExercisesRepo() *repoMock {
	return &repoMock{
		nextID: 1,
		all:    make(map[int64]*Exercise),
		links:  make(map[int64]*TargetLink),
	}
}

func (m *repoMock) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *repoMock) Add(_ context.Context, exercise Exercise) (*Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exercise.ID = m.id()
	m.all[exercise.ID] = &exercise
	out := exercise
	return &out, nil
}

func (m *repoMock) Get(_ context.Context, vaultID string, id int64) (*Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.all[id]
	if !ok || e.VaultID != vaultID {
		return nil, ErrExerciseNotFound
	}
	out := *e
	return &out, nil
}

func (m *repoMock) List(_ context.Context, vaultID string) ([]Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Exercise, 0)
	for _, e := range m.all {
		if e.VaultID == vaultID {
			all = append(all, *e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (m *repoMock) Update(_ context.Context, exercise *Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.all[exercise.ID]
	if !ok || e.VaultID != exercise.VaultID {
		return ErrExerciseNotFound
	}
	exercise.CreatedAt = e.CreatedAt
	m.all[exercise.ID] = exercise
	return nil
}

func (m *repoMock) Delete(_ context.Context, vaultID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.all[id]
	if !ok || e.VaultID != vaultID {
		return ErrExerciseNotFound
	}
	delete(m.all, id)
	return nil
}

func (m *repoMock) ListTargetLinks(_ context.Context, vaultID string, exerciseID int64) ([]TargetLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.all[exerciseID]
	if !ok || e.VaultID != vaultID {
		return []TargetLink{}, nil
	}
	links := make([]TargetLink, 0)
	for _, link := range m.links {
		if link.ExerciseID == exerciseID {
			links = append(links, *link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].TargetID < links[j].TargetID })
	return links, nil
}

func (m *repoMock) UpsertTargetLink(_ context.Context, link TargetLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.links {
		if existing.ExerciseID == link.ExerciseID && existing.TargetID == link.TargetID {
			existing.Role = link.Role
			existing.Confidence = link.Confidence
			return nil
		}
	}
	link.ID = m.id()
	m.links[link.ID] = &link
	return nil
}

func (m *repoMock) DeleteTargetLinks(_ context.Context, exerciseID int64, targetIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, link := range m.links {
		if link.ExerciseID != exerciseID {
			continue
		}
		for _, targetID := range targetIDs {
			if link.TargetID == targetID {
				delete(m.links, id)
				break
			}
		}
	}
	return nil
}
