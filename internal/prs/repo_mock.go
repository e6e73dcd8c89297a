package prs

import (
	"context"
	"fmt"
)

type repoMock struct {
	best   map[string]float64
	events []Event
}

func NewMockPrsRepo() *repoMock {
	return &repoMock{
		best: make(map[string]float64),
	}
}

func bestKey(vaultID string, exerciseID int64, prType Type) string {
	return fmt.Sprintf("%s/%d/%s", vaultID, exerciseID, prType)
}

func (r *repoMock) BestValue(_ context.Context, vaultID string, exerciseID int64, prType Type) (float64, error) {
	best, ok := r.best[bestKey(vaultID, exerciseID, prType)]
	if !ok {
		return 0, ErrPrNotFound
	}
	return best, nil
}

func (r *repoMock) UpsertBest(_ context.Context, pr ExercisePR) error {
	r.best[bestKey(pr.VaultID, pr.ExerciseID, pr.Type)] = pr.BestValue
	return nil
}

func (r *repoMock) AddEvent(_ context.Context, event Event) error {
	event.ID = int64(len(r.events) + 1)
	r.events = append(r.events, event)
	return nil
}
