package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sydney(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	return loc
}

func TestLocalInstant(t *testing.T) {
	loc := sydney(t)

	// winter: AEST, UTC+10
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := LocalInstant(day, "08:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "08:00", FormatLocal(got, loc))

	// summer: AEDT, UTC+11
	day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got, err = LocalInstant(day, "08:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 14, 21, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "08:00", FormatLocal(got, loc))

	_, err = LocalInstant(day, "8 am", loc)
	assert.Error(t, err)
	_, err = LocalInstant(day, "25:00", loc)
	assert.Error(t, err)
}

func TestLocalInstant_DSTTransition(t *testing.T) {
	loc := sydney(t)

	// Sydney springs forward on 2024-10-06: 02:00 AEST becomes 03:00 AEDT.
	// A time on that day after the switch resolves on the UTC+11 offset.
	day := time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC)
	got, err := LocalInstant(day, "08:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 5, 21, 0, 0, 0, time.UTC), got)

	// and one before the switch still resolves on UTC+10
	got, err = LocalInstant(day, "01:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 5, 15, 0, 0, 0, time.UTC), got)
}

func TestSetStartAndFinishTime(t *testing.T) {
	ctx := context.Background()
	repo := NewMockSessionsRepo()
	svc := newTestService(repo, nil, nil)

	session := seedSession(t, repo, "vault1")

	require.NoError(t, svc.SetStartTime(ctx, "vault1", session.ID, "08:00"))
	require.NoError(t, svc.SetFinishTime(ctx, "vault1", session.ID, "09:30"))

	got, err := repo.GetSession(ctx, "vault1", session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 90*time.Minute, got.FinishedAt.Sub(*got.StartedAt))

	// finish before start is rejected
	err = svc.SetFinishTime(ctx, "vault1", session.ID, "07:00")
	assert.ErrorIs(t, err, ErrFinishBeforeStart)

	// finish == start is fine, a zero-length session is not an error
	require.NoError(t, svc.SetFinishTime(ctx, "vault1", session.ID, "08:00"))

	// moving the start past the finish silently clears the finish
	require.NoError(t, svc.SetStartTime(ctx, "vault1", session.ID, "10:00"))
	got, err = repo.GetSession(ctx, "vault1", session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)

	// empty clears
	require.NoError(t, svc.SetStartTime(ctx, "vault1", session.ID, ""))
	got, err = repo.GetSession(ctx, "vault1", session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StartedAt)
}
