package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
)

// LocalInstant resolves a wall-clock "HH:MM" on the session's calendar day
// in loc into an absolute UTC instant. time.Date resolves the UTC offset in
// force at that local moment, so sessions on either side of a DST switch
// keep the wall clock the user typed.
func LocalInstant(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	y, m, d := day.Date()
	local := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

// FormatLocal renders a stored UTC instant back as the session-local "HH:MM".
func FormatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// SetStartTime sets the session's start from a local "HH:MM", empty clears
// it. Moving the start past an already recorded finish silently clears the
// finish instead of erroring: the user is re-timing the session and the old
// finish no longer applies.
func (s *Service) SetStartTime(ctx context.Context, vaultID string, sessionID int64, hhmm string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.setstarttime")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, vaultID, sessionID)
	if err != nil {
		return err
	}

	var startedAt *time.Time
	finishedAt := session.FinishedAt
	if hhmm != "" {
		t, err := LocalInstant(session.SessionDate, hhmm, s.loc)
		if err != nil {
			return err
		}
		startedAt = &t
		if finishedAt != nil && t.After(*finishedAt) {
			finishedAt = nil
		}
	}

	return s.repo.UpdateSessionTimes(ctx, sessionID, startedAt, finishedAt)
}

// SetFinishTime sets the session's finish from a local "HH:MM", empty
// clears it. A finish before the recorded start is rejected.
func (s *Service) SetFinishTime(ctx context.Context, vaultID string, sessionID int64, hhmm string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.setfinishtime")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, vaultID, sessionID)
	if err != nil {
		return err
	}

	var finishedAt *time.Time
	if hhmm != "" {
		t, err := LocalInstant(session.SessionDate, hhmm, s.loc)
		if err != nil {
			return err
		}
		if session.StartedAt != nil && t.Before(*session.StartedAt) {
			return ErrFinishBeforeStart
		}
		finishedAt = &t
	}

	return s.repo.UpdateSessionTimes(ctx, sessionID, session.StartedAt, finishedAt)
}
