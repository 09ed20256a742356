package jobs

import (
	"context"
	"log/slog"
	"time"
)

// UserLister lists the users that have at least one entry.
type UserLister interface {
	UsersWithEntries(ctx context.Context) ([]uint64, error)
}

// Enqueuer schedules a streak recompute. Repo implements it.
type Enqueuer interface {
	EnqueueStreakRecalc(ctx context.Context, userID uint64) error
}

// Rollover refreshes cached streaks of every writer. Cached current streaks go stale
// when the calendar day changes, so it runs once at startup and after each local
// midnight.
type Rollover struct {
	Users    UserLister
	Queue    Enqueuer
	Location *time.Location
	Log      *slog.Logger
	Now      func() time.Time
}

// EnqueueAll schedules a recompute for every writer and returns how many were queued.
// It keeps going past individual enqueue failures and returns the first one.
func (r *Rollover) EnqueueAll(ctx context.Context) (int, error) {
	users, err := r.Users.UsersWithEntries(ctx)
	if err != nil {
		return 0, err
	}

	var firstErr error
	queued := 0
	for _, id := range users {
		if err := r.Queue.EnqueueStreakRecalc(ctx, id); err != nil {
			r.Log.Warn("enqueue streak recalculation", "user_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		queued++
	}
	r.Log.Info("streak refresh scheduled", "users", len(users), "queued", queued)
	return queued, firstErr
}

// Run calls EnqueueAll one minute after every local midnight until ctx is done.
func (r *Rollover) Run(ctx context.Context) {
	for {
		now := r.now()
		wait := NextMidnight(now, r.Location).Add(time.Minute).Sub(now)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := r.EnqueueAll(ctx); err != nil {
				r.Log.Error("daily streak refresh", "error", err)
			}
		}
	}
}

func (r *Rollover) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
