package journal

import (
	"context"
	"errors"
	"slices"
	"time"

	"daybook/internal/apperr"
)

// StreakState is the result of a streak computation.
type StreakState struct {
	Current       int
	Longest       int
	LastEntryDate *time.Time
}

// ComputeStreak derives the streak from a set of entry dates relative to today.
//
// The current streak counts consecutive days ending at today, so it is 0 whenever
// today has no entry yet. Dates after today are ignored by that walk.
// Longest is the longest run of consecutive days anywhere in the set and is never
// less than current.
func ComputeStreak(dates []time.Time, today time.Time) StreakState {
	desc := distinctDesc(dates)
	if len(desc) == 0 {
		return StreakState{}
	}
	today = NormalizeDate(today)

	current := 0
	check := today
	for _, d := range desc {
		if d.Equal(check) {
			current++
			check = check.AddDate(0, 0, -1)
			continue
		}
		if d.Before(check) {
			break
		}
	}

	longest := 1
	run := 1
	for i := len(desc) - 1; i > 0; i-- {
		if daysBetween(desc[i], desc[i-1]) == 1 {
			run++
			continue
		}
		longest = max(longest, run)
		run = 1
	}
	longest = max(longest, run, current)

	last := desc[0]
	return StreakState{Current: current, Longest: longest, LastEntryDate: &last}
}

func distinctDesc(dates []time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, NormalizeDate(d))
	}
	slices.SortFunc(out, func(a, b time.Time) int { return b.Compare(a) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}

// RecalculateStreak recomputes the streak of userID from all of its entry dates and
// stores the result. Calling it repeatedly without writes yields the same record.
func (s *Service) RecalculateStreak(ctx context.Context, userID uint64) (*Streak, error) {
	dates, err := s.Store.EntryDates(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := ComputeStreak(dates, s.Today())
	st := &Streak{
		UserID:        userID,
		CurrentStreak: state.Current,
		LongestStreak: state.Longest,
		LastEntryDate: state.LastEntryDate,
		UpdatedAt:     s.Now().UTC(),
	}
	if err := s.Store.SaveStreak(ctx, st); err != nil {
		return nil, err
	}

	s.Log.Debug("streak recalculated",
		"user_id", userID,
		"current", st.CurrentStreak,
		"longest", st.LongestStreak,
	)
	return st, nil
}

// GetStreak returns the cached streak, a zero record when none was computed yet.
func (s *Service) GetStreak(ctx context.Context, userID uint64) (*Streak, error) {
	st, err := s.Store.GetStreak(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &Streak{UserID: userID}, nil
	}
	return st, err
}

// GetMissedDays returns the number of whole days skipped since the cached last entry
// date: 0 when the user never wrote or wrote today or yesterday.
func (s *Service) GetMissedDays(ctx context.Context, userID uint64) (int, error) {
	st, err := s.GetStreak(ctx, userID)
	if err != nil {
		return 0, err
	}
	if st.LastEntryDate == nil {
		return 0, nil
	}
	return max(0, daysBetween(*st.LastEntryDate, s.Today())-1), nil
}
