package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"daybook/internal/journal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	jobs    []*Job
	done    []uint64
	failed  map[uint64]string
	retried map[uint64]time.Time
	claimed int
}

func newFakeQueue(jobs ...*Job) *fakeQueue {
	return &fakeQueue{jobs: jobs, failed: map[uint64]string{}, retried: map[uint64]time.Time{}}
}

func (q *fakeQueue) Claim(_ context.Context, _ string) (*Job, error) {
	if q.claimed >= len(q.jobs) {
		return nil, nil
	}
	j := q.jobs[q.claimed]
	q.claimed++
	return j, nil
}

func (q *fakeQueue) MarkDone(_ context.Context, id uint64) error {
	q.done = append(q.done, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id uint64, errMsg string) error {
	q.failed[id] = errMsg
	return nil
}

func (q *fakeQueue) RetryLater(_ context.Context, id uint64, _ int, runAt time.Time, _ string) error {
	q.retried[id] = runAt
	return nil
}

type fakeStreaks struct {
	users []uint64
	err   error
}

func (f *fakeStreaks) RecalculateStreak(_ context.Context, userID uint64) (*journal.Streak, error) {
	f.users = append(f.users, userID)
	if f.err != nil {
		return nil, f.err
	}
	return &journal.Streak{UserID: userID, CurrentStreak: 1, LongestStreak: 1}, nil
}

var fixedNow = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

func newWorker(q Queue, s StreakRecalculator) *Worker {
	return &Worker{
		ID:      "test-worker",
		Queue:   q,
		Streaks: s,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return fixedNow },
	}
}

func streakJob(id, userID uint64, attempts int) *Job {
	return &Job{
		ID:          id,
		UserID:      userID,
		Type:        TypeStreakRecalc,
		Payload:     []byte(fmt.Sprintf(`{"user_id":%d}`, userID)),
		Attempts:    attempts,
		MaxAttempts: 8,
	}
}

func TestWorker_RunOnce_RecalculatesStreak(t *testing.T) {
	q := newFakeQueue(streakJob(1, 7, 0))
	s := &fakeStreaks{}
	w := newWorker(q, s)

	found, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []uint64{7}, s.users)
	assert.Equal(t, []uint64{1}, q.done)

	found, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWorker_BadPayloadFails(t *testing.T) {
	q := newFakeQueue(
		&Job{ID: 1, Type: TypeStreakRecalc, Payload: []byte(`not json`), MaxAttempts: 8},
		&Job{ID: 2, Type: TypeStreakRecalc, Payload: []byte(`{}`), MaxAttempts: 8},
		&Job{ID: 3, Type: "REMINDER_DISPATCH", Payload: []byte(`{}`), MaxAttempts: 8},
	)
	s := &fakeStreaks{}
	w := newWorker(q, s)

	for range 3 {
		_, err := w.RunOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, "bad payload", q.failed[1])
	assert.Equal(t, "bad payload", q.failed[2])
	assert.Equal(t, "unknown job type", q.failed[3])
	assert.Empty(t, s.users)
	assert.Empty(t, q.done)
}

func TestWorker_RetriesWithBackoff(t *testing.T) {
	q := newFakeQueue(streakJob(1, 3, 2))
	w := newWorker(q, &fakeStreaks{err: errors.New("db down")})

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(8*time.Second), q.retried[1])
	assert.Empty(t, q.failed)
}

func TestWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	q := newFakeQueue(streakJob(1, 3, 7))
	w := newWorker(q, &fakeStreaks{err: errors.New("db down")})

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "db down", q.failed[1])
	assert.Empty(t, q.retried)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 64*time.Second, backoff(6))
	assert.Equal(t, 600*time.Second, backoff(20))
}
