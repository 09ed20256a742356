package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"daybook/internal/journal"
)

// Queue is the job table as seen by the worker. Repo implements it.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
}

// StreakRecalculator recomputes and stores the streak of one user.
type StreakRecalculator interface {
	RecalculateStreak(ctx context.Context, userID uint64) (*journal.Streak, error)
}

type Worker struct {
	ID           string
	Queue        Queue
	Streaks      StreakRecalculator
	Log          *slog.Logger
	PollInterval time.Duration
	Now          func() time.Time
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.PollInterval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Log.Info("worker started", "worker_id", w.ID, "poll_interval", interval)
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("worker stopped", "worker_id", w.ID)
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.Log.Error("worker claim error", "worker_id", w.ID, "error", err)
			}
		}
	}
}

// RunOnce claims and handles at most one due job. It reports whether a job was found.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.Queue.Claim(ctx, w.ID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeStreakRecalc:
		w.handleStreakRecalc(ctx, job)
	default:
		w.fail(ctx, job, "unknown job type")
	}
}

func (w *Worker) handleStreakRecalc(ctx context.Context, job *Job) {
	var p streakPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.UserID == 0 {
		w.fail(ctx, job, "bad payload")
		return
	}

	st, err := w.Streaks.RecalculateStreak(ctx, p.UserID)
	if err != nil {
		w.retry(ctx, job, err.Error())
		return
	}

	w.Log.Debug("streak job done",
		"job_id", job.ID,
		"user_id", p.UserID,
		"current", st.CurrentStreak,
		"longest", st.LongestStreak,
	)
	if err := w.Queue.MarkDone(ctx, job.ID); err != nil {
		w.Log.Error("mark job done", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) fail(ctx context.Context, job *Job, errMsg string) {
	w.Log.Warn("job failed", "job_id", job.ID, "type", job.Type, "error", errMsg)
	if err := w.Queue.MarkFailed(ctx, job.ID, errMsg); err != nil {
		w.Log.Error("mark job failed", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		w.fail(ctx, job, errMsg)
		return
	}

	next := w.now().Add(backoff(attempts))
	w.Log.Warn("job retry scheduled", "job_id", job.ID, "attempts", attempts, "run_at", next, "error", errMsg)
	if err := w.Queue.RetryLater(ctx, job.ID, attempts, next, errMsg); err != nil {
		w.Log.Error("reschedule job", "job_id", job.ID, "error", err)
	}
}

// backoff doubles per attempt and is capped at ten minutes.
func backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}
