package journal

import (
	"context"
	"time"
)

// Store is the persistence contract of the journal core. Every method is scoped by
// owner. Implementations return apperr errors: ErrNotFound for missing rows,
// ErrDuplicateEntry when the (user, date) uniqueness constraint rejects an insert,
// and Storage-coded errors for everything else.
type Store interface {
	EntryByDate(ctx context.Context, userID uint64, date time.Time) (*Entry, error)
	EntryByID(ctx context.Context, userID, entryID uint64) (*Entry, error)
	// SaveEntry inserts (ID == 0) or updates e and applies links in one transaction.
	SaveEntry(ctx context.Context, e *Entry, links TagLinks) error
	// DeleteEntry reports false when no entry with that id belongs to userID.
	DeleteEntry(ctx context.Context, userID, entryID uint64) (bool, error)

	// EntryDates returns the distinct entry dates of userID, most recent first.
	EntryDates(ctx context.Context, userID uint64) ([]time.Time, error)
	UsersWithEntries(ctx context.Context) ([]uint64, error)
	GetStreak(ctx context.Context, userID uint64) (*Streak, error)
	// SaveStreak upserts the single streak row of s.UserID.
	SaveStreak(ctx context.Context, s *Streak) error

	SearchEntries(ctx context.Context, userID uint64, f Filter, skip, take int) ([]Entry, error)
	CountEntries(ctx context.Context, userID uint64, f Filter) (int64, error)
	// EntriesBetween returns entries with start <= date <= end, oldest first.
	EntriesBetween(ctx context.Context, userID uint64, start, end time.Time) ([]Entry, error)

	// CountVisibleTags counts how many of tagIDs are pre-built or owned by userID.
	CountVisibleTags(ctx context.Context, userID uint64, tagIDs []uint64) (int64, error)
	ListTags(ctx context.Context, userID uint64, includePreBuilt bool) ([]Tag, error)
	CreateTag(ctx context.Context, t *Tag) error
	// DeleteTag removes a tag owned by userID that is not pre-built.
	DeleteTag(ctx context.Context, userID, tagID uint64) (bool, error)
	// EnsurePreBuiltTags inserts the pre-built tags missing by name and
	// reports how many were added.
	EnsurePreBuiltTags(ctx context.Context, tags []Tag) (int, error)

	MoodCounts(ctx context.Context, userID uint64) (map[string]int, error)
	TagUsage(ctx context.Context, userID uint64) (map[string]int, error)
	WordCounts(ctx context.Context, userID uint64, since time.Time) ([]WordCountPoint, error)
}

// StreakRecalcEnqueuer schedules an asynchronous streak recompute.
type StreakRecalcEnqueuer interface {
	EnqueueStreakRecalc(ctx context.Context, userID uint64) error
}
