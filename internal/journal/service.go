package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"daybook/internal/apperr"
	"daybook/internal/validation"
)

// Service owns the consistency rules above the store: one entry per day, tag link
// replacement, streak recomputation and owner-scoped reads.
type Service struct {
	Store    Store
	Validate *validation.Validator
	Log      *slog.Logger
	// Location defines the calendar used for "today".
	Location *time.Location
	Now      func() time.Time
	// Recalc, when set, receives a job if the synchronous recompute after a write fails.
	Recalc StreakRecalcEnqueuer
}

func NewService(store Store, log *slog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		Store:    store,
		Validate: validation.New(),
		Log:      log,
		Location: loc,
		Now:      time.Now,
	}
}

// Today returns the current calendar day in the service location.
func (s *Service) Today() time.Time {
	return NormalizeDate(s.Now().In(s.Location))
}

// CreateOrUpdateEntry writes the entry for (userID, in.Date). A new entry may only be
// created for today; an existing one may be edited at any time without moving its date.
func (s *Service) CreateOrUpdateEntry(ctx context.Context, userID uint64, in EntryInput) (*Entry, error) {
	in = trimInput(in)
	if err := s.Validate.Validate(in); err != nil {
		return nil, err
	}

	date := NormalizeDate(in.Date)
	tagIDs := uniqueIDs(in.TagIDs)

	entry, err := s.Store.EntryByDate(ctx, userID, date)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	isNew := entry == nil

	if isNew {
		today := s.Today()
		if !date.Equal(today) {
			return nil, apperr.InvalidDatef("new entries can only be created for today (%s)", today.Format(DateLayout))
		}
	}

	if len(tagIDs) > 0 {
		visible, err := s.Store.CountVisibleTags(ctx, userID, tagIDs)
		if err != nil {
			return nil, err
		}
		if visible != int64(len(tagIDs)) {
			return nil, apperr.Validation("unknown tag id")
		}
	}

	now := s.Now().UTC()
	if isNew {
		// Fast path only: the unique (user_id, entry_date) index decides races.
		dup, err := s.Store.EntryByDate(ctx, userID, date)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if dup != nil {
			return nil, apperr.DuplicateEntry("an entry already exists for this date", nil)
		}
		entry = &Entry{UserID: userID, EntryDate: date, CreatedAt: now}
	} else {
		entry.UpdatedAt = &now
	}

	entry.Title = in.Title
	entry.Body = in.Body
	entry.MarkdownBody = in.MarkdownBody
	entry.PrimaryMood = in.PrimaryMood
	entry.SecondaryMood1 = in.SecondaryMood1
	entry.SecondaryMood2 = in.SecondaryMood2
	entry.WordCount = CountWords(in.Body)

	links := TagLinks{Replace: len(tagIDs) > 0 || !isNew, IDs: tagIDs}
	if err := s.Store.SaveEntry(ctx, entry, links); err != nil {
		return nil, err
	}

	s.Log.Info("entry saved",
		"user_id", userID,
		"entry_id", entry.ID,
		"entry_date", date.Format(DateLayout),
		"created", isNew,
		"tags", len(tagIDs),
	)

	if _, err := s.recalculateAfterWrite(ctx, userID); err != nil {
		return nil, err
	}

	return s.Store.EntryByID(ctx, userID, entry.ID)
}

// DeleteEntry removes an entry owned by userID and recomputes the streak.
// It reports false when the entry does not exist for that owner.
func (s *Service) DeleteEntry(ctx context.Context, userID, entryID uint64) (bool, error) {
	deleted, err := s.Store.DeleteEntry(ctx, userID, entryID)
	if err != nil || !deleted {
		return false, err
	}

	s.Log.Info("entry deleted", "user_id", userID, "entry_id", entryID)

	if _, err := s.recalculateAfterWrite(ctx, userID); err != nil {
		return true, err
	}
	return true, nil
}

// GetEntry returns an entry by id, ErrNotFound when userID does not own it.
func (s *Service) GetEntry(ctx context.Context, userID, entryID uint64) (*Entry, error) {
	return s.Store.EntryByID(ctx, userID, entryID)
}

// GetEntryByDate returns the entry for a calendar day.
func (s *Service) GetEntryByDate(ctx context.Context, userID uint64, date time.Time) (*Entry, error) {
	return s.Store.EntryByDate(ctx, userID, NormalizeDate(date))
}

// ListEntries pages through all entries, most recent first.
func (s *Service) ListEntries(ctx context.Context, userID uint64, skip, take int) ([]Entry, error) {
	return s.Search(ctx, userID, Filter{}, skip, take)
}

// CountEntries counts all entries of userID.
func (s *Service) CountEntries(ctx context.Context, userID uint64) (int64, error) {
	return s.SearchCount(ctx, userID, Filter{})
}

// recalculateAfterWrite recomputes the streak after a committed write. On failure the
// committed write stands and a background recompute is requested.
func (s *Service) recalculateAfterWrite(ctx context.Context, userID uint64) (*Streak, error) {
	st, err := s.RecalculateStreak(ctx, userID)
	if err == nil {
		return st, nil
	}

	s.Log.Warn("streak recalculation failed", "user_id", userID, "error", err)
	if s.Recalc != nil {
		if qerr := s.Recalc.EnqueueStreakRecalc(context.WithoutCancel(ctx), userID); qerr != nil {
			s.Log.Error("enqueue streak recalculation", "user_id", userID, "error", qerr)
		}
	}
	return nil, fmt.Errorf("recalculate streak: %w", err)
}

func trimInput(in EntryInput) EntryInput {
	in.Title = strings.TrimSpace(in.Title)
	in.PrimaryMood = strings.TrimSpace(in.PrimaryMood)
	in.SecondaryMood1 = trimOptional(in.SecondaryMood1)
	in.SecondaryMood2 = trimOptional(in.SecondaryMood2)
	return in
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func uniqueIDs(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
