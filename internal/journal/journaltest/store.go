// Package journaltest provides an in-memory journal.Store for tests.
package journaltest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"daybook/internal/apperr"
	"daybook/internal/journal"
)

// Store keeps entries, tags, links and streaks in maps guarded by one mutex.
// It enforces the same (user, date) uniqueness and owner scoping as the SQL store.
type Store struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*journal.Entry
	tags    map[uint64]*journal.Tag
	links   map[uint64][]uint64 // entry id -> tag ids
	streaks map[uint64]*journal.Streak

	// BeforeInsert runs just before a new entry is inserted, outside the lock.
	// Tests use it to simulate a concurrent writer.
	BeforeInsert func(e *journal.Entry)
	// SaveStreakErr, when set, is returned by SaveStreak.
	SaveStreakErr error
	// SaveEntryErr, when set, is returned by SaveEntry.
	SaveEntryErr error
}

func NewStore() *Store {
	return &Store{
		entries: map[uint64]*journal.Entry{},
		tags:    map[uint64]*journal.Tag{},
		links:   map[uint64][]uint64{},
		streaks: map[uint64]*journal.Streak{},
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// PutEntry stores e as is, bypassing every service rule. It is meant for
// arranging history such as back-dated entries.
func (s *Store) PutEntry(e journal.Entry) *journal.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.id()
	e.EntryDate = journal.NormalizeDate(e.EntryDate)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.EntryDate
	}
	e.Tags = nil
	s.entries[e.ID] = &e
	return s.withTags(&e)
}

// LinkTags sets the tag links of an entry directly.
func (s *Store) LinkTags(entryID uint64, tagIDs ...uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[entryID] = slices.Clone(tagIDs)
}

// EntryCount returns the number of stored entries of userID.
func (s *Store) EntryCount(userID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

// LinkedTagIDs returns the sorted tag ids linked to an entry.
func (s *Store) LinkedTagIDs(entryID uint64) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.links[entryID])
	slices.Sort(out)
	return out
}

func (s *Store) withTags(e *journal.Entry) *journal.Entry {
	cp := *e
	cp.Tags = nil
	for _, tid := range s.links[e.ID] {
		t, ok := s.tags[tid]
		if !ok {
			continue
		}
		cp.Tags = append(cp.Tags, journal.EntryTag{EntryID: e.ID, TagID: tid, Tag: *t})
	}
	return &cp
}

func (s *Store) EntryByDate(_ context.Context, userID uint64, date time.Time) (*journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.UserID == userID && e.EntryDate.Equal(date) {
			return s.withTags(e), nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Store) EntryByID(_ context.Context, userID, entryID uint64) (*journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || e.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return s.withTags(e), nil
}

func (s *Store) SaveEntry(_ context.Context, e *journal.Entry, links journal.TagLinks) error {
	if s.SaveEntryErr != nil {
		return s.SaveEntryErr
	}
	if e.ID == 0 && s.BeforeInsert != nil {
		s.BeforeInsert(e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.entries {
		if other.ID != e.ID && other.UserID == e.UserID && other.EntryDate.Equal(e.EntryDate) {
			return apperr.DuplicateEntry("an entry already exists for this date", nil)
		}
	}

	if e.ID == 0 {
		e.ID = s.id()
	}
	cp := *e
	cp.Tags = nil
	s.entries[e.ID] = &cp

	if links.Replace {
		s.links[e.ID] = slices.Clone(links.IDs)
	}
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, userID, entryID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || e.UserID != userID {
		return false, nil
	}
	delete(s.entries, entryID)
	delete(s.links, entryID)
	return true, nil
}

func (s *Store) EntryDates(_ context.Context, userID uint64) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for _, e := range s.entries {
		if e.UserID == userID && !slices.ContainsFunc(out, e.EntryDate.Equal) {
			out = append(out, e.EntryDate)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return b.Compare(a) })
	return out, nil
}

func (s *Store) UsersWithEntries(_ context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, e := range s.entries {
		if !slices.Contains(out, e.UserID) {
			out = append(out, e.UserID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) GetStreak(_ context.Context, userID uint64) (*journal.Streak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streaks[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Store) SaveStreak(_ context.Context, st *journal.Streak) error {
	if s.SaveStreakErr != nil {
		return s.SaveStreakErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.streaks[st.UserID]; ok {
		st.ID = old.ID
	} else {
		st.ID = s.id()
	}
	cp := *st
	s.streaks[st.UserID] = &cp
	return nil
}

func (s *Store) matches(e *journal.Entry, f journal.Filter) bool {
	if f.Term != "" {
		term := strings.ToLower(f.Term)
		if !strings.Contains(strings.ToLower(e.Title), term) && !strings.Contains(strings.ToLower(e.Body), term) {
			return false
		}
	}
	if f.StartDate != nil && e.EntryDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.EntryDate.After(*f.EndDate) {
		return false
	}
	if f.Mood != "" && !slices.Contains(e.Moods(), f.Mood) {
		return false
	}
	if f.TagID != nil && !slices.Contains(s.links[e.ID], *f.TagID) {
		return false
	}
	return true
}

func (s *Store) filtered(userID uint64, f journal.Filter) []*journal.Entry {
	var out []*journal.Entry
	for _, e := range s.entries {
		if e.UserID == userID && s.matches(e, f) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *journal.Entry) int {
		if c := b.EntryDate.Compare(a.EntryDate); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	return out
}

func (s *Store) SearchEntries(_ context.Context, userID uint64, f journal.Filter, skip, take int) ([]journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.filtered(userID, f)
	if skip >= len(all) {
		return []journal.Entry{}, nil
	}
	all = all[skip:min(len(all), skip+take)]
	out := make([]journal.Entry, 0, len(all))
	for _, e := range all {
		out = append(out, *s.withTags(e))
	}
	return out, nil
}

func (s *Store) CountEntries(_ context.Context, userID uint64, f journal.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.filtered(userID, f))), nil
}

func (s *Store) EntriesBetween(_ context.Context, userID uint64, start, end time.Time) ([]journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.filtered(userID, journal.Filter{StartDate: &start, EndDate: &end})
	out := make([]journal.Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, *s.withTags(all[i]))
	}
	return out, nil
}

func (s *Store) visible(t *journal.Tag, userID uint64) bool {
	return t.IsPreBuilt || (t.UserID != nil && *t.UserID == userID)
}

func (s *Store) CountVisibleTags(_ context.Context, userID uint64, tagIDs []uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range tagIDs {
		if t, ok := s.tags[id]; ok && s.visible(t, userID) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTags(_ context.Context, userID uint64, includePreBuilt bool) ([]journal.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []journal.Tag{}
	for _, t := range s.tags {
		owned := t.UserID != nil && *t.UserID == userID
		if owned || (includePreBuilt && t.IsPreBuilt) {
			out = append(out, *t)
		}
	}
	slices.SortFunc(out, func(a, b journal.Tag) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) CreateTag(_ context.Context, t *journal.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	cp := *t
	s.tags[t.ID] = &cp
	return nil
}

func (s *Store) DeleteTag(_ context.Context, userID, tagID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[tagID]
	if !ok || t.IsPreBuilt || t.UserID == nil || *t.UserID != userID {
		return false, nil
	}
	delete(s.tags, tagID)
	for eid, ids := range s.links {
		s.links[eid] = slices.DeleteFunc(ids, func(id uint64) bool { return id == tagID })
	}
	return true, nil
}

func (s *Store) EnsurePreBuiltTags(_ context.Context, tags []journal.Tag) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, want := range tags {
		exists := false
		for _, t := range s.tags {
			if t.IsPreBuilt && t.UserID == nil && t.Name == want.Name {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		want.ID = s.id()
		cp := want
		s.tags[want.ID] = &cp
		added++
	}
	return added, nil
}

func (s *Store) MoodCounts(_ context.Context, userID uint64) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		for _, m := range e.Moods() {
			if m != "" {
				out[m]++
			}
		}
	}
	return out, nil
}

func (s *Store) TagUsage(_ context.Context, userID uint64) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for eid, ids := range s.links {
		e, ok := s.entries[eid]
		if !ok || e.UserID != userID {
			continue
		}
		for _, id := range ids {
			if t, ok := s.tags[id]; ok {
				out[t.Name]++
			}
		}
	}
	return out, nil
}

func (s *Store) WordCounts(_ context.Context, userID uint64, since time.Time) ([]journal.WordCountPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.filtered(userID, journal.Filter{StartDate: &since})
	out := make([]journal.WordCountPoint, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, journal.WordCountPoint{Date: all[i].EntryDate, WordCount: all[i].WordCount})
	}
	return out, nil
}

var _ journal.Store = (*Store)(nil)
