package journal_test

import (
	"context"
	"testing"
	"time"

	"daybook/internal/apperr"
	"daybook/internal/journal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHistory stores one entry per day for the last n days of alice, plus one entry
// of bob, and returns alice's entries most recent first.
func seedHistory(t *testing.T, f *fixture, n int) []*journal.Entry {
	t.Helper()
	out := make([]*journal.Entry, 0, n)
	for i := range n {
		mood := "Calm"
		if i%3 == 0 {
			mood = "Happy"
		}
		out = append(out, f.store.PutEntry(journal.Entry{
			UserID:      alice,
			EntryDate:   day(-i),
			Title:       "Day " + string(rune('A'+i)),
			Body:        "plain body",
			PrimaryMood: mood,
			WordCount:   i + 1,
		}))
	}
	f.store.PutEntry(journal.Entry{UserID: bob, EntryDate: today, Title: "Bob", Body: "plain body", PrimaryMood: "Happy"})
	return out
}

func TestSearch_PagesMostRecentFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	history := seedHistory(t, f, 7)

	total, err := f.svc.SearchCount(ctx, alice, journal.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)

	var seen []uint64
	for skip := 0; skip < int(total); skip += 3 {
		page, err := f.svc.Search(ctx, alice, journal.Filter{}, skip, 3)
		require.NoError(t, err)
		for _, e := range page {
			seen = append(seen, e.ID)
		}
	}

	want := make([]uint64, len(history))
	for i, e := range history {
		want[i] = e.ID
	}
	assert.Equal(t, want, seen)

	beyond, err := f.svc.Search(ctx, alice, journal.Filter{}, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestSearch_Filters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	history := seedHistory(t, f, 6)

	tag, err := f.svc.CreateTag(ctx, alice, journal.TagInput{Name: "Hiking"})
	require.NoError(t, err)
	f.store.LinkTags(history[1].ID, tag.ID)
	f.store.LinkTags(history[4].ID, tag.ID)

	special := f.store.PutEntry(journal.Entry{
		UserID: alice, EntryDate: day(-10), Title: "Budget", Body: "Saved 50% this month",
		PrimaryMood: "Proud", SecondaryMood1: ptr("Relieved"),
	})

	from, to := day(-3), day(-1)
	tests := []struct {
		name   string
		filter journal.Filter
		want   []uint64
	}{
		{"term in title, case-insensitive", journal.Filter{Term: "day c"}, []uint64{history[2].ID}},
		{"term in body", journal.Filter{Term: "50%"}, []uint64{special.ID}},
		{"underscore is literal", journal.Filter{Term: "_"}, nil},
		{"whitespace term means no filter", journal.Filter{Term: "   "}, nil},
		{"inclusive date range", journal.Filter{StartDate: &from, EndDate: &to}, []uint64{history[1].ID, history[2].ID, history[3].ID}},
		{"mood in secondary slot", journal.Filter{Mood: "Relieved"}, []uint64{special.ID}},
		{"mood is exact", journal.Filter{Mood: "happy"}, nil},
		{"tag", journal.Filter{TagID: &tag.ID}, []uint64{history[1].ID, history[4].ID}},
		{"combined", journal.Filter{TagID: &tag.ID, StartDate: &from}, []uint64{history[1].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Search(ctx, alice, tt.filter, 0, journal.MaxPageSize)
			require.NoError(t, err)

			if tt.name == "whitespace term means no filter" {
				assert.Len(t, got, 7)
				return
			}
			ids := make([]uint64, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
				assert.Equal(t, alice, e.UserID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.want, ids)

			count, err := f.svc.SearchCount(ctx, alice, tt.filter)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), count)
		})
	}
}

func TestSearch_CountMatchesPages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedHistory(t, f, 11)

	for _, filter := range []journal.Filter{{}, {Mood: "Happy"}, {Term: "body"}} {
		total, err := f.svc.SearchCount(ctx, alice, filter)
		require.NoError(t, err)

		sum := 0
		for skip := 0; ; skip += 4 {
			page, err := f.svc.Search(ctx, alice, filter, skip, 4)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			sum += len(page)
		}
		assert.EqualValues(t, total, sum)
	}
}

func TestSearch_ClampsPaging(t *testing.T) {
	skip, take := journal.ClampPage(-5, 0)
	assert.Equal(t, 0, skip)
	assert.Equal(t, journal.DefaultPageSize, take)

	_, take = journal.ClampPage(0, 5000)
	assert.Equal(t, journal.MaxPageSize, take)
}

func TestSearchPage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	history := seedHistory(t, f, 7)

	p, err := f.svc.SearchPage(ctx, alice, journal.Filter{}, 3, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 7, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 3, p.Page)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, history[6].ID, p.Entries[0].ID)

	p, err = f.svc.SearchPage(ctx, alice, journal.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, journal.DefaultPageSize, p.PageSize)
	assert.Equal(t, 1, p.TotalPages)
}

func TestListAndCountEntries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedHistory(t, f, 4)

	n, err := f.svc.CountEntries(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	list, err := f.svc.ListEntries(ctx, alice, 1, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].EntryDate.After(list[1].EntryDate))
}

func TestGetEntriesForExport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	history := seedHistory(t, f, 5)

	got, err := f.svc.GetEntriesForExport(ctx, alice, day(-3), day(-1).Add(20*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, history[3].ID, got[0].ID)
	assert.Equal(t, history[1].ID, got[2].ID)

	_, err = f.svc.GetEntriesForExport(ctx, alice, day(0), day(-1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	none, err := f.svc.GetEntriesForExport(ctx, alice, day(-100), day(-50))
	require.NoError(t, err)
	assert.Empty(t, none)
}
