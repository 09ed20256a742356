package journal

import (
	"context"
	"strings"
	"time"

	"daybook/internal/apperr"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize trims the text filters and reduces the date bounds to calendar days.
func (f Filter) Normalize() Filter {
	f.Term = strings.TrimSpace(f.Term)
	f.Mood = strings.TrimSpace(f.Mood)
	if f.StartDate != nil {
		d := NormalizeDate(*f.StartDate)
		f.StartDate = &d
	}
	if f.EndDate != nil {
		d := NormalizeDate(*f.EndDate)
		f.EndDate = &d
	}
	return f
}

// ClampPage bounds skip and take to the accepted range.
func ClampPage(skip, take int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = DefaultPageSize
	}
	if take > MaxPageSize {
		take = MaxPageSize
	}
	return skip, take
}

// Search returns entries of userID matching f, most recent first, with their tags.
func (s *Service) Search(ctx context.Context, userID uint64, f Filter, skip, take int) ([]Entry, error) {
	skip, take = ClampPage(skip, take)
	return s.Store.SearchEntries(ctx, userID, f.Normalize(), skip, take)
}

// SearchCount returns the number of entries Search would page through for f.
func (s *Service) SearchCount(ctx context.Context, userID uint64, f Filter) (int64, error) {
	return s.Store.CountEntries(ctx, userID, f.Normalize())
}

// SearchPage runs Search and SearchCount for a 1-based page number.
func (s *Service) SearchPage(ctx context.Context, userID uint64, f Filter, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	_, pageSize = ClampPage(0, pageSize)

	total, err := s.SearchCount(ctx, userID, f)
	if err != nil {
		return Page{}, err
	}
	entries, err := s.Search(ctx, userID, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Entries:    entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// GetEntriesForExport returns entries with start <= date <= end, oldest first.
func (s *Service) GetEntriesForExport(ctx context.Context, userID uint64, start, end time.Time) ([]Entry, error) {
	start, end = NormalizeDate(start), NormalizeDate(end)
	if start.After(end) {
		return nil, apperr.Validation("start date is after end date")
	}
	return s.Store.EntriesBetween(ctx, userID, start, end)
}
