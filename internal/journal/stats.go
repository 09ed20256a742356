package journal

import "context"

// MoodDistribution counts how often each mood appears across all three mood slots.
func (s *Service) MoodDistribution(ctx context.Context, userID uint64) (map[string]int, error) {
	return s.Store.MoodCounts(ctx, userID)
}

// TagUsage counts entry links per tag name.
func (s *Service) TagUsage(ctx context.Context, userID uint64) (map[string]int, error) {
	return s.Store.TagUsage(ctx, userID)
}

// WordCountTrend returns the word count of each entry written in the last days days,
// oldest first.
func (s *Service) WordCountTrend(ctx context.Context, userID uint64, days int) ([]WordCountPoint, error) {
	if days <= 0 {
		days = 30
	}
	since := s.Today().AddDate(0, 0, -days)
	return s.Store.WordCounts(ctx, userID, since)
}
