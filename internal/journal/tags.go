package journal

import (
	"context"
	"strings"
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#6c757d"

// PreBuiltTags are seeded once and shared by every user.
var PreBuiltTags = []Tag{
	{Name: "Work", Color: "#007bff"},
	{Name: "Career", Color: "#0056b3"},
	{Name: "Studies", Color: "#6610f2"},
	{Name: "Family", Color: "#17a2b8"},
	{Name: "Friends", Color: "#6f42c1"},
	{Name: "Relationships", Color: "#e83e8c"},
	{Name: "Health", Color: "#dc3545"},
	{Name: "Fitness", Color: "#fd7e14"},
	{Name: "Exercise", Color: "#ff6b6b"},
	{Name: "Meditation", Color: "#4ecdc4"},
	{Name: "Yoga", Color: "#95e1d3"},
	{Name: "Personal Growth", Color: "#28a745"},
	{Name: "Self-care", Color: "#20c997"},
	{Name: "Reflection", Color: "#17a2b8"},
	{Name: "Hobbies", Color: "#ffc107"},
	{Name: "Reading", Color: "#6c757d"},
	{Name: "Writing", Color: "#495057"},
	{Name: "Cooking", Color: "#fd7e14"},
	{Name: "Music", Color: "#6f42c1"},
	{Name: "Shopping", Color: "#e83e8c"},
	{Name: "Travel", Color: "#ffc107"},
	{Name: "Nature", Color: "#28a745"},
	{Name: "Birthday", Color: "#ff6b6b"},
	{Name: "Holiday", Color: "#4ecdc4"},
	{Name: "Vacation", Color: "#95e1d3"},
	{Name: "Celebration", Color: "#feca57"},
	{Name: "Finance", Color: "#00d2d3"},
	{Name: "Spirituality", Color: "#a55eea"},
	{Name: "Parenting", Color: "#26de81"},
	{Name: "Projects", Color: "#45aaf2"},
	{Name: "Planning", Color: "#5f27cd"},
}

// ListTags returns the tags visible to userID ordered by name: pre-built tags plus
// the user's own, or only the user's own when includePreBuilt is false.
func (s *Service) ListTags(ctx context.Context, userID uint64, includePreBuilt bool) ([]Tag, error) {
	return s.Store.ListTags(ctx, userID, includePreBuilt)
}

// CreateTag creates a tag owned by userID, or a shared pre-built tag when
// in.PreBuilt is set.
func (s *Service) CreateTag(ctx context.Context, userID uint64, in TagInput) (*Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if err := s.Validate.Validate(in); err != nil {
		return nil, err
	}
	if in.Color == "" {
		in.Color = DefaultTagColor
	}

	t := &Tag{
		Name:       in.Name,
		Color:      in.Color,
		IsPreBuilt: in.PreBuilt,
		CreatedAt:  s.Now().UTC(),
	}
	if !in.PreBuilt {
		owner := userID
		t.UserID = &owner
	}
	if err := s.Store.CreateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTag deletes a tag owned by userID. Pre-built tags and tags of other users
// are left alone and reported as false.
func (s *Service) DeleteTag(ctx context.Context, userID, tagID uint64) (bool, error) {
	return s.Store.DeleteTag(ctx, userID, tagID)
}

// SeedPreBuiltTags inserts any missing pre-built tag.
func (s *Service) SeedPreBuiltTags(ctx context.Context) (int, error) {
	now := s.Now().UTC()
	tags := make([]Tag, len(PreBuiltTags))
	for i, t := range PreBuiltTags {
		tags[i] = Tag{Name: t.Name, Color: t.Color, IsPreBuilt: true, CreatedAt: now}
	}

	n, err := s.Store.EnsurePreBuiltTags(ctx, tags)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Log.Info("pre-built tags seeded", "count", n)
	}
	return n, nil
}
