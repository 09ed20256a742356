// Package store implements journal.Store on Postgres through gorm.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"daybook/internal/apperr"
	"daybook/internal/journal"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

var _ journal.Store = (*Store)(nil)

// wrap converts gorm errors to apperr errors. Errors that already carry a code pass
// through unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var aerr *apperr.Error
	if errors.As(err, &aerr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.DuplicateEntry("an entry already exists for this date", err)
	}
	return apperr.Storage(op, err)
}

// escapeLike escapes the LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// applyFilter scopes q to userID and adds the predicates of f. q must select from entries.
func applyFilter(q *gorm.DB, userID uint64, f journal.Filter) *gorm.DB {
	q = q.Where("entries.user_id = ?", userID)

	if f.Term != "" {
		like := "%" + escapeLike(f.Term) + "%"
		q = q.Where("(entries.title ILIKE ? OR entries.body ILIKE ?)", like, like)
	}
	if f.StartDate != nil {
		q = q.Where("entries.entry_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("entries.entry_date <= ?", *f.EndDate)
	}
	if f.Mood != "" {
		q = q.Where("? IN (entries.primary_mood, entries.secondary_mood_1, entries.secondary_mood_2)", f.Mood)
	}
	if f.TagID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM entry_tags et WHERE et.entry_id = entries.id AND et.tag_id = ?)", *f.TagID)
	}
	return q
}

func (s *Store) entries(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&journal.Entry{}).Preload("Tags.Tag")
}

func (s *Store) EntryByDate(ctx context.Context, userID uint64, date time.Time) (*journal.Entry, error) {
	var e journal.Entry
	err := s.entries(ctx).
		Where("user_id = ? AND entry_date = ?", userID, date).
		First(&e).Error
	if err != nil {
		return nil, wrap("find entry by date", err)
	}
	return &e, nil
}

func (s *Store) EntryByID(ctx context.Context, userID, entryID uint64) (*journal.Entry, error) {
	var e journal.Entry
	err := s.entries(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		First(&e).Error
	if err != nil {
		return nil, wrap("find entry", err)
	}
	return &e, nil
}

func (s *Store) SaveEntry(ctx context.Context, e *journal.Entry, links journal.TagLinks) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e.ID == 0 {
			if err := tx.Omit(clause.Associations).Create(e).Error; err != nil {
				return err
			}
		} else {
			res := tx.Model(e).
				Where("user_id = ?", e.UserID).
				Select("Title", "Body", "MarkdownBody", "WordCount",
					"PrimaryMood", "SecondaryMood1", "SecondaryMood2", "UpdatedAt").
				Updates(e)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.NotFound("entry not found")
			}
		}

		if !links.Replace {
			return nil
		}
		if err := tx.Where("entry_id = ?", e.ID).Delete(&journal.EntryTag{}).Error; err != nil {
			return err
		}
		if len(links.IDs) == 0 {
			return nil
		}
		rows := make([]journal.EntryTag, 0, len(links.IDs))
		for _, id := range links.IDs {
			rows = append(rows, journal.EntryTag{EntryID: e.ID, TagID: id})
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		return wrap("save entry", err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, userID, entryID uint64) (bool, error) {
	var deleted bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id IN (?)",
			tx.Model(&journal.Entry{}).Select("id").Where("id = ? AND user_id = ?", entryID, userID),
		).Delete(&journal.EntryTag{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", entryID, userID).Delete(&journal.Entry{})
		deleted = res.RowsAffected > 0
		return res.Error
	})
	if err != nil {
		return false, wrap("delete entry", err)
	}
	return deleted, nil
}

func (s *Store) EntryDates(ctx context.Context, userID uint64) ([]time.Time, error) {
	var dates []time.Time
	err := s.DB.WithContext(ctx).Model(&journal.Entry{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("entry_date desc").
		Pluck("entry_date", &dates).Error
	if err != nil {
		return nil, wrap("list entry dates", err)
	}
	return dates, nil
}

func (s *Store) UsersWithEntries(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := s.DB.WithContext(ctx).Model(&journal.Entry{}).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, wrap("list users with entries", err)
	}
	return ids, nil
}

func (s *Store) GetStreak(ctx context.Context, userID uint64) (*journal.Streak, error) {
	var st journal.Streak
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error; err != nil {
		return nil, wrap("find streak", err)
	}
	return &st, nil
}

func (s *Store) SaveStreak(ctx context.Context, st *journal.Streak) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_streak", "longest_streak", "last_entry_date", "updated_at"}),
	}).Create(st).Error
	return wrap("save streak", err)
}

func (s *Store) SearchEntries(ctx context.Context, userID uint64, f journal.Filter, skip, take int) ([]journal.Entry, error) {
	out := []journal.Entry{}
	err := applyFilter(s.entries(ctx), userID, f).
		Order("entries.entry_date desc, entries.id desc").
		Offset(skip).
		Limit(take).
		Find(&out).Error
	if err != nil {
		return nil, wrap("search entries", err)
	}
	return out, nil
}

func (s *Store) CountEntries(ctx context.Context, userID uint64, f journal.Filter) (int64, error) {
	var n int64
	err := applyFilter(s.DB.WithContext(ctx).Model(&journal.Entry{}), userID, f).Count(&n).Error
	if err != nil {
		return 0, wrap("count entries", err)
	}
	return n, nil
}

func (s *Store) EntriesBetween(ctx context.Context, userID uint64, start, end time.Time) ([]journal.Entry, error) {
	out := []journal.Entry{}
	err := s.entries(ctx).
		Where("user_id = ? AND entry_date BETWEEN ? AND ?", userID, start, end).
		Order("entry_date asc").
		Find(&out).Error
	if err != nil {
		return nil, wrap("list entries between", err)
	}
	return out, nil
}

func (s *Store) CountVisibleTags(ctx context.Context, userID uint64, tagIDs []uint64) (int64, error) {
	ids := make([]int64, len(tagIDs))
	for i, id := range tagIDs {
		ids[i] = int64(id)
	}

	var n int64
	err := s.DB.WithContext(ctx).Model(&journal.Tag{}).
		Where("id = ANY(?)", pq.Array(ids)).
		Where("is_pre_built OR user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count visible tags", err)
	}
	return n, nil
}

func (s *Store) ListTags(ctx context.Context, userID uint64, includePreBuilt bool) ([]journal.Tag, error) {
	q := s.DB.WithContext(ctx).Model(&journal.Tag{})
	if includePreBuilt {
		q = q.Where("is_pre_built OR user_id = ?", userID)
	} else {
		q = q.Where("user_id = ?", userID)
	}

	out := []journal.Tag{}
	if err := q.Order("name asc, id asc").Find(&out).Error; err != nil {
		return nil, wrap("list tags", err)
	}
	return out, nil
}

func (s *Store) CreateTag(ctx context.Context, t *journal.Tag) error {
	return wrap("create tag", s.DB.WithContext(ctx).Create(t).Error)
}

func (s *Store) DeleteTag(ctx context.Context, userID, tagID uint64) (bool, error) {
	var deleted bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ? AND NOT is_pre_built", tagID, userID).Delete(&journal.Tag{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("tag_id = ?", tagID).Delete(&journal.EntryTag{}).Error
	})
	if err != nil {
		return false, wrap("delete tag", err)
	}
	return deleted, nil
}

func (s *Store) EnsurePreBuiltTags(ctx context.Context, tags []journal.Tag) (int, error) {
	added := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tags {
			var n int64
			if err := tx.Model(&journal.Tag{}).
				Where("is_pre_built AND user_id IS NULL AND name = ?", tags[i].Name).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			if err := tx.Create(&tags[i]).Error; err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, wrap("seed pre-built tags", err)
	}
	return added, nil
}

type countRow struct {
	Name  string
	Count int
}

func toMap(rows []countRow) map[string]int {
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Count
	}
	return out
}

func (s *Store) MoodCounts(ctx context.Context, userID uint64) (map[string]int, error) {
	var rows []countRow
	err := s.DB.WithContext(ctx).Raw(`
		select mood as name, count(*) as count
		from (
			select unnest(array[primary_mood, secondary_mood_1, secondary_mood_2]) as mood
			from entries
			where user_id = ?
		) m
		where mood is not null and mood <> ''
		group by mood
	`, userID).Scan(&rows).Error
	if err != nil {
		return nil, wrap("count moods", err)
	}
	return toMap(rows), nil
}

func (s *Store) TagUsage(ctx context.Context, userID uint64) (map[string]int, error) {
	var rows []countRow
	err := s.DB.WithContext(ctx).Raw(`
		select t.name as name, count(*) as count
		from entry_tags et
		join entries e on e.id = et.entry_id
		join tags t on t.id = et.tag_id
		where e.user_id = ?
		group by t.name
	`, userID).Scan(&rows).Error
	if err != nil {
		return nil, wrap("count tag usage", err)
	}
	return toMap(rows), nil
}

func (s *Store) WordCounts(ctx context.Context, userID uint64, since time.Time) ([]journal.WordCountPoint, error) {
	out := []journal.WordCountPoint{}
	err := s.DB.WithContext(ctx).Model(&journal.Entry{}).
		Select("entry_date as date, word_count").
		Where("user_id = ? AND entry_date >= ?", userID, since).
		Order("entry_date asc").
		Scan(&out).Error
	if err != nil {
		return nil, wrap("list word counts", err)
	}
	return out, nil
}
