package journal

import "time"

// Entry is one journal record. (UserID, EntryDate) is unique.
type Entry struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"not null;uniqueIndex:uq_entries_user_date,priority:1"`
	// EntryDate is a calendar day, stored as a date and held in Go as UTC midnight.
	EntryDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_entries_user_date,priority:2"`

	Title        string  `gorm:"size:200;not null"`
	Body         string  `gorm:"type:text;not null"`
	MarkdownBody *string `gorm:"type:text"`
	WordCount    int     `gorm:"not null;default:0"`

	PrimaryMood    string  `gorm:"size:50;not null"`
	SecondaryMood1 *string `gorm:"column:secondary_mood_1;size:50"`
	SecondaryMood2 *string `gorm:"column:secondary_mood_2;size:50"`

	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`

	Tags []EntryTag `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
}

func (Entry) TableName() string { return "entries" }

// TagNames returns the names of the attached tags in link order.
func (e *Entry) TagNames() []string {
	out := make([]string, 0, len(e.Tags))
	for _, l := range e.Tags {
		out = append(out, l.Tag.Name)
	}
	return out
}

// Moods returns the primary mood followed by any non-empty secondary moods.
func (e *Entry) Moods() []string {
	out := []string{e.PrimaryMood}
	for _, m := range []*string{e.SecondaryMood1, e.SecondaryMood2} {
		if m != nil && *m != "" {
			out = append(out, *m)
		}
	}
	return out
}

// Tag is either pre-built (UserID nil, shared, not deletable) or owned by one user.
type Tag struct {
	ID         uint64    `gorm:"primaryKey"`
	Name       string    `gorm:"size:50;not null;index:idx_tags_name_user,priority:1"`
	Color      string    `gorm:"size:7;not null;default:'#6c757d'"`
	IsPreBuilt bool      `gorm:"not null;default:false"`
	UserID     *uint64   `gorm:"index:idx_tags_name_user,priority:2"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (Tag) TableName() string { return "tags" }

// EntryTag links an entry to a tag. The set for an entry is always replaced whole.
type EntryTag struct {
	EntryID uint64 `gorm:"primaryKey"`
	TagID   uint64 `gorm:"primaryKey;index"`
	Tag     Tag    `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}

func (EntryTag) TableName() string { return "entry_tags" }

// Streak is a per-user cache derived from the distinct entry dates.
// LastEntryDate nil means the user has never written.
type Streak struct {
	ID            uint64     `gorm:"primaryKey"`
	UserID        uint64     `gorm:"uniqueIndex;not null"`
	CurrentStreak int        `gorm:"not null;default:0"`
	LongestStreak int        `gorm:"not null;default:0"`
	LastEntryDate *time.Time `gorm:"type:date"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

func (Streak) TableName() string { return "streaks" }

// EntryInput carries the writable fields of CreateOrUpdateEntry.
// A nil TagIDs means "not supplied".
type EntryInput struct {
	Date           time.Time
	Title          string   `json:"title" validate:"notblank,max=200"`
	Body           string   `json:"body" validate:"notblank"`
	MarkdownBody   *string  `json:"markdown_body"`
	PrimaryMood    string   `json:"primary_mood" validate:"notblank,max=50"`
	SecondaryMood1 *string  `json:"secondary_mood_1" validate:"omitempty,max=50"`
	SecondaryMood2 *string  `json:"secondary_mood_2" validate:"omitempty,max=50"`
	TagIDs         []uint64 `json:"tag_ids"`
}

// TagInput carries the fields of CreateTag.
type TagInput struct {
	Name     string `json:"name" validate:"notblank,max=50"`
	Color    string `json:"color" validate:"omitempty,hexcolor6"`
	PreBuilt bool   `json:"-"`
}

// TagLinks tells the store what to do with an entry's tag links on save.
type TagLinks struct {
	Replace bool
	IDs     []uint64
}

// Filter is the optional predicate set of Search and SearchCount.
type Filter struct {
	Term      string
	StartDate *time.Time
	EndDate   *time.Time
	Mood      string
	TagID     *uint64
}

// Page is one page of search results with the totals a pager needs.
type Page struct {
	Entries    []Entry
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// WordCountPoint is one sample of the word count trend.
type WordCountPoint struct {
	Date      time.Time
	WordCount int
}
