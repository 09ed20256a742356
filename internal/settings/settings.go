// Package settings keeps per-user preferences: the UI theme and the optional journal PIN.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"daybook/internal/apperr"
	"daybook/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeCustom = "custom"
)

type UserSettings struct {
	ID                   uint64  `gorm:"primaryKey" json:"-"`
	UserID               uint64  `gorm:"uniqueIndex;not null" json:"user_id"`
	Theme                string  `gorm:"size:20;not null;default:'light'" json:"theme"`
	CustomThemeColors    *string `gorm:"type:text" json:"custom_theme_colors,omitempty"`
	RequirePinForJournal bool    `gorm:"not null;default:false" json:"require_pin"`
	// JournalPinHash is a bcrypt hash; it never leaves the server.
	JournalPinHash *string   `gorm:"type:text" json:"-"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (UserSettings) TableName() string { return "user_settings" }

// Store persists one settings row per user.
type Store interface {
	// Get returns ErrNotFound when the user has no row yet.
	Get(ctx context.Context, userID uint64) (*UserSettings, error)
	// Save upserts the row of s.UserID.
	Save(ctx context.Context, s *UserSettings) error
}

type ThemeInput struct {
	Theme        string          `json:"theme" validate:"required,oneof=light dark custom"`
	CustomColors json.RawMessage `json:"custom_colors"`
}

type PinInput struct {
	Pin string `json:"pin" validate:"required,min=4,max=12,numeric"`
}

type Service struct {
	Store    Store
	Validate *validation.Validator
	Log      *slog.Logger
	Now      func() time.Time
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{Store: store, Validate: validation.New(), Log: log, Now: time.Now}
}

// Get returns the settings of userID, creating the defaults on first access.
func (s *Service) Get(ctx context.Context, userID uint64) (*UserSettings, error) {
	st, err := s.Store.Get(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	st = &UserSettings{UserID: userID, Theme: ThemeLight, UpdatedAt: s.Now().UTC()}
	if err := s.Store.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateTheme sets the theme. Custom colors are kept only for the custom theme and
// must be a JSON object.
func (s *Service) UpdateTheme(ctx context.Context, userID uint64, in ThemeInput) (*UserSettings, error) {
	in.Theme = strings.ToLower(strings.TrimSpace(in.Theme))
	if err := s.Validate.Validate(in); err != nil {
		return nil, err
	}

	var colors *string
	if in.Theme == ThemeCustom && len(in.CustomColors) > 0 && string(in.CustomColors) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(in.CustomColors, &obj); err != nil {
			return nil, apperr.Validation("custom_colors must be a JSON object")
		}
		c := string(in.CustomColors)
		colors = &c
	}

	st, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	st.Theme = in.Theme
	st.CustomThemeColors = colors
	st.UpdatedAt = s.Now().UTC()
	if err := s.Store.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// SetPin requires pin for journal access from now on.
func (s *Service) SetPin(ctx context.Context, userID uint64, in PinInput) error {
	in.Pin = strings.TrimSpace(in.Pin)
	if err := s.Validate.Validate(in); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	st, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	h := string(hash)
	st.JournalPinHash = &h
	st.RequirePinForJournal = true
	st.UpdatedAt = s.Now().UTC()
	if err := s.Store.Save(ctx, st); err != nil {
		return err
	}
	s.Log.Info("journal pin set", "user_id", userID)
	return nil
}

// VerifyPin reports whether pin unlocks the journal. It is always true when no PIN
// is required.
func (s *Service) VerifyPin(ctx context.Context, userID uint64, pin string) (bool, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if !st.RequirePinForJournal || st.JournalPinHash == nil || *st.JournalPinHash == "" {
		return true, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(*st.JournalPinHash), []byte(strings.TrimSpace(pin))) == nil, nil
}

// DisablePin removes the PIN requirement.
func (s *Service) DisablePin(ctx context.Context, userID uint64) error {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	st.RequirePinForJournal = false
	st.JournalPinHash = nil
	st.UpdatedAt = s.Now().UTC()
	if err := s.Store.Save(ctx, st); err != nil {
		return err
	}
	s.Log.Info("journal pin disabled", "user_id", userID)
	return nil
}

// GormStore implements Store on the user_settings table.
type GormStore struct {
	DB *gorm.DB
}

func (g *GormStore) Get(ctx context.Context, userID uint64) (*UserSettings, error) {
	var st UserSettings
	err := g.DB.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("find settings", err)
	}
	return &st, nil
}

func (g *GormStore) Save(ctx context.Context, st *UserSettings) error {
	err := g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"theme", "custom_theme_colors", "require_pin_for_journal", "journal_pin_hash", "updated_at",
		}),
	}).Create(st).Error
	if err != nil {
		return apperr.Storage("save settings", err)
	}
	return nil
}
