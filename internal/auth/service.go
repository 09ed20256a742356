package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"daybook/internal/apperr"
	"daybook/internal/validation"

	"gorm.io/gorm"
)

// Users stores accounts.
type Users interface {
	// CreateUser returns a Conflict error when the username or email is taken.
	CreateUser(ctx context.Context, u *User) error
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id uint64) (*User, error)
}

type RegisterInput struct {
	Username string `json:"username" validate:"notblank,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type Service struct {
	Users    Users
	JWT      *JWT
	Validate *validation.Validator
	Log      *slog.Logger
}

func NewService(users Users, jwtSvc *JWT, log *slog.Logger) *Service {
	return &Service{Users: users, JWT: jwtSvc, Validate: validation.New(), Log: log}
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := s.Validate.Validate(in); err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	u := &User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.JWT.Sign(u.ID)
	if err != nil {
		return nil, "", err
	}
	s.Log.Info("user registered", "user_id", u.ID)
	return u, token, nil
}

// Login checks the credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.Validate.Validate(in); err != nil {
		return nil, "", err
	}

	u, err := s.Users.UserByUsername(ctx, in.Username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, "", apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, "", err
	}
	if !ComparePassword(u.PasswordHash, in.Password) {
		s.Log.Warn("login failed", "user_id", u.ID)
		return nil, "", apperr.Unauthorized("invalid credentials")
	}

	token, err := s.JWT.Sign(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Me returns the account of userID.
func (s *Service) Me(ctx context.Context, userID uint64) (*User, error) {
	return s.Users.UserByID(ctx, userID)
}

// GormUsers implements Users on the users table.
type GormUsers struct {
	DB *gorm.DB
}

func (g *GormUsers) CreateUser(ctx context.Context, u *User) error {
	err := g.DB.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("username or email already used")
	}
	if err != nil {
		return apperr.Storage("create user", err)
	}
	return nil
}

func (g *GormUsers) UserByUsername(ctx context.Context, username string) (*User, error) {
	return g.first(ctx, "username = ?", username)
}

func (g *GormUsers) UserByID(ctx context.Context, id uint64) (*User, error) {
	return g.first(ctx, "id = ?", id)
}

func (g *GormUsers) first(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := g.DB.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Storage("find user", err)
	}
	return &u, nil
}
