// Package services – AuthService
//
// This file implements registration, sign-in and session handling for the
// host application. Passwords are stored as bcrypt hashes; sessions are
// opaque random tokens persisted with an expiry.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/repo"
)

// SignUpInput carries registration fields.
type SignUpInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate checks the registration fields.
func (in SignUpInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 255), is.EmailFormat),
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 100)),
		// bcrypt ignores input past 72 bytes.
		validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
	)
}

// AuthService manages users' credentials and sessions.
type AuthService struct {
	DB         *gorm.DB
	SessionTTL time.Duration
	// Cost is the bcrypt work factor; values below bcrypt.MinCost use the default.
	Cost int

	now func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, ttl time.Duration) *AuthService {
	return &AuthService{DB: db, SessionTTL: ttl, Cost: bcrypt.DefaultCost}
}

func (s *AuthService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *AuthService) cost() int {
	if s.Cost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

// SignUp registers a user and opens a session for them.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*domain.User, *domain.Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = normalizeTitle(in.Name)
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, nil, err
	}

	var (
		u    *domain.User
		sess *domain.Session
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = repo.CreateUser(ctx, tx, in.Email, in.Name, string(hash)); err != nil {
			return err
		}
		sess, err = repo.CreateSession(ctx, tx, u.ID, s.SessionTTL)
		return err
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}
	return u, sess, nil
}

// SignIn verifies credentials and opens a new session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	sess, err := repo.CreateSession(ctx, s.DB, u.ID, s.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// SignOut revokes a session token. Unknown tokens are ignored.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return repo.DeleteSession(ctx, s.DB, token)
}

// Authenticate resolves a session token to its user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (uint, error) {
	sess, err := repo.GetSession(ctx, s.DB, token, s.clock())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUnauthenticated
		}
		return 0, err
	}
	return sess.UserID, nil
}

// PurgeExpired deletes expired sessions and returns how many were removed.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredSessions(ctx, s.DB, s.clock())
}
