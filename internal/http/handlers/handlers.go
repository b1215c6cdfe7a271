// Package handlers implements the host application's endpoints:
//   - GET    /                 (home)
//   - POST   /users            (sign up)
//   - POST   /users/sign_in    (sign in)
//   - DELETE /users/sign_out   (sign out)
//   - GET    /users/{id}       (profile)
//   - GET    {mount}/{messageboard_id}/topics/{id}  (legacy topic redirect)
//
// Handlers are transport-thin: they bind input, call application services
// through the narrow interfaces below and translate results into responses.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/beast-forums/internal/domain"
	"github.com/tbourn/beast-forums/internal/services"
)

//
// Service contracts (context-aware)
//

// AccountService registers users and manages their sessions.
type AccountService interface {
	SignUp(ctx context.Context, in services.SignUpInput) (*domain.User, *domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)
	SignOut(ctx context.Context, token string) error
}

// ProfileService reads public user profiles.
type ProfileService interface {
	Profile(ctx context.Context, id uint) (*services.UserProfile, error)
}

// BoardLister lists the forum's messageboards for the home page.
type BoardLister interface {
	Messageboards(ctx context.Context) ([]domain.Messageboard, error)
}

// BoardPather builds mounted URLs into the forum engine.
type BoardPather interface {
	MessageboardsPath() string
	MessageboardPath(messageboardID string) string
}

//
// Handler wiring
//

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Handlers groups the host application's endpoints.
type Handlers struct {
	appName  string
	accounts AccountService
	profiles ProfileService
	boards   BoardLister
	paths    BoardPather
	cookie   SessionCookie
}

// Options configures New.
type Options struct {
	AppName string
	Cookie  SessionCookie
}

// New constructs Handlers bound to the given services.
func New(accounts AccountService, profiles ProfileService, boards BoardLister, paths BoardPather, opts Options) *Handlers {
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = "_beast_session"
	}
	return &Handlers{
		appName:  opts.AppName,
		accounts: accounts,
		profiles: profiles,
		boards:   boards,
		paths:    paths,
		cookie:   opts.Cookie,
	}
}
