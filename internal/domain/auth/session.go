package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentboard/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
)

// Token is the opaque bearer credential handed to clients.
type Token string

// Session binds a bearer token to one account until ExpiresAt. Role is a snapshot
// taken at sign-in.
type Session struct {
	Token     Token
	UserID    user.ID
	Role      user.Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	Token  Token
	UserID user.ID
	Role   user.Role
	TTL    time.Duration
	Now    time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	token := Token(strings.TrimSpace(string(params.Token)))
	switch {
	case token == "":
		return nil, ErrTokenRequired
	case strings.TrimSpace(string(params.UserID)) == "":
		return nil, ErrUserRequired
	case params.TTL <= 0:
		return nil, ErrTTLInvalid
	}
	opened := utcOrNow(params.Now)
	return &Session{
		Token:     token,
		UserID:    params.UserID,
		Role:      params.Role,
		CreatedAt: opened,
		ExpiresAt: opened.Add(params.TTL),
	}, nil
}

// Expired reports whether the session is no longer valid at the given instant.
// A session is dead at exactly ExpiresAt.
func (s *Session) Expired(at time.Time) bool {
	return !utcOrNow(at).Before(s.ExpiresAt)
}

func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	// DeleteByUser drops every session of an account.
	DeleteByUser(ctx context.Context, userID user.ID) error
}
