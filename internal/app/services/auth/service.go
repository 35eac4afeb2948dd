package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "rentboard/internal/domain/auth"
	domainuser "rentboard/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 6 characters")
	errNotConfigured      = errors.New("auth: service is not configured")
)

const (
	minPasswordLength = 6
	defaultSessionTTL = 24 * time.Hour
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// Service owns accounts and bearer sessions. Every sign-in opens a fresh session;
// sessions are dropped on logout, on expiry, or when their user disappears.
type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	NewID      func() string
	Now        func() time.Time
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
	// Role is "owner" or "tenant"; empty means tenant.
	Role  string
	Phone string
}

type LoginParams struct {
	Email    string
	Password string
}

type ProfileParams struct {
	Name  string
	Phone string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

func (p RegisterParams) validate() (email string, role domainuser.Role, err error) {
	email = domainuser.NormalizeEmail(p.Email)
	switch {
	case email == "":
		return "", "", domainuser.ErrEmailRequired
	case strings.TrimSpace(p.Name) == "":
		return "", "", domainuser.ErrNameRequired
	case utf8.RuneCountInString(p.Password) < minPasswordLength:
		return "", "", ErrPasswordTooShort
	}
	role, err = domainuser.ParseRole(p.Role)
	return email, role, err
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if !s.configured() {
		return nil, errNotConfigured
	}
	email, role, err := params.validate()
	if err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(s.newID()),
		Email:        email,
		Name:         params.Name,
		Phone:        params.Phone,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logInfo("account created", "user_id", user.ID, "role", user.Role)
	return s.authenticate(ctx, user)
}

// Login checks credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if !s.configured() {
		return nil, errNotConfigured
	}
	user, err := s.Users.ByEmail(ctx, domainuser.NormalizeEmail(params.Email))
	switch {
	case errors.Is(err, domainuser.ErrNotFound):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if s.Passwords.Compare(user.PasswordHash, params.Password) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.authenticate(ctx, user)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if !s.configured() {
		return errNotConfigured
	}
	if token = strings.TrimSpace(token); token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

// ResolveToken maps a bearer token to its user.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if !s.configured() {
		return nil, errNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		s.revoke(ctx, session.Token)
		return nil, domainauth.ErrSessionNotFound
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if errors.Is(err, domainuser.ErrNotFound) {
		if err := s.Sessions.DeleteByUser(ctx, session.UserID); err != nil && s.Logger != nil {
			s.Logger.Warn("orphaned sessions not revoked", "user_id", session.UserID, "error", err)
		}
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ResolveResult{User: user, Session: session}, nil
}

// UpdateProfile changes the display name and phone of an account. Email and role
// are fixed after registration.
func (s *Service) UpdateProfile(ctx context.Context, userID string, params ProfileParams) (*domainuser.User, error) {
	if !s.configured() {
		return nil, errNotConfigured
	}
	user, err := s.Users.ByID(ctx, domainuser.ID(strings.TrimSpace(userID)))
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(params.Name, params.Phone, s.now()); err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logInfo("profile updated", "user_id", user.ID)
	return user, nil
}

func (s *Service) authenticate(ctx context.Context, user *domainuser.User) (*AuthResult, error) {
	raw, err := s.Tokens.NewToken()
	if err != nil {
		return nil, fmt.Errorf("auth: new token: %w", err)
	}
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(raw),
		UserID: user.ID,
		Role:   user.Role,
		TTL:    ttl,
		Now:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.logInfo("session opened", "user_id", user.ID)
	return &AuthResult{User: user, Token: raw}, nil
}

func (s *Service) revoke(ctx context.Context, token domainauth.Token) {
	if err := s.Sessions.Delete(ctx, token); err != nil && s.Logger != nil {
		s.Logger.Warn("session not revoked", "error", err)
	}
}

func (s *Service) configured() bool {
	return s.Users != nil && s.Sessions != nil && s.Passwords != nil && s.Tokens != nil
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Info(msg, args...)
	}
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
