package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrEmailInvalid        = errors.New("user: email is invalid")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

type User struct {
	ID           ID
	Email        string
	Name         string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser validates params and returns a user with normalized email, name and phone.
func NewUser(params CreateParams) (*User, error) {
	id := ID(strings.TrimSpace(string(params.ID)))
	email := NormalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)
	switch {
	case id == "":
		return nil, ErrIDRequired
	case email == "":
		return nil, ErrEmailRequired
	case !plausibleEmail(email):
		return nil, ErrEmailInvalid
	case strings.TrimSpace(params.PasswordHash) == "":
		return nil, ErrPasswordHashMissing
	case name == "":
		return nil, ErrNameRequired
	}
	role, err := ParseRole(string(params.Role))
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           id,
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(params.Phone),
		Role:         role,
		PasswordHash: params.PasswordHash,
	}
	u.touch(params.CreatedAt)
	u.CreatedAt = u.UpdatedAt
	return u, nil
}

// plausibleEmail only checks for a non-empty local part and domain.
func plausibleEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@")
}

func (u *User) IsOwner() bool {
	return u != nil && u.Role == RoleOwner
}

func (u *User) UpdateProfile(name, phone string, now time.Time) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameRequired
	}
	u.Name = trimmed
	u.Phone = strings.TrimSpace(phone)
	u.touch(now)
	return nil
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

// ParseRole maps free-form input onto a known role; empty input defaults to tenant.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "tenant":
		return RoleTenant, nil
	case "owner":
		return RoleOwner, nil
	default:
		return "", ErrInvalidRole
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
