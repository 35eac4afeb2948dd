package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "rentboard/internal/domain/auth"
	domainuser "rentboard/internal/domain/user"
	"rentboard/internal/infra/security"
	"rentboard/internal/infra/storage/memory"
)

type sequenceTokens struct{ n int }

func (g *sequenceTokens) NewToken() (string, error) {
	g.n++
	return fmt.Sprintf("tok-%d", g.n), nil
}

func newService() *Service {
	return &Service{
		Users:     memory.NewUserRepository(),
		Sessions:  memory.NewSessionStore(),
		Passwords: security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    &sequenceTokens{},
	}
}

func TestService_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	reg, err := svc.Register(ctx, RegisterParams{Email: " Vlasnik@Example.com ", Name: "Vlasnik", Password: "lozinka", Role: "owner"})
	require.NoError(t, err)
	assert.Equal(t, "vlasnik@example.com", reg.User.Email)
	assert.Equal(t, domainuser.RoleOwner, reg.User.Role)
	assert.Equal(t, "tok-1", reg.Token)

	_, err = svc.Register(ctx, RegisterParams{Email: "vlasnik@example.com", Name: "Drugi", Password: "lozinka"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	_, err = svc.Login(ctx, LoginParams{Email: "vlasnik@example.com", Password: "netacno"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginParams{Email: "nepoznat@example.com", Password: "lozinka"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := svc.Login(ctx, LoginParams{Email: "VLASNIK@example.com", Password: "lozinka"})
	require.NoError(t, err)

	resolved, err := svc.ResolveToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, resolved.User.ID)

	require.NoError(t, svc.Logout(ctx, login.Token))
	_, err = svc.ResolveToken(ctx, login.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.Register(ctx, RegisterParams{Email: "a@b.rs", Name: "A", Password: "12345"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	_, err = svc.Register(ctx, RegisterParams{Email: "a@b.rs", Name: "A", Password: "123456", Role: "admin"})
	assert.ErrorIs(t, err, domainuser.ErrInvalidRole)
	_, err = svc.Register(ctx, RegisterParams{Email: "", Name: "A", Password: "123456"})
	assert.ErrorIs(t, err, domainuser.ErrEmailRequired)

	res, err := svc.Register(ctx, RegisterParams{Email: "a@b.rs", Name: "A", Password: "123456"})
	require.NoError(t, err)
	assert.Equal(t, domainuser.RoleTenant, res.User.Role)
}

func TestService_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return clock }
	svc.SessionTTL = time.Hour

	res, err := svc.Register(ctx, RegisterParams{Email: "a@b.rs", Name: "A", Password: "123456"})
	require.NoError(t, err)
	_, err = svc.ResolveToken(ctx, res.Token)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Hour)
	_, err = svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	_, err = svc.ResolveToken(ctx, "  ")
	assert.ErrorIs(t, err, domainauth.ErrTokenRequired)
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	svc.NewID = func() string { return "u-1" }

	res, err := svc.Register(ctx, RegisterParams{Email: "zakupac@example.com", Name: "Ana", Password: "lozinka", Phone: "060"})
	require.NoError(t, err)
	assert.Equal(t, domainuser.ID("u-1"), res.User.ID)

	updated, err := svc.UpdateProfile(ctx, "u-1", ProfileParams{Name: "  Ana Anić ", Phone: "+381 60 111"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Anić", updated.Name)
	assert.Equal(t, "+381 60 111", updated.Phone)
	assert.Equal(t, "zakupac@example.com", updated.Email)

	resolved, err := svc.ResolveToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ana Anić", resolved.User.Name)

	_, err = svc.UpdateProfile(ctx, "u-1", ProfileParams{Name: " "})
	assert.ErrorIs(t, err, domainuser.ErrNameRequired)
	_, err = svc.UpdateProfile(ctx, "missing", ProfileParams{Name: "X"})
	assert.ErrorIs(t, err, domainuser.ErrNotFound)
}

func TestService_Unconfigured(t *testing.T) {
	_, err := (&Service{}).Login(context.Background(), LoginParams{Email: "a@b.rs", Password: "123456"})
	assert.Error(t, err)
}
