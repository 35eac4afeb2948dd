package ginserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_RegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)
	token, id := env.register(t, "Vlasnik@Example.com", "Vlasnik", "owner")
	require.NotEmpty(t, token)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decode(t, w, &me)
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "vlasnik@example.com", me.Email)
	assert.Equal(t, "owner", me.Role)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "vlasnik@example.com", "password": "pogresno"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": " vlasnik@example.com ", "password": "lozinka123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_UpdateMe(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "ana@example.com", "Ana", "tenant")

	w := env.do(t, http.MethodPatch, "/api/v1/auth/me", token, map[string]string{"name": "Ana Anić", "phone": "+381 64 123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	decode(t, w, &me)
	assert.Equal(t, "Ana Anić", me.Name)
	assert.Equal(t, "+381 64 123", me.Phone)

	w = env.do(t, http.MethodPatch, "/api/v1/auth/me", token, map[string]string{"name": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, codeNameRequired, resp.Error)

	w = env.do(t, http.MethodPatch, "/api/v1/auth/me", "", map[string]string{"name": "X"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LocalizedErrors(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana@example.com", "Ana", "")

	body := map[string]string{"email": "ana@example.com", "name": "Ana", "password": "lozinka123"}
	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", body, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, codeEmailTaken, resp.Error)
	assert.Equal(t, "Email adresa je već registrovana.", resp.Message)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", body, map[string]string{"Accept-Language": "en-US,en;q=0.9"})
	decode(t, w, &resp)
	assert.Equal(t, "Email address is already registered.", resp.Message)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "b@example.com", "name": "B", "password": "123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, codePasswordTooShort, resp.Error)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "c@example.com", "name": "C", "password": "lozinka123", "role": "admin"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, codeInvalidRole, resp.Error)
}

func TestPreferredLocale(t *testing.T) {
	cases := map[string]string{
		"":                    "sr",
		"sr-Latn-RS,sr;q=0.9": "sr",
		"en-GB,en;q=0.8":      "en",
		"de;q=0.9, sr;q=0.8":  "sr",
		"en;q=0.3, sr;q=0.9":  "sr",
		"sr;q=0.2, en-US":     "en",
		"de-DE":               "sr",
		"*":                   "sr",
		" HR-hr ":             "sr",
		"bs-BA,en;q=0.5":      "sr",
		"not a tag!!":         "sr",
	}
	for header, want := range cases {
		assert.Equal(t, want, preferredLocale(header), header)
	}
}
