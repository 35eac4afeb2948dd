package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authsvc "rentboard/internal/app/services/auth"
	"rentboard/internal/app/services/catalog"
	"rentboard/internal/app/services/inbox"
	"rentboard/internal/infra/config"
	"rentboard/internal/infra/obs"
	"rentboard/internal/infra/security"
	"rentboard/internal/infra/storage/memory"
)

type recordingUploader struct {
	keys []string
}

func (u *recordingUploader) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	u.keys = append(u.keys, key)
	return "http://images.test/" + key, nil
}

type testEnv struct {
	router   *gin.Engine
	outbox   *memory.Outbox
	uploader *recordingUploader
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewUserRepository()
	listings := memory.NewListingRepository()
	box := memory.NewRecordingOutbox()
	uploader := &recordingUploader{}

	authService := &authsvc.Service{
		Users:     users,
		Sessions:  memory.NewSessionStore(),
		Passwords: security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    security.RandomTokenGenerator{},
	}
	handlers := Handlers{
		Auth: AuthHandler{Service: authService},
		Listings: ListingHandler{Service: &catalog.Service{
			Listings: listings,
			Users:    users,
			Uploader: uploader,
			Outbox:   box,
		}},
		Messages: MessageHandler{
			Service: &inbox.Service{
				Messages: memory.NewMessageRepository(),
				Listings: listings,
				Users:    users,
				Outbox:   box,
			},
			Idempotency: memory.NewIdempotencyStore(),
		},
		AuthMiddleware: AuthMiddleware{Service: authService}.Handle,
	}
	cfg := config.Config{Env: "test", AllowedOrigins: []string{"http://localhost:5173"}}
	router := NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{}, handlers)
	return testEnv{router: router, outbox: box, uploader: uploader}
}

func (e testEnv) do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register signs a user up and returns its token and id.
func (e testEnv) register(t *testing.T, email, name, role string) (string, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"name":     name,
		"password": "lozinka123",
		"role":     role,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	return resp.Token, resp.User.ID
}

func (e testEnv) createListing(t *testing.T, token, title string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/listings", token, map[string]any{
		"title":       title,
		"city":        "Novi Sad",
		"address":     "Zmaj Jovina 3",
		"price_cents": 42000,
		"amenities":   []string{"wifi"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	return resp.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
