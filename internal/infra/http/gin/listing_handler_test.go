package ginserver

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type listingBody struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	PriceCents int64    `json:"price_cents"`
	Amenities  []string `json:"amenities"`
	Active     bool     `json:"active"`
	CoverURL   string   `json:"cover_url"`
	Images     []struct {
		URL     string `json:"url"`
		AltText string `json:"alt_text"`
	} `json:"images"`
}

func multipartImages(t *testing.T, files map[string][]byte, alt string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if alt != "" {
		require.NoError(t, mw.WriteField("alt_text", alt))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestListingHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ownerToken, ownerID := env.register(t, "vlasnik@example.com", "Vlasnik", "owner")
	otherToken, _ := env.register(t, "drugi@example.com", "Drugi", "owner")
	tenantToken, _ := env.register(t, "stanar@example.com", "Stanar", "tenant")

	w := env.do(t, http.MethodPost, "/api/v1/listings", tenantToken, map[string]any{"title": "Soba", "city": "Niš", "price_cents": 1000}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/listings", ownerToken, map[string]any{"title": "Soba", "price_cents": 1000}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := env.createListing(t, ownerToken, "Stan kod Spensa")

	w = env.do(t, http.MethodGet, "/api/v1/listings?location=novi&amenities=wifi", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []listingBody `json:"items"`
		Total int           `json:"total"`
	}
	decode(t, w, &page)
	assert.Equal(t, 1, page.Total)

	w = env.do(t, http.MethodGet, "/api/v1/listings?page=4611686018427387904", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page.Items = nil
	decode(t, w, &page)
	assert.Equal(t, 1, page.Total)
	assert.Empty(t, page.Items)

	w = env.do(t, http.MethodPut, "/api/v1/listings/"+id, otherToken, map[string]any{"price_cents": 50000}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/listings/"+id, ownerToken, map[string]any{"price_cents": 50000, "city": "Beograd"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated listingBody
	decode(t, w, &updated)
	assert.Equal(t, int64(50000), updated.PriceCents)
	assert.Equal(t, "Beograd", updated.City)
	assert.Equal(t, "Zmaj Jovina 3", updated.Address)

	w = env.do(t, http.MethodDelete, "/api/v1/listings/"+id, ownerToken, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/listings/"+id, "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, codeListingNotFound, resp.Error)

	w = env.do(t, http.MethodGet, "/api/v1/me/listings", ownerToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	require.Len(t, page.Items, 1)
	assert.False(t, page.Items[0].Active)
	assert.NotEmpty(t, ownerID)

	w = env.do(t, http.MethodGet, "/api/v1/me/listings", tenantToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListingHandler_UploadImages(t *testing.T) {
	env := newTestEnv(t)
	ownerToken, _ := env.register(t, "vlasnik@example.com", "Vlasnik", "owner")
	otherToken, _ := env.register(t, "drugi@example.com", "Drugi", "owner")
	id := env.createListing(t, ownerToken, "Studio")

	upload := func(token string, files map[string][]byte, alt string) *httptest.ResponseRecorder {
		body, contentType := multipartImages(t, files, alt)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/"+id+"/images", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	w := upload(ownerToken, map[string][]byte{"dnevna.png": pngHeader}, "Dnevna soba")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listing listingBody
	decode(t, w, &listing)
	require.Len(t, listing.Images, 1)
	assert.Equal(t, "Dnevna soba", listing.Images[0].AltText)
	require.Len(t, env.uploader.keys, 1)
	assert.Regexp(t, `^`+id+`/\d+-0\.png$`, env.uploader.keys[0])
	assert.Equal(t, "http://images.test/"+env.uploader.keys[0], listing.CoverURL)

	w = upload(otherToken, map[string][]byte{"x.png": pngHeader}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = upload(ownerToken, map[string][]byte{"notes.txt": []byte("obično tekst")}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(ownerToken, map[string][]byte{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, codeNoImages, resp.Error)
}

func TestListingHandler_Featured(t *testing.T) {
	env := newTestEnv(t)
	ownerToken, _ := env.register(t, "vlasnik@example.com", "Vlasnik", "owner")
	for _, title := range []string{"A", "B", "C"} {
		env.createListing(t, ownerToken, "Stan "+title)
	}
	w := env.do(t, http.MethodGet, "/api/v1/listings/featured", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []listingBody `json:"items"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Items, 3)
}
