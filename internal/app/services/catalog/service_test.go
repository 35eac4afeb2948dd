package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainlistings "rentboard/internal/domain/listings"
	domainuser "rentboard/internal/domain/user"
	"rentboard/internal/infra/storage/memory"
)

type fakeUploader struct {
	keys []string
	fail bool
}

func (u *fakeUploader) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if u.fail {
		return "", errors.New("bucket offline")
	}
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	u.keys = append(u.keys, key)
	return "http://cdn.test/listing-images/" + key, nil
}

func newService(t *testing.T) (*Service, *memory.Outbox, *fakeUploader) {
	t.Helper()
	users := memory.NewUserRepository()
	for id, role := range map[string]domainuser.Role{"owner": domainuser.RoleOwner, "other": domainuser.RoleOwner, "tenant": domainuser.RoleTenant} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(id), Email: id + "@example.com", Name: id, Role: role, PasswordHash: "x"})
		require.NoError(t, err)
		require.NoError(t, users.Save(context.Background(), u))
	}
	box := memory.NewRecordingOutbox()
	uploader := &fakeUploader{}
	clock := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	seq := 0
	return &Service{
		Listings: memory.NewListingRepository(),
		Users:    users,
		Uploader: uploader,
		Outbox:   box,
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}, box, uploader
}

func createParams(title string) CreateParams {
	return CreateParams{
		Title:      title,
		Location:   domainlistings.Location{City: "Novi Sad", Address: "Bulevar 1"},
		PriceCents: 45000,
		Amenities:  []string{"WiFi", "parking"},
	}
}

func TestService_CreateRequiresOwnerRole(t *testing.T) {
	ctx := context.Background()
	svc, box, _ := newService(t)

	listing, err := svc.Create(ctx, "owner", createParams("Stan u centru"))
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingID("id-1"), listing.ID)
	assert.Equal(t, domainlistings.PropertyApartment, listing.PropertyType)
	assert.Equal(t, []string{"wifi", "parking"}, listing.Amenities)
	assert.True(t, listing.Active)

	_, err = svc.Create(ctx, "tenant", createParams("Soba"))
	assert.ErrorIs(t, err, ErrOwnerRoleRequired)

	_, err = svc.Create(ctx, "nobody", createParams("Soba"))
	assert.ErrorIs(t, err, domainuser.ErrNotFound)

	delivered := box.Delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, "listing.created", delivered[0].Name)
}

func TestService_UpdateAndDeactivate(t *testing.T) {
	ctx := context.Background()
	svc, box, _ := newService(t)
	listing, err := svc.Create(ctx, "owner", createParams("Kuća"))
	require.NoError(t, err)

	price := int64(60000)
	_, err = svc.Update(ctx, "other", string(listing.ID), domainlistings.Changes{PriceCents: &price})
	assert.ErrorIs(t, err, domainlistings.ErrNotOwner)

	updated, err := svc.Update(ctx, "owner", string(listing.ID), domainlistings.Changes{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, price, updated.PriceCents)
	assert.Equal(t, "Kuća", updated.Title)

	assert.ErrorIs(t, svc.Deactivate(ctx, "other", string(listing.ID)), domainlistings.ErrNotOwner)
	require.NoError(t, svc.Deactivate(ctx, "owner", string(listing.ID)))

	_, err = svc.Get(ctx, string(listing.ID))
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)

	mine, err := svc.ByOwner(ctx, "owner", 1, 10)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.False(t, mine.Items[0].Active)

	names := []string{}
	for _, rec := range box.Delivered() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"listing.created", "listing.updated", "listing.deactivated"}, names)
}

func TestService_SearchAndFeatured(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	for i := 0; i < 8; i++ {
		_, err := svc.Create(ctx, "owner", createParams(fmt.Sprintf("Stan %d", i)))
		require.NoError(t, err)
	}
	hidden, err := svc.Create(ctx, "other", CreateParams{Title: "Kancelarija", PropertyType: "office", Location: domainlistings.Location{City: "Beograd"}, PriceCents: 90000})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, "other", string(hidden.ID)))

	featured, err := svc.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, domainlistings.FeaturedLimit)
	assert.Equal(t, "Stan 7", featured[0].Title)

	result, err := svc.Search(ctx, domainlistings.SearchParams{Location: "novi", Page: 2, Limit: 5, IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, 8, result.Total)
	assert.Equal(t, 2, result.TotalPages)
	assert.Len(t, result.Items, 3)

	none, err := svc.Search(ctx, domainlistings.SearchParams{PropertyType: "office", IncludeInactive: true})
	require.NoError(t, err)
	assert.Zero(t, none.Total)
}

func TestService_UploadImages(t *testing.T) {
	ctx := context.Background()
	svc, _, uploader := newService(t)
	listing, err := svc.Create(ctx, "owner", createParams("Studio"))
	require.NoError(t, err)

	files := []ImageUpload{
		{Filename: "front.PNG", ContentType: "image/png", Reader: strings.NewReader("a")},
		{Filename: "noext", Reader: strings.NewReader("b")},
	}
	_, err = svc.UploadImages(ctx, "other", string(listing.ID), files)
	assert.ErrorIs(t, err, domainlistings.ErrNotOwner)

	updated, err := svc.UploadImages(ctx, "owner", string(listing.ID), files)
	require.NoError(t, err)
	require.Len(t, updated.Images, 2)
	require.Len(t, uploader.keys, 2)
	assert.Regexp(t, `^id-1/\d+-0\.png$`, uploader.keys[0])
	assert.Regexp(t, `^id-1/\d+-1\.jpg$`, uploader.keys[1])
	assert.Equal(t, "http://cdn.test/listing-images/"+uploader.keys[0], updated.CoverURL())

	stored, err := svc.Get(ctx, string(listing.ID))
	require.NoError(t, err)
	assert.Len(t, stored.Images, 2)

	_, err = svc.UploadImages(ctx, "owner", string(listing.ID), nil)
	assert.ErrorIs(t, err, ErrNoImages)

	uploader.fail = true
	_, err = svc.UploadImages(ctx, "owner", string(listing.ID), []ImageUpload{{Filename: "x.jpg", Reader: strings.NewReader("c")}})
	assert.Error(t, err)
}

func TestImageKey(t *testing.T) {
	at := time.Unix(0, 1700000000000000000)
	assert.Equal(t, "L1/1700000000000000000-3.webp", ImageKey("L1", at, 3, "photo.WEBP"))
}
