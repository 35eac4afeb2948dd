package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentboard/internal/app/outbox"
	domainlistings "rentboard/internal/domain/listings"
	domainuser "rentboard/internal/domain/user"
)

var (
	ErrOwnerRoleRequired = errors.New("catalog: only owners can publish listings")
	ErrNoImages          = errors.New("catalog: at least one image is required")
	ErrUploaderMissing   = errors.New("catalog: image storage unavailable")
)

// Uploader stores image bytes and returns the public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}

type Service struct {
	Listings domainlistings.Repository
	Users    domainuser.Repository
	Uploader Uploader
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	NewID    func() string
	Now      func() time.Time
	Logger   *slog.Logger
}

type CreateParams struct {
	Title        string
	Description  string
	PropertyType string
	Location     domainlistings.Location
	PriceCents   int64
	Amenities    []string
}

// ImageUpload is one file of a multipart upload.
type ImageUpload struct {
	Filename    string
	ContentType string
	AltText     string
	Reader      io.Reader
}

func (s *Service) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	params.IncludeInactive = false
	params.Owner = ""
	return s.Listings.Search(ctx, params)
}

// Get returns an active listing; inactive ones are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*domainlistings.Listing, error) {
	listing, err := s.Listings.ByID(ctx, domainlistings.ListingID(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	if !listing.Active {
		return nil, domainlistings.ErrNotFound
	}
	return listing, nil
}

// ByID returns a listing regardless of its state.
func (s *Service) ByID(ctx context.Context, id string) (*domainlistings.Listing, error) {
	return s.Listings.ByID(ctx, domainlistings.ListingID(strings.TrimSpace(id)))
}

// ByOwner lists an owner's listings including deactivated ones.
func (s *Service) ByOwner(ctx context.Context, owner string, page, limit int) (domainlistings.SearchResult, error) {
	if strings.TrimSpace(owner) == "" {
		return domainlistings.SearchResult{}, domainlistings.ErrOwnerRequired
	}
	return s.Listings.Search(ctx, domainlistings.SearchParams{
		Owner:           domainlistings.OwnerID(owner),
		Page:            page,
		Limit:           limit,
		IncludeInactive: true,
	})
}

func (s *Service) Featured(ctx context.Context) ([]*domainlistings.Listing, error) {
	result, err := s.Listings.Search(ctx, domainlistings.SearchParams{Limit: domainlistings.FeaturedLimit})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (s *Service) Create(ctx context.Context, ownerID string, params CreateParams) (*domainlistings.Listing, error) {
	owner, err := s.Users.ByID(ctx, domainuser.ID(ownerID))
	if err != nil {
		return nil, err
	}
	if !owner.IsOwner() {
		return nil, ErrOwnerRoleRequired
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:           domainlistings.ListingID(s.newID()),
		Owner:        domainlistings.OwnerID(owner.ID),
		Title:        params.Title,
		Description:  params.Description,
		PropertyType: params.PropertyType,
		Location:     params.Location,
		PriceCents:   params.PriceCents,
		Amenities:    params.Amenities,
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, listing); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("listing created", "listing_id", listing.ID, "owner_id", listing.Owner)
	}
	return listing, nil
}

func (s *Service) Update(ctx context.Context, by, id string, changes domainlistings.Changes) (*domainlistings.Listing, error) {
	listing, err := s.Listings.ByID(ctx, domainlistings.ListingID(id))
	if err != nil {
		return nil, err
	}
	if err := listing.Update(domainlistings.OwnerID(by), changes, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Deactivate hides a listing. Messages about it stay readable.
func (s *Service) Deactivate(ctx context.Context, by, id string) error {
	listing, err := s.Listings.ByID(ctx, domainlistings.ListingID(id))
	if err != nil {
		return err
	}
	if err := listing.Deactivate(domainlistings.OwnerID(by), s.now()); err != nil {
		return err
	}
	if err := s.save(ctx, listing); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("listing deactivated", "listing_id", listing.ID, "owner_id", by)
	}
	return nil
}

// UploadImages stores every file under "<listingID>/<unixnano>-<i>.<ext>" and appends
// the resulting URLs to the listing in upload order.
func (s *Service) UploadImages(ctx context.Context, by, id string, files []ImageUpload) (*domainlistings.Listing, error) {
	if s.Uploader == nil {
		return nil, ErrUploaderMissing
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	listing, err := s.Listings.ByID(ctx, domainlistings.ListingID(id))
	if err != nil {
		return nil, err
	}
	if listing.Owner != domainlistings.OwnerID(by) {
		return nil, domainlistings.ErrNotOwner
	}

	now := s.now()
	for i, file := range files {
		if file.Reader == nil {
			return nil, fmt.Errorf("catalog: image %d has no content", i)
		}
		key := ImageKey(string(listing.ID), now, i, file.Filename)
		url, err := s.Uploader.Upload(ctx, key, file.Reader, file.ContentType)
		if err != nil {
			return nil, fmt.Errorf("catalog: upload image: %w", err)
		}
		listing.AddImage(domainlistings.Image{
			ID:        s.newID(),
			URL:       url,
			AltText:   strings.TrimSpace(file.AltText),
			CreatedAt: now,
		})
	}
	if err := s.save(ctx, listing); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("listing images uploaded", "listing_id", listing.ID, "count", len(files))
	}
	return listing, nil
}

// ImageKey builds the object key for the i-th file of an upload batch.
func ImageKey(listingID string, at time.Time, i int, filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d-%d.%s", listingID, at.UnixNano(), i, ext)
}

func (s *Service) save(ctx context.Context, listing *domainlistings.Listing) error {
	if err := s.Listings.Save(ctx, listing); err != nil {
		return fmt.Errorf("catalog: save listing: %w", err)
	}
	if s.Outbox == nil {
		listing.Drain()
		return nil
	}
	if err := outbox.Publish(ctx, s.Outbox, s.Encoder, listing.Drain()...); err != nil && s.Logger != nil {
		s.Logger.Warn("listing events not published", "listing_id", listing.ID, "error", err)
	}
	return nil
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
