package listings

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"rentboard/internal/domain/shared/events"
)

var (
	ErrIDRequired            = errors.New("listings: id is required")
	ErrOwnerRequired         = errors.New("listings: owner is required")
	ErrTitleRequired         = errors.New("listings: title is required")
	ErrCityRequired          = errors.New("listings: city is required")
	ErrPriceInvalid          = errors.New("listings: price must be positive")
	ErrPropertyTypeInvalid   = errors.New("listings: unknown property type")
	ErrAmenityInvalid        = errors.New("listings: unknown amenity")
	ErrNotFound              = errors.New("listings: listing not found")
	ErrNotOwner              = errors.New("listings: only the owner may change a listing")
	ErrInactive              = errors.New("listings: listing is inactive")
	ErrCoordinatesOutOfRange = errors.New("listings: coordinates out of range")
)

type ListingID string
type OwnerID string

type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyStudio    PropertyType = "studio"
	PropertyRoom      PropertyType = "room"
	PropertyOffice    PropertyType = "office"
)

var propertyTypes = map[PropertyType]struct{}{
	PropertyApartment: {},
	PropertyHouse:     {},
	PropertyStudio:    {},
	PropertyRoom:      {},
	PropertyOffice:    {},
}

// Amenities lists the amenity codes a listing may advertise.
var Amenities = []string{
	"wifi",
	"parking",
	"elevator",
	"air_conditioning",
	"heating",
	"garden",
	"balcony",
	"furnished",
	"pets_allowed",
	"smoking_allowed",
}

type Location struct {
	Address string
	City    string
	Lat     float64
	Lng     float64
}

type Image struct {
	ID        string
	URL       string
	AltText   string
	SortOrder int
	CreatedAt time.Time
}

type Listing struct {
	ID           ListingID
	Owner        OwnerID
	Title        string
	Description  string
	PropertyType PropertyType
	Location     Location
	PriceCents   int64
	Amenities    []string
	Active       bool
	Images       []Image
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateListingParams struct {
	ID           ListingID
	Owner        OwnerID
	Title        string
	Description  string
	PropertyType string
	Location     Location
	PriceCents   int64
	Amenities    []string
	Now          time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	listing := &Listing{
		ID:        params.ID,
		Owner:     params.Owner,
		Active:    true,
		CreatedAt: now,
	}
	if err := listing.apply(Changes{
		Title:        &params.Title,
		Description:  &params.Description,
		PropertyType: &params.PropertyType,
		Location:     &params.Location,
		PriceCents:   &params.PriceCents,
		Amenities:    params.Amenities,
	}, now); err != nil {
		return nil, err
	}
	listing.Record(ListingCreated{ListingID: listing.ID, OwnerID: listing.Owner, At: now})
	return listing, nil
}

// Changes carries a partial update; nil fields are left as they are.
type Changes struct {
	Title        *string
	Description  *string
	PropertyType *string
	Location     *Location
	PriceCents   *int64
	Amenities    []string
}

func (l *Listing) Update(by OwnerID, changes Changes, now time.Time) error {
	if by != l.Owner {
		return ErrNotOwner
	}
	if now.IsZero() {
		now = time.Now()
	}
	if err := l.apply(changes, now.UTC()); err != nil {
		return err
	}
	l.Record(ListingUpdated{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// Deactivate hides the listing from search; listings are never hard-deleted.
func (l *Listing) Deactivate(by OwnerID, now time.Time) error {
	if by != l.Owner {
		return ErrNotOwner
	}
	if !l.Active {
		return nil
	}
	if now.IsZero() {
		now = time.Now()
	}
	l.Active = false
	l.UpdatedAt = now.UTC()
	l.Record(ListingDeactivated{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

func (l *Listing) AddImage(img Image) {
	img.SortOrder = len(l.Images)
	l.Images = append(l.Images, img)
	l.UpdatedAt = img.CreatedAt
}

// CoverURL returns the first image URL or an empty string.
func (l *Listing) CoverURL() string {
	if len(l.Images) == 0 {
		return ""
	}
	images := append([]Image(nil), l.Images...)
	sort.SliceStable(images, func(i, j int) bool { return images[i].SortOrder < images[j].SortOrder })
	return images[0].URL
}

func (l *Listing) apply(c Changes, now time.Time) error {
	next := *l
	if c.Title != nil {
		next.Title = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		next.Description = strings.TrimSpace(*c.Description)
	}
	if c.PropertyType != nil {
		pt, err := ParsePropertyType(*c.PropertyType)
		if err != nil {
			return err
		}
		next.PropertyType = pt
	}
	if c.Location != nil {
		loc := Location{
			Address: strings.TrimSpace(c.Location.Address),
			City:    strings.TrimSpace(c.Location.City),
			Lat:     c.Location.Lat,
			Lng:     c.Location.Lng,
		}
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return ErrCoordinatesOutOfRange
		}
		next.Location = loc
	}
	if c.PriceCents != nil {
		next.PriceCents = *c.PriceCents
	}
	if c.Amenities != nil {
		amenities, err := normalizeAmenities(c.Amenities)
		if err != nil {
			return err
		}
		next.Amenities = amenities
	}

	if next.Title == "" {
		return ErrTitleRequired
	}
	if next.Location.City == "" {
		return ErrCityRequired
	}
	if next.PriceCents <= 0 {
		return ErrPriceInvalid
	}

	l.Title = next.Title
	l.Description = next.Description
	l.PropertyType = next.PropertyType
	l.Location = next.Location
	l.PriceCents = next.PriceCents
	l.Amenities = next.Amenities
	l.UpdatedAt = now
	return nil
}

func ParsePropertyType(raw string) (PropertyType, error) {
	pt := PropertyType(strings.ToLower(strings.TrimSpace(raw)))
	if pt == "" {
		return PropertyApartment, nil
	}
	if _, ok := propertyTypes[pt]; !ok {
		return "", ErrPropertyTypeInvalid
	}
	return pt, nil
}

func normalizeAmenities(values []string) ([]string, error) {
	tokens := normalizeTokens(values)
	for _, token := range tokens {
		if !knownAmenity(token) {
			return nil, ErrAmenityInvalid
		}
	}
	if tokens == nil {
		tokens = []string{}
	}
	return tokens, nil
}

func knownAmenity(token string) bool {
	for _, a := range Amenities {
		if a == token {
			return true
		}
	}
	return false
}
