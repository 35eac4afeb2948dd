package dto

import (
	"time"

	domainlistings "rentboard/internal/domain/listings"
)

type Listing struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	PropertyType string         `json:"property_type"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city"`
	Lat          float64        `json:"lat,omitempty"`
	Lng          float64        `json:"lng,omitempty"`
	PriceCents   int64          `json:"price_cents"`
	Amenities    []string       `json:"amenities"`
	Active       bool           `json:"active"`
	CoverURL     string         `json:"cover_url,omitempty"`
	Images       []ListingImage `json:"images"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ListingImage struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
	Order   int    `json:"sort_order"`
}

// ListingPage is a paginated collection of listings.
type ListingPage struct {
	Items      []Listing `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	out := Listing{
		ID:           string(l.ID),
		OwnerID:      string(l.Owner),
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: string(l.PropertyType),
		Address:      l.Location.Address,
		City:         l.Location.City,
		Lat:          l.Location.Lat,
		Lng:          l.Location.Lng,
		PriceCents:   l.PriceCents,
		Amenities:    append([]string{}, l.Amenities...),
		Active:       l.Active,
		CoverURL:     l.CoverURL(),
		Images:       make([]ListingImage, 0, len(l.Images)),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	for _, img := range l.Images {
		out.Images = append(out.Images, ListingImage{ID: img.ID, URL: img.URL, AltText: img.AltText, Order: img.SortOrder})
	}
	return out
}

func MapListings(items []*domainlistings.Listing) []Listing {
	out := make([]Listing, 0, len(items))
	for _, l := range items {
		out = append(out, MapListing(l))
	}
	return out
}

func MapListingPage(result domainlistings.SearchResult) ListingPage {
	return ListingPage{
		Items:      MapListings(result.Items),
		Total:      result.Total,
		Page:       result.Page,
		TotalPages: result.TotalPages,
	}
}
