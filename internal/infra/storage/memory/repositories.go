package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domainlistings "rentboard/internal/domain/listings"
)

// ErrListingNotFound is returned when a listing cannot be located in memory.
var ErrListingNotFound = fmt.Errorf("memory: %w", domainlistings.ErrNotFound)

// ListingRepository is an in-memory implementation for demo purposes.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

// NewListingRepository builds an empty repository.
func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

// ByID returns a copy of the listing or ErrListingNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	return cloneListing(listing), nil
}

// Save stores/updates a listing entry.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil || listing.ID == "" {
		return domainlistings.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = cloneListing(listing)
	return nil
}

// Search returns listings that satisfy provided filters, newest first.
func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domainlistings.Listing, 0, len(r.items))
	for _, listing := range r.items {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return domainlistings.SearchResult{}, ctx.Err()
			default:
			}
		}
		if opts.Matches(listing) {
			matches = append(matches, listing)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	offset := opts.Offset()
	if offset < 0 || offset > total {
		offset = total
	}
	end := total
	if opts.Limit < total-offset {
		end = offset + opts.Limit
	}
	page := make([]*domainlistings.Listing, 0, end-offset)
	for _, listing := range matches[offset:end] {
		page = append(page, cloneListing(listing))
	}
	return domainlistings.NewSearchResult(page, total, opts), nil
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	out := &domainlistings.Listing{
		ID:           l.ID,
		Owner:        l.Owner,
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: l.PropertyType,
		Location:     l.Location,
		PriceCents:   l.PriceCents,
		Amenities:    append([]string(nil), l.Amenities...),
		Active:       l.Active,
		Images:       append([]domainlistings.Image(nil), l.Images...),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	return out
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
