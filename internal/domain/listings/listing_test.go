package listings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListing(t *testing.T) *Listing {
	t.Helper()
	l, err := NewListing(CreateListingParams{
		ID:           "l1",
		Owner:        "o1",
		Title:        " Dvosoban stan ",
		PropertyType: "Apartment",
		Location:     Location{Address: "Bulevar oslobođenja 10", City: "Novi Sad"},
		PriceCents:   45000,
		Amenities:    []string{"WiFi", "parking", "wifi"},
		Now:          time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return l
}

func TestNewListing(t *testing.T) {
	l := newTestListing(t)
	assert.Equal(t, "Dvosoban stan", l.Title)
	assert.Equal(t, PropertyApartment, l.PropertyType)
	assert.Equal(t, []string{"wifi", "parking"}, l.Amenities)
	assert.True(t, l.Active)
	require.Len(t, l.PendingEvents(), 1)
	assert.Equal(t, "listing.created", l.PendingEvents()[0].EventName())
}

func TestNewListing_Validation(t *testing.T) {
	base := CreateListingParams{ID: "l", Owner: "o", Title: "t", Location: Location{City: "Niš"}, PriceCents: 1}

	missingTitle := base
	missingTitle.Title = " "
	_, err := NewListing(missingTitle)
	assert.ErrorIs(t, err, ErrTitleRequired)

	badPrice := base
	badPrice.PriceCents = 0
	_, err = NewListing(badPrice)
	assert.ErrorIs(t, err, ErrPriceInvalid)

	badType := base
	badType.PropertyType = "castle"
	_, err = NewListing(badType)
	assert.ErrorIs(t, err, ErrPropertyTypeInvalid)

	badAmenity := base
	badAmenity.Amenities = []string{"pool"}
	_, err = NewListing(badAmenity)
	assert.ErrorIs(t, err, ErrAmenityInvalid)

	noCity := base
	noCity.Location = Location{}
	_, err = NewListing(noCity)
	assert.ErrorIs(t, err, ErrCityRequired)
}

func TestListing_UpdateAndDeactivate(t *testing.T) {
	l := newTestListing(t)
	price := int64(50000)
	require.NoError(t, l.Update("o1", Changes{PriceCents: &price}, time.Time{}))
	assert.Equal(t, int64(50000), l.PriceCents)
	assert.Equal(t, "Dvosoban stan", l.Title)

	zero := int64(0)
	assert.ErrorIs(t, l.Update("o1", Changes{PriceCents: &zero}, time.Time{}), ErrPriceInvalid)
	assert.Equal(t, int64(50000), l.PriceCents)

	assert.ErrorIs(t, l.Update("intruder", Changes{PriceCents: &price}, time.Time{}), ErrNotOwner)
	assert.ErrorIs(t, l.Deactivate("intruder", time.Time{}), ErrNotOwner)

	require.NoError(t, l.Deactivate("o1", time.Time{}))
	assert.False(t, l.Active)
	require.NoError(t, l.Deactivate("o1", time.Time{}))
}

func TestSearchParams(t *testing.T) {
	l := newTestListing(t)

	n := SearchParams{}.Normalized()
	assert.Equal(t, 1, n.Page)
	assert.Equal(t, 12, n.Limit)
	assert.Equal(t, 0, n.Offset())
	assert.Equal(t, 24, SearchParams{Page: 3, Limit: 12}.Offset())
	assert.Equal(t, 60, SearchParams{Limit: 500}.Normalized().Limit)
	assert.Equal(t, MaxPage, SearchParams{Page: 1 << 62}.Normalized().Page)
	assert.Equal(t, (MaxPage-1)*60, SearchParams{Page: 1 << 62, Limit: 60}.Offset())

	cases := []struct {
		name   string
		params SearchParams
		want   bool
	}{
		{"empty", SearchParams{}, true},
		{"city substring", SearchParams{Location: "novi"}, true},
		{"address substring", SearchParams{Location: "BULEVAR"}, true},
		{"other city", SearchParams{Location: "Beograd"}, false},
		{"type", SearchParams{PropertyType: "house"}, false},
		{"price range", SearchParams{MinPriceCents: 40000, MaxPriceCents: 46000}, true},
		{"too cheap", SearchParams{MaxPriceCents: 30000}, false},
		{"amenities subset", SearchParams{Amenities: []string{"WIFI"}}, true},
		{"missing amenity", SearchParams{Amenities: []string{"wifi", "garden"}}, false},
		{"owner", SearchParams{Owner: "o2"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.params.Normalized().Matches(l))
		})
	}

	l.Active = false
	assert.False(t, SearchParams{}.Normalized().Matches(l))
	assert.True(t, SearchParams{IncludeInactive: true}.Normalized().Matches(l))
}

func TestNewSearchResult(t *testing.T) {
	res := NewSearchResult(nil, 25, SearchParams{Page: 2, Limit: 12})
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 0, NewSearchResult(nil, 0, SearchParams{}).TotalPages)
}
