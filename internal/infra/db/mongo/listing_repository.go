package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "rentboard/internal/domain/listings"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	col := db.Collection("listings")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	})
	return &ListingRepository{col: col}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: %w", domainlistings.ErrNotFound)
		}
		return nil, err
	}
	return doc.toListing(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil || listing.ID == "" {
		return domainlistings.ErrIDRequired
	}
	doc := newListingDocument(listing)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// Search returns listings that satisfy provided filters, newest first.
func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	filter := searchFilter(opts)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	find := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(opts.Offset())).
		SetLimit(int64(opts.Limit))
	cur, err := r.col.Find(ctx, filter, find)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	defer cur.Close(ctx)

	items := make([]*domainlistings.Listing, 0, opts.Limit)
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return domainlistings.SearchResult{}, err
		}
		items = append(items, doc.toListing())
	}
	if err := cur.Err(); err != nil {
		return domainlistings.SearchResult{}, err
	}
	return domainlistings.NewSearchResult(items, int(total), opts), nil
}

// searchFilter mirrors SearchParams.Matches. params must be normalized.
func searchFilter(p domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	if !p.IncludeInactive {
		filter["active"] = true
	}
	if p.Owner != "" {
		filter["owner_id"] = string(p.Owner)
	}
	if p.Location != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(p.Location), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"location.city": pattern},
			bson.M{"location.address": pattern},
		}
	}
	if p.PropertyType != "" {
		filter["property_type"] = p.PropertyType
	}
	price := bson.M{}
	if p.MinPriceCents > 0 {
		price["$gte"] = p.MinPriceCents
	}
	if p.MaxPriceCents > 0 {
		price["$lte"] = p.MaxPriceCents
	}
	if len(price) > 0 {
		filter["price_cents"] = price
	}
	if len(p.Amenities) > 0 {
		filter["amenities"] = bson.M{"$all": p.Amenities}
	}
	return filter
}

type listingDocument struct {
	ID           string           `bson:"_id"`
	OwnerID      string           `bson:"owner_id"`
	Title        string           `bson:"title"`
	Description  string           `bson:"description"`
	PropertyType string           `bson:"property_type"`
	Location     locationDocument `bson:"location"`
	PriceCents   int64            `bson:"price_cents"`
	Amenities    []string         `bson:"amenities"`
	Active       bool             `bson:"active"`
	Images       []imageDocument  `bson:"images"`
	CreatedAt    int64            `bson:"created_at"`
	UpdatedAt    int64            `bson:"updated_at"`
}

type locationDocument struct {
	Address string  `bson:"address"`
	City    string  `bson:"city"`
	Lat     float64 `bson:"lat"`
	Lng     float64 `bson:"lng"`
}

type imageDocument struct {
	ID        string `bson:"id"`
	URL       string `bson:"url"`
	AltText   string `bson:"alt_text,omitempty"`
	SortOrder int    `bson:"sort_order"`
	CreatedAt int64  `bson:"created_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	images := make([]imageDocument, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, imageDocument{
			ID:        img.ID,
			URL:       img.URL,
			AltText:   img.AltText,
			SortOrder: img.SortOrder,
			CreatedAt: timeToTimestamp(img.CreatedAt),
		})
	}
	amenities := l.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return listingDocument{
		ID:           string(l.ID),
		OwnerID:      string(l.Owner),
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: string(l.PropertyType),
		Location: locationDocument{
			Address: l.Location.Address,
			City:    l.Location.City,
			Lat:     l.Location.Lat,
			Lng:     l.Location.Lng,
		},
		PriceCents: l.PriceCents,
		Amenities:  amenities,
		Active:     l.Active,
		Images:     images,
		CreatedAt:  timeToTimestamp(l.CreatedAt),
		UpdatedAt:  timeToTimestamp(l.UpdatedAt),
	}
}

func (d listingDocument) toListing() *domainlistings.Listing {
	images := make([]domainlistings.Image, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, domainlistings.Image{
			ID:        img.ID,
			URL:       img.URL,
			AltText:   img.AltText,
			SortOrder: img.SortOrder,
			CreatedAt: timestampToTime(img.CreatedAt),
		})
	}
	return &domainlistings.Listing{
		ID:           domainlistings.ListingID(d.ID),
		Owner:        domainlistings.OwnerID(d.OwnerID),
		Title:        d.Title,
		Description:  d.Description,
		PropertyType: domainlistings.PropertyType(d.PropertyType),
		Location: domainlistings.Location{
			Address: d.Location.Address,
			City:    d.Location.City,
			Lat:     d.Location.Lat,
			Lng:     d.Location.Lng,
		},
		PriceCents: d.PriceCents,
		Amenities:  append([]string(nil), d.Amenities...),
		Active:     d.Active,
		Images:     images,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
	}
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
