package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domainlistings "rentboard/internal/domain/listings"
	"rentboard/internal/domain/messaging"
)

func TestSearchFilter(t *testing.T) {
	params := domainlistings.SearchParams{
		Location:      "Novi (Sad)",
		PropertyType:  "Studio",
		MinPriceCents: 20000,
		Amenities:     []string{"WiFi"},
	}.Normalized()

	filter := searchFilter(params)
	assert.Equal(t, true, filter["active"])
	assert.Equal(t, "studio", filter["property_type"])
	assert.Equal(t, bson.M{"$gte": int64(20000)}, filter["price_cents"])
	assert.Equal(t, bson.M{"$all": []string{"wifi"}}, filter["amenities"])
	pattern := primitive.Regex{Pattern: `novi \(sad\)`, Options: "i"}
	assert.Equal(t, bson.A{bson.M{"location.city": pattern}, bson.M{"location.address": pattern}}, filter["$or"])

	owner := searchFilter(domainlistings.SearchParams{Owner: "o1", IncludeInactive: true}.Normalized())
	assert.Equal(t, bson.M{"owner_id": "o1"}, owner)
}

func TestMessageDocument_KeepsContactAndTime(t *testing.T) {
	created := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)
	msg := &messaging.Message{
		ID: "m1", ListingID: "L1", SenderID: "U1", RecipientID: "U2", Body: "hej",
		Contact:   &messaging.ContactInfo{Name: "Ana", Email: "ana@example.com"},
		CreatedAt: created,
		Sender:    &messaging.Participant{ID: "U1", Name: "Ana"},
	}
	back := newMessageDocument(msg).toMessage()
	assert.Equal(t, created, back.CreatedAt)
	assert.Equal(t, msg.Contact, back.Contact)
	assert.Nil(t, back.Sender, "display references are not persisted")

	noContact := newMessageDocument(&messaging.Message{ID: "m2"})
	assert.Nil(t, noContact.Contact)
}

func TestListingDocument_NilAmenitiesStoredAsEmpty(t *testing.T) {
	doc := newListingDocument(&domainlistings.Listing{ID: "L1", Owner: "o"})
	assert.NotNil(t, doc.Amenities)
	assert.Empty(t, doc.Images)
	assert.Zero(t, doc.CreatedAt)
}
