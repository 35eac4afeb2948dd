package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentboard/internal/domain/messaging"
)

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	col := db.Collection("messages")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "is_read", Value: 1}}},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	return &MessageRepository{col: col}
}

// Save upserts the message. A stored read flag is never cleared.
func (r *MessageRepository) Save(ctx context.Context, msg *messaging.Message) error {
	if msg == nil || msg.ID == "" {
		return messaging.ErrMessageIDRequired
	}
	doc := newMessageDocument(msg)
	set := bson.M{
		"listing_id":   doc.ListingID,
		"sender_id":    doc.SenderID,
		"recipient_id": doc.RecipientID,
		"body":         doc.Body,
		"contact":      doc.Contact,
		"created_at":   doc.CreatedAt,
	}
	update := bson.M{"$set": set}
	if doc.IsRead {
		set["is_read"] = true
	} else {
		update["$setOnInsert"] = bson.M{"is_read": false}
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, update, options.Update().SetUpsert(true))
	return err
}

func (r *MessageRepository) ByID(ctx context.Context, id messaging.MessageID) (*messaging.Message, error) {
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: %w", messaging.ErrMessageNotFound)
		}
		return nil, err
	}
	msg := doc.toMessage()
	return &msg, nil
}

func (r *MessageRepository) ForViewer(ctx context.Context, viewer string) ([]messaging.Message, error) {
	filter := bson.M{"$or": bson.A{bson.M{"sender_id": viewer}, bson.M{"recipient_id": viewer}}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *MessageRepository) ForListing(ctx context.Context, listingID, viewer string) ([]messaging.Message, error) {
	filter := bson.M{
		"listing_id": listingID,
		"$or":        bson.A{bson.M{"sender_id": viewer}, bson.M{"recipient_id": viewer}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *MessageRepository) MarkRead(ctx context.Context, ids []messaging.MessageID, recipient string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	raw := make(bson.A, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	filter := bson.M{"_id": bson.M{"$in": raw}, "recipient_id": recipient, "is_read": false}
	res, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (r *MessageRepository) MarkListingRead(ctx context.Context, listingID, recipient string) (int, error) {
	filter := bson.M{"listing_id": listingID, "recipient_id": recipient, "is_read": false}
	res, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, recipient string) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"recipient_id": recipient, "is_read": false})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *MessageRepository) Delete(ctx context.Context, id messaging.MessageID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("mongo: %w", messaging.ErrMessageNotFound)
	}
	return nil
}

func (r *MessageRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]messaging.Message, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]messaging.Message, 0)
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toMessage())
	}
	return out, cur.Err()
}

type messageDocument struct {
	ID          string           `bson:"_id"`
	ListingID   string           `bson:"listing_id"`
	SenderID    string           `bson:"sender_id"`
	RecipientID string           `bson:"recipient_id"`
	Body        string           `bson:"body"`
	Contact     *contactDocument `bson:"contact,omitempty"`
	IsRead      bool             `bson:"is_read"`
	CreatedAt   int64            `bson:"created_at"`
}

type contactDocument struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
	Phone string `bson:"phone,omitempty"`
}

func newMessageDocument(m *messaging.Message) messageDocument {
	doc := messageDocument{
		ID:          string(m.ID),
		ListingID:   m.ListingID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		IsRead:      m.IsRead,
		CreatedAt:   timeToTimestamp(m.CreatedAt),
	}
	if m.Contact != nil {
		doc.Contact = &contactDocument{Name: m.Contact.Name, Email: m.Contact.Email, Phone: m.Contact.Phone}
	}
	return doc
}

func (d messageDocument) toMessage() messaging.Message {
	msg := messaging.Message{
		ID:          messaging.MessageID(d.ID),
		ListingID:   d.ListingID,
		SenderID:    d.SenderID,
		RecipientID: d.RecipientID,
		Body:        d.Body,
		IsRead:      d.IsRead,
		CreatedAt:   timestampToTime(d.CreatedAt),
	}
	if d.Contact != nil {
		msg.Contact = &messaging.ContactInfo{Name: d.Contact.Name, Email: d.Contact.Email, Phone: d.Contact.Phone}
	}
	return msg
}

var _ messaging.Repository = (*MessageRepository)(nil)
