package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrMessageIDRequired = errors.New("messaging: message id is required")
	ErrListingRequired   = errors.New("messaging: listing id is required")
	ErrSenderRequired    = errors.New("messaging: sender id is required")
	ErrRecipientRequired = errors.New("messaging: recipient id is required")
	ErrSameParticipant   = errors.New("messaging: sender and recipient must differ")
	ErrBodyRequired      = errors.New("messaging: message body is required")
	ErrMessageNotFound   = errors.New("messaging: message not found")
)

const maxBodyRunes = 4000

type MessageID string

// ContactInfo is attached by the sender so the recipient can reply outside the app.
type ContactInfo struct {
	Name  string
	Email string
	Phone string
}

// ListingRef is the denormalized listing snapshot shipped with a message.
type ListingRef struct {
	ID    string
	Title string
}

// Participant is the denormalized profile of a sender or recipient.
type Participant struct {
	ID   string
	Name string
	Role string
}

type Message struct {
	ID          MessageID
	ListingID   string
	SenderID    string
	RecipientID string
	Body        string
	Contact     *ContactInfo
	IsRead      bool
	CreatedAt   time.Time

	Listing   *ListingRef
	Sender    *Participant
	Recipient *Participant
}

// Involves reports whether viewer is the sender or the recipient.
func (m Message) Involves(viewer string) bool {
	return viewer != "" && (m.SenderID == viewer || m.RecipientID == viewer)
}

// CounterpartID returns the participant opposite to viewer.
func (m Message) CounterpartID(viewer string) string {
	if m.SenderID == viewer {
		return m.RecipientID
	}
	return m.SenderID
}

func (m Message) counterpartRef(viewer string) *Participant {
	if m.SenderID == viewer {
		return m.Recipient
	}
	return m.Sender
}

// Clone returns a deep copy that shares no pointers with m.
func (m Message) Clone() Message {
	out := m
	if m.Contact != nil {
		contact := *m.Contact
		out.Contact = &contact
	}
	if m.Listing != nil {
		ref := *m.Listing
		out.Listing = &ref
	}
	if m.Sender != nil {
		p := *m.Sender
		out.Sender = &p
	}
	if m.Recipient != nil {
		p := *m.Recipient
		out.Recipient = &p
	}
	return out
}

// SentEvent describes the creation of m for the outbox.
func (m Message) SentEvent() MessageSent {
	return MessageSent{
		MessageID:   m.ID,
		ListingID:   m.ListingID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		At:          m.CreatedAt,
	}
}

type NewMessageParams struct {
	ID          MessageID
	ListingID   string
	SenderID    string
	RecipientID string
	Body        string
	Contact     *ContactInfo
	Now         time.Time
}

// NewMessage validates params and returns an unread message.
func NewMessage(params NewMessageParams) (*Message, error) {
	id := MessageID(strings.TrimSpace(string(params.ID)))
	if id == "" {
		return nil, ErrMessageIDRequired
	}
	listingID := strings.TrimSpace(params.ListingID)
	if listingID == "" {
		return nil, ErrListingRequired
	}
	sender := strings.TrimSpace(params.SenderID)
	if sender == "" {
		return nil, ErrSenderRequired
	}
	recipient := strings.TrimSpace(params.RecipientID)
	if recipient == "" {
		return nil, ErrRecipientRequired
	}
	if sender == recipient {
		return nil, ErrSameParticipant
	}
	body := strings.TrimSpace(params.Body)
	if body == "" {
		return nil, ErrBodyRequired
	}
	if runes := []rune(body); len(runes) > maxBodyRunes {
		body = string(runes[:maxBodyRunes])
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	msg := &Message{
		ID:          id,
		ListingID:   listingID,
		SenderID:    sender,
		RecipientID: recipient,
		Body:        body,
		CreatedAt:   now.UTC(),
	}
	if params.Contact != nil {
		contact := ContactInfo{
			Name:  strings.TrimSpace(params.Contact.Name),
			Email: strings.ToLower(strings.TrimSpace(params.Contact.Email)),
			Phone: strings.TrimSpace(params.Contact.Phone),
		}
		if contact != (ContactInfo{}) {
			msg.Contact = &contact
		}
	}
	return msg, nil
}

// Repository persists messages. Implementations must never flip IsRead back to false.
type Repository interface {
	Save(ctx context.Context, msg *Message) error
	ByID(ctx context.Context, id MessageID) (*Message, error)
	// ForViewer returns every message sent or received by viewer, newest first.
	ForViewer(ctx context.Context, viewer string) ([]Message, error)
	// ForListing returns the viewer's messages about one listing, oldest first.
	ForListing(ctx context.Context, listingID, viewer string) ([]Message, error)
	MarkRead(ctx context.Context, ids []MessageID, recipient string) (int, error)
	MarkListingRead(ctx context.Context, listingID, recipient string) (int, error)
	CountUnread(ctx context.Context, recipient string) (int, error)
	Delete(ctx context.Context, id MessageID) error
}
