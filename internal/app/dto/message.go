package dto

import (
	"time"

	"rentboard/internal/domain/messaging"
)

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Message struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listing_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	Contact     *Contact  `json:"contact,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type Counterpart struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Thread is one conversation as the inbox renders it.
type Thread struct {
	ListingID    string      `json:"listing_id"`
	ListingTitle string      `json:"listing_title"`
	Counterpart  Counterpart `json:"counterpart"`
	LastMessage  Message     `json:"last_message"`
	UnreadCount  int         `json:"unread_count"`
	Messages     []Message   `json:"messages,omitempty"`
}

type ThreadList struct {
	Items       []Thread `json:"items"`
	UnreadTotal int      `json:"unread_total"`
}

type ParticipantPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

type ReadResult struct {
	Updated int `json:"updated"`
}

type UnreadCount struct {
	Unread int `json:"unread"`
}

func MapMessage(m messaging.Message) Message {
	out := Message{
		ID:          string(m.ID),
		ListingID:   m.ListingID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
	if m.Contact != nil {
		out.Contact = &Contact{Name: m.Contact.Name, Email: m.Contact.Email, Phone: m.Contact.Phone}
	}
	return out
}

// MapThread converts a thread; messages are included only when withMessages is set.
func MapThread(t messaging.Thread, withMessages bool) Thread {
	out := Thread{
		ListingID:    t.Key.ListingID,
		ListingTitle: t.ListingTitle,
		Counterpart:  Counterpart{ID: t.Counterpart.ID, Name: t.Counterpart.Name, Role: t.Counterpart.Role},
		LastMessage:  MapMessage(t.LastMessage),
		UnreadCount:  t.UnreadCount,
	}
	if withMessages {
		out.Messages = make([]Message, 0, len(t.Messages))
		for _, m := range t.Messages {
			out.Messages = append(out.Messages, MapMessage(m))
		}
	}
	return out
}

func MapThreadList(threads []messaging.Thread) ThreadList {
	list := ThreadList{Items: make([]Thread, 0, len(threads))}
	for _, t := range threads {
		list.Items = append(list.Items, MapThread(t, false))
		list.UnreadTotal += t.UnreadCount
	}
	return list
}

func MapParticipantPairs(pairs []messaging.ParticipantPair) []ParticipantPair {
	out := make([]ParticipantPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, ParticipantPair{A: p.A, B: p.B})
	}
	return out
}
