package messaging

import "time"

type MessageSent struct {
	MessageID   MessageID `json:"message_id"`
	ListingID   string    `json:"listing_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	At          time.Time `json:"at"`
}

func (e MessageSent) EventName() string     { return "message.sent" }
func (e MessageSent) AggregateID() string   { return string(e.MessageID) }
func (e MessageSent) OccurredAt() time.Time { return e.At }

type ThreadRead struct {
	ListingID     string      `json:"listing_id"`
	CounterpartID string      `json:"counterpart_id"`
	ReaderID      string      `json:"reader_id"`
	MessageIDs    []MessageID `json:"message_ids"`
	At            time.Time   `json:"at"`
}

func (e ThreadRead) EventName() string     { return "message.thread_read" }
func (e ThreadRead) AggregateID() string   { return e.ListingID + ":" + e.ReaderID }
func (e ThreadRead) OccurredAt() time.Time { return e.At }

type MessageDeleted struct {
	MessageID MessageID `json:"message_id"`
	ListingID string    `json:"listing_id"`
	SenderID  string    `json:"sender_id"`
	At        time.Time `json:"at"`
}

func (e MessageDeleted) EventName() string     { return "message.deleted" }
func (e MessageDeleted) AggregateID() string   { return string(e.MessageID) }
func (e MessageDeleted) OccurredAt() time.Time { return e.At }
