package scylla

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"

	"rentboard/internal/domain/messaging"
)

var errSessionMissing = errors.New("scylla session not initialized")

// MessageStore implements messaging.Repository on top of two query tables.
type MessageStore struct {
	session *gocql.Session
	logger  *slog.Logger
}

func NewMessageStore(session *gocql.Session, logger *slog.Logger) *MessageStore {
	return &MessageStore{session: session, logger: logger}
}

// Save writes the message row and both participant index rows. An existing read flag
// survives, and index rows keyed by an older timestamp or participant are removed.
func (s *MessageStore) Save(ctx context.Context, msg *messaging.Message) error {
	if s.session == nil {
		return errSessionMissing
	}
	if msg == nil || msg.ID == "" {
		return messaging.ErrMessageIDRequired
	}
	existing, err := s.ByID(ctx, msg.ID)
	if err != nil {
		if !errors.Is(err, messaging.ErrMessageNotFound) {
			return err
		}
		existing = nil
	}
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, st := range saveStatements(*msg, existing) {
		batch.Query(st.cql, st.args...)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("scylla: save message: %w", err)
	}
	return nil
}

type statement struct {
	cql  string
	args []any
}

const (
	insertMessageCQL = `INSERT INTO messages_by_id (id, listing_id, sender_id, recipient_id, body, contact_name, contact_email, contact_phone, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertIndexCQL   = `INSERT INTO messages_by_user (user_id, created_at, message_id, listing_id) VALUES (?, ?, ?, ?)`
	deleteIndexCQL   = `DELETE FROM messages_by_user WHERE user_id = ? AND created_at = ? AND message_id = ?`
)

// saveStatements plans the writes for msg. msg is a copy, so the caller's value is never
// changed.
func saveStatements(msg messaging.Message, existing *messaging.Message) []statement {
	var stmts []statement
	if existing != nil {
		msg.IsRead = msg.IsRead || existing.IsRead
		stmts = append(stmts, staleIndexStatements(msg, *existing)...)
	}
	var contact messaging.ContactInfo
	if msg.Contact != nil {
		contact = *msg.Contact
	}
	created := msg.CreatedAt.UTC()
	stmts = append(stmts, statement{insertMessageCQL, []any{
		string(msg.ID), msg.ListingID, msg.SenderID, msg.RecipientID, msg.Body,
		contact.Name, contact.Email, contact.Phone, msg.IsRead, created,
	}})
	for _, user := range []string{msg.SenderID, msg.RecipientID} {
		stmts = append(stmts, statement{insertIndexCQL, []any{user, created, string(msg.ID), msg.ListingID}})
	}
	return stmts
}

// staleIndexStatements deletes old index rows whose key the new version no longer produces.
func staleIndexStatements(msg, existing messaging.Message) []statement {
	keep := map[string]bool{}
	if msg.CreatedAt.UTC().Equal(existing.CreatedAt.UTC()) {
		keep[msg.SenderID] = true
		keep[msg.RecipientID] = true
	}
	var stmts []statement
	for _, user := range []string{existing.SenderID, existing.RecipientID} {
		if keep[user] {
			continue
		}
		keep[user] = true
		stmts = append(stmts, indexDelete(user, existing))
	}
	return stmts
}

func indexDelete(user string, msg messaging.Message) statement {
	return statement{deleteIndexCQL, []any{user, msg.CreatedAt.UTC(), string(msg.ID)}}
}

func (s *MessageStore) ByID(ctx context.Context, id messaging.MessageID) (*messaging.Message, error) {
	if s.session == nil {
		return nil, errSessionMissing
	}
	var r row
	err := s.session.
		Query(`SELECT id, listing_id, sender_id, recipient_id, body, contact_name, contact_email, contact_phone, is_read, created_at FROM messages_by_id WHERE id = ? LIMIT 1`, string(id)).
		WithContext(ctx).
		Scan(r.dest()...)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, fmt.Errorf("scylla: %w", messaging.ErrMessageNotFound)
		}
		return nil, err
	}
	msg := r.toMessage()
	return &msg, nil
}

func (s *MessageStore) ForViewer(ctx context.Context, viewer string) ([]messaging.Message, error) {
	ids, err := s.indexed(ctx, viewer, "")
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids)
}

func (s *MessageStore) ForListing(ctx context.Context, listingID, viewer string) ([]messaging.Message, error) {
	ids, err := s.indexed(ctx, viewer, listingID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkRead flips each message with a lightweight transaction so concurrent readers count once.
func (s *MessageStore) MarkRead(ctx context.Context, ids []messaging.MessageID, recipient string) (int, error) {
	if s.session == nil {
		return 0, errSessionMissing
	}
	updated := 0
	for _, id := range ids {
		applied, err := s.session.
			Query(`UPDATE messages_by_id SET is_read = true WHERE id = ? IF recipient_id = ? AND is_read = false`, string(id), recipient).
			WithContext(ctx).
			SerialConsistency(gocql.LocalSerial).
			MapScanCAS(map[string]interface{}{})
		if err != nil {
			return updated, fmt.Errorf("scylla: mark read %s: %w", id, err)
		}
		if applied {
			updated++
		}
	}
	return updated, nil
}

func (s *MessageStore) MarkListingRead(ctx context.Context, listingID, recipient string) (int, error) {
	msgs, err := s.ForListing(ctx, listingID, recipient)
	if err != nil {
		return 0, err
	}
	ids := make([]messaging.MessageID, 0, len(msgs))
	for _, m := range msgs {
		if m.RecipientID == recipient && !m.IsRead {
			ids = append(ids, m.ID)
		}
	}
	return s.MarkRead(ctx, ids, recipient)
}

func (s *MessageStore) CountUnread(ctx context.Context, recipient string) (int, error) {
	msgs, err := s.ForViewer(ctx, recipient)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range msgs {
		if m.RecipientID == recipient && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MessageStore) Delete(ctx context.Context, id messaging.MessageID) error {
	msg, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`DELETE FROM messages_by_id WHERE id = ?`, string(id))
	for _, user := range []string{msg.SenderID, msg.RecipientID} {
		st := indexDelete(user, *msg)
		batch.Query(st.cql, st.args...)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("scylla: delete message: %w", err)
	}
	return nil
}

// Ping checks the session can serve a trivial query.
func (s *MessageStore) Ping(ctx context.Context) error {
	if s.session == nil {
		return errSessionMissing
	}
	return s.session.Query(`SELECT now() FROM system.local`).WithContext(ctx).Exec()
}

// indexed returns the viewer's message ids, newest first, optionally for one listing.
func (s *MessageStore) indexed(ctx context.Context, viewer, listingID string) ([]string, error) {
	if s.session == nil {
		return nil, errSessionMissing
	}
	iter := s.session.
		Query(`SELECT message_id, listing_id FROM messages_by_user WHERE user_id = ?`, viewer).
		WithContext(ctx).
		Iter()
	var (
		id      string
		listing string
		ids     []string
	)
	for iter.Scan(&id, &listing) {
		if listingID != "" && listing != listingID {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("scylla: read index: %w", err)
	}
	return ids, nil
}

// load fetches message rows preserving the order of ids. Rows missing from messages_by_id
// (a delete racing the read) are skipped.
func (s *MessageStore) load(ctx context.Context, ids []string) ([]messaging.Message, error) {
	out := make([]messaging.Message, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	iter := s.session.
		Query(`SELECT id, listing_id, sender_id, recipient_id, body, contact_name, contact_email, contact_phone, is_read, created_at FROM messages_by_id WHERE id IN ?`, ids).
		WithContext(ctx).
		Iter()
	byID := make(map[string]messaging.Message, len(ids))
	var r row
	for iter.Scan(r.dest()...) {
		byID[r.ID] = r.toMessage()
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("scylla: load messages: %w", err)
	}
	for _, id := range ids {
		if msg, ok := byID[id]; ok {
			out = append(out, msg)
		} else if s.logger != nil {
			s.logger.Debug("dangling message index row", "message_id", id)
		}
	}
	return out, nil
}

type row struct {
	ID           string
	ListingID    string
	SenderID     string
	RecipientID  string
	Body         string
	ContactName  string
	ContactEmail string
	ContactPhone string
	IsRead       bool
	CreatedAt    time.Time
}

func (r *row) dest() []interface{} {
	return []interface{}{
		&r.ID, &r.ListingID, &r.SenderID, &r.RecipientID, &r.Body,
		&r.ContactName, &r.ContactEmail, &r.ContactPhone, &r.IsRead, &r.CreatedAt,
	}
}

func (r row) toMessage() messaging.Message {
	msg := messaging.Message{
		ID:          messaging.MessageID(r.ID),
		ListingID:   r.ListingID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Body:        r.Body,
		IsRead:      r.IsRead,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.ContactName != "" || r.ContactEmail != "" || r.ContactPhone != "" {
		msg.Contact = &messaging.ContactInfo{Name: r.ContactName, Email: r.ContactEmail, Phone: r.ContactPhone}
	}
	return msg
}

var _ messaging.Repository = (*MessageStore)(nil)
