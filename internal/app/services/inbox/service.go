package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentboard/internal/app/outbox"
	domainlistings "rentboard/internal/domain/listings"
	"rentboard/internal/domain/messaging"
	"rentboard/internal/domain/shared/events"
	domainuser "rentboard/internal/domain/user"
)

var (
	ErrViewerRequired     = errors.New("inbox: viewer is required")
	ErrThreadNotFound     = errors.New("inbox: thread not found")
	ErrListingUnavailable = errors.New("inbox: listing is not available")
	ErrRecipientNotFound  = errors.New("inbox: recipient not found")
	ErrForbidden          = errors.New("inbox: operation not allowed for viewer")
)

// Service loads a viewer's messages, regroups them into threads and records read
// acknowledgements. Thread lists are rebuilt from the store on every call.
type Service struct {
	Messages messaging.Repository
	Listings domainlistings.Repository
	Users    domainuser.Repository
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	NewID    func() string
	Now      func() time.Time
	Logger   *slog.Logger
}

type SendParams struct {
	ListingID   string
	SenderID    string
	RecipientID string
	Body        string
	// Contact defaults to the sender's profile when nil.
	Contact *messaging.ContactInfo
}

// Threads returns the viewer's conversations, newest activity first.
func (s *Service) Threads(ctx context.Context, viewer string, filter messaging.ThreadFilter) ([]messaging.Thread, error) {
	threads, err := s.load(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return messaging.FilterThreads(threads, filter), nil
}

// Thread returns one conversation of the viewer.
func (s *Service) Thread(ctx context.Context, viewer string, key messaging.ThreadKey) (messaging.Thread, error) {
	threads, err := s.load(ctx, viewer)
	if err != nil {
		return messaging.Thread{}, err
	}
	thread, ok := messaging.FindThread(threads, key)
	if !ok {
		return messaging.Thread{}, ErrThreadNotFound
	}
	return thread, nil
}

// Send stores a new message and returns the rebuilt thread it belongs to.
func (s *Service) Send(ctx context.Context, params SendParams) (messaging.Thread, error) {
	sender := strings.TrimSpace(params.SenderID)
	if sender == "" {
		return messaging.Thread{}, ErrViewerRequired
	}
	listingID := strings.TrimSpace(params.ListingID)
	listing, err := s.Listings.ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return messaging.Thread{}, ErrListingUnavailable
		}
		return messaging.Thread{}, fmt.Errorf("inbox: load listing: %w", err)
	}
	if !listing.Active {
		return messaging.Thread{}, ErrListingUnavailable
	}
	recipient := strings.TrimSpace(params.RecipientID)
	if recipient == "" {
		recipient = string(listing.Owner)
	}
	if _, err := s.Users.ByID(ctx, domainuser.ID(recipient)); err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return messaging.Thread{}, ErrRecipientNotFound
		}
		return messaging.Thread{}, fmt.Errorf("inbox: load recipient: %w", err)
	}

	contact := params.Contact
	if contact == nil {
		if profile, err := s.Users.ByID(ctx, domainuser.ID(sender)); err == nil {
			contact = &messaging.ContactInfo{Name: profile.Name, Email: profile.Email, Phone: profile.Phone}
		}
	}

	msg, err := messaging.NewMessage(messaging.NewMessageParams{
		ID:          messaging.MessageID(s.newID()),
		ListingID:   listingID,
		SenderID:    sender,
		RecipientID: recipient,
		Body:        params.Body,
		Contact:     contact,
		Now:         s.now(),
	})
	if err != nil {
		return messaging.Thread{}, err
	}
	if err := s.Messages.Save(ctx, msg); err != nil {
		return messaging.Thread{}, fmt.Errorf("inbox: save message: %w", err)
	}
	s.publish(ctx, msg.SentEvent())
	if s.Logger != nil {
		s.Logger.Info("message sent", "message_id", msg.ID, "listing_id", msg.ListingID, "sender_id", sender, "recipient_id", recipient)
	}
	return s.Thread(ctx, sender, messaging.ThreadKey{ListingID: listingID, CounterpartID: recipient})
}

// MarkThreadRead acknowledges every message the counterpart sent to viewer in the thread.
// It returns the updated thread and the number of messages that changed.
func (s *Service) MarkThreadRead(ctx context.Context, viewer string, key messaging.ThreadKey) (messaging.Thread, int, error) {
	thread, err := s.Thread(ctx, viewer, key)
	if err != nil {
		return messaging.Thread{}, 0, err
	}
	updated, flipped := messaging.MarkThreadRead(thread, viewer)
	if len(flipped) == 0 {
		return updated, 0, nil
	}
	n, err := s.Messages.MarkRead(ctx, flipped, viewer)
	if err != nil {
		return messaging.Thread{}, 0, fmt.Errorf("inbox: mark read: %w", err)
	}
	s.publish(ctx, messaging.ThreadRead{
		ListingID:     key.ListingID,
		CounterpartID: key.CounterpartID,
		ReaderID:      viewer,
		MessageIDs:    flipped,
		At:            s.now(),
	})
	return updated, n, nil
}

// MarkListingRead acknowledges everything addressed to viewer about a listing, across
// all counterparts.
func (s *Service) MarkListingRead(ctx context.Context, viewer, listingID string) (int, error) {
	if strings.TrimSpace(viewer) == "" {
		return 0, ErrViewerRequired
	}
	n, err := s.Messages.MarkListingRead(ctx, listingID, viewer)
	if err != nil {
		return 0, fmt.Errorf("inbox: mark listing read: %w", err)
	}
	return n, nil
}

// MarkMessageRead acknowledges a single message; only its recipient may do so.
func (s *Service) MarkMessageRead(ctx context.Context, viewer string, id messaging.MessageID) error {
	msg, err := s.Messages.ByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.RecipientID != viewer {
		return ErrForbidden
	}
	if msg.IsRead {
		return nil
	}
	if _, err := s.Messages.MarkRead(ctx, []messaging.MessageID{id}, viewer); err != nil {
		return fmt.Errorf("inbox: mark read: %w", err)
	}
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, viewer string) (int, error) {
	if strings.TrimSpace(viewer) == "" {
		return 0, ErrViewerRequired
	}
	n, err := s.Messages.CountUnread(ctx, viewer)
	if err != nil {
		return 0, fmt.Errorf("inbox: count unread: %w", err)
	}
	return n, nil
}

// Delete removes a message; only its sender may do so.
func (s *Service) Delete(ctx context.Context, viewer string, id messaging.MessageID) error {
	msg, err := s.Messages.ByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.SenderID != viewer {
		return ErrForbidden
	}
	if err := s.Messages.Delete(ctx, id); err != nil {
		return fmt.Errorf("inbox: delete message: %w", err)
	}
	s.publish(ctx, messaging.MessageDeleted{MessageID: id, ListingID: msg.ListingID, SenderID: viewer, At: s.now()})
	return nil
}

// Participants lists who talked about a listing, restricted to pairs involving viewer.
func (s *Service) Participants(ctx context.Context, viewer, listingID string) ([]messaging.ParticipantPair, error) {
	if strings.TrimSpace(viewer) == "" {
		return nil, ErrViewerRequired
	}
	msgs, err := s.Messages.ForListing(ctx, listingID, viewer)
	if err != nil {
		return nil, fmt.Errorf("inbox: load listing messages: %w", err)
	}
	return messaging.Participants(msgs), nil
}

func (s *Service) load(ctx context.Context, viewer string) ([]messaging.Thread, error) {
	viewer = strings.TrimSpace(viewer)
	if viewer == "" {
		return nil, ErrViewerRequired
	}
	msgs, err := s.Messages.ForViewer(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("inbox: load messages: %w", err)
	}
	s.enrich(ctx, msgs)
	threads, err := messaging.BuildThreads(msgs, viewer)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		for _, t := range threads {
			if t.MissingReferences {
				s.Logger.Debug("thread rendered with placeholders", "listing_id", t.Key.ListingID, "counterpart_id", t.Key.CounterpartID)
			}
		}
	}
	return threads, nil
}

// enrich attaches listing and participant snapshots. Lookups are best effort: a failed
// lookup leaves the reference empty and the aggregator substitutes a placeholder.
func (s *Service) enrich(ctx context.Context, msgs []messaging.Message) {
	listings := make(map[string]*messaging.ListingRef)
	users := make(map[string]*messaging.Participant)

	listingRef := func(id string) *messaging.ListingRef {
		if ref, ok := listings[id]; ok {
			return ref
		}
		var ref *messaging.ListingRef
		if s.Listings != nil {
			if l, err := s.Listings.ByID(ctx, domainlistings.ListingID(id)); err == nil {
				ref = &messaging.ListingRef{ID: string(l.ID), Title: l.Title}
			}
		}
		listings[id] = ref
		return ref
	}
	participant := func(id string) *messaging.Participant {
		if p, ok := users[id]; ok {
			return p
		}
		var p *messaging.Participant
		if s.Users != nil {
			if u, err := s.Users.ByID(ctx, domainuser.ID(id)); err == nil {
				p = &messaging.Participant{ID: string(u.ID), Name: u.Name, Role: string(u.Role)}
			}
		}
		users[id] = p
		return p
	}

	for i := range msgs {
		m := &msgs[i]
		if ref := listingRef(m.ListingID); ref != nil {
			cp := *ref
			m.Listing = &cp
		}
		if p := participant(m.SenderID); p != nil {
			cp := *p
			m.Sender = &cp
		}
		if p := participant(m.RecipientID); p != nil {
			cp := *p
			m.Recipient = &cp
		}
	}
}

func (s *Service) publish(ctx context.Context, ev events.DomainEvent) {
	if s.Outbox == nil {
		return
	}
	if err := outbox.Publish(ctx, s.Outbox, s.Encoder, ev); err != nil && s.Logger != nil {
		s.Logger.Warn("event publish failed", "event", ev.EventName(), "error", err)
	}
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
