package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rentboard/internal/app/policies"
	domainlistings "rentboard/internal/domain/listings"
	"rentboard/internal/domain/messaging"
	domainuser "rentboard/internal/domain/user"
)

const TemplateNewMessage = "new_message"

// NewMessageData is the template model for TemplateNewMessage.
type NewMessageData struct {
	RecipientName string `json:"recipient_name"`
	SenderName    string `json:"sender_name"`
	ListingID     string `json:"listing_id"`
	ListingTitle  string `json:"listing_title"`
	MessageID     string `json:"message_id"`
}

// Service tells recipients about new messages. Events may be delivered more than once; the
// deduplicator keeps notices to one per event id. An id is recorded only after the notice
// went out, so a failed attempt is retried on redelivery.
type Service struct {
	Users    domainuser.Repository
	Listings domainlistings.Repository
	Notifier policies.Notifier
	Dedup    policies.Deduplicator
	Logger   *slog.Logger
}

func (s *Service) MessageSent(ctx context.Context, eventID string, ev messaging.MessageSent) error {
	if s.Notifier == nil || s.Users == nil {
		return errors.New("notifications: service not configured")
	}
	if s.Dedup != nil && eventID != "" {
		seen, err := s.Dedup.Seen(ctx, eventID)
		if err != nil {
			return fmt.Errorf("notifications: dedup: %w", err)
		}
		if seen {
			return nil
		}
	}

	recipient, err := s.Users.ByID(ctx, domainuser.ID(ev.RecipientID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			if s.Logger != nil {
				s.Logger.Info("notification dropped, recipient gone", "message_id", ev.MessageID, "recipient_id", ev.RecipientID)
			}
			return s.markSeen(ctx, eventID)
		}
		return err
	}

	data := NewMessageData{
		RecipientName: recipient.Name,
		SenderName:    messaging.UnknownUserName,
		ListingID:     ev.ListingID,
		ListingTitle:  messaging.UnknownListingTitle,
		MessageID:     string(ev.MessageID),
	}
	if sender, err := s.Users.ByID(ctx, domainuser.ID(ev.SenderID)); err == nil {
		data.SenderName = sender.Name
	}
	if s.Listings != nil {
		if listing, err := s.Listings.ByID(ctx, domainlistings.ListingID(ev.ListingID)); err == nil {
			data.ListingTitle = listing.Title
		}
	}
	if err := s.Notifier.Send(ctx, recipient.Email, TemplateNewMessage, data); err != nil {
		return fmt.Errorf("notifications: send: %w", err)
	}
	return s.markSeen(ctx, eventID)
}

func (s *Service) markSeen(ctx context.Context, eventID string) error {
	if s.Dedup == nil || eventID == "" {
		return nil
	}
	if err := s.Dedup.MarkSeen(ctx, eventID); err != nil {
		return fmt.Errorf("notifications: record event: %w", err)
	}
	return nil
}
