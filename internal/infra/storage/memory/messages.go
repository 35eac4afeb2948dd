package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rentboard/internal/domain/messaging"
)

// ErrMessageNotFound is returned when a message id is unknown.
var ErrMessageNotFound = fmt.Errorf("memory: %w", messaging.ErrMessageNotFound)

// MessageRepository keeps messages in insertion order.
type MessageRepository struct {
	mu    sync.RWMutex
	items []messaging.Message
	index map[messaging.MessageID]int
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{index: make(map[messaging.MessageID]int)}
}

func (r *MessageRepository) Save(ctx context.Context, msg *messaging.Message) error {
	if msg == nil || msg.ID == "" {
		return messaging.ErrMessageIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[msg.ID]; ok {
		stored := msg.Clone()
		stored.IsRead = stored.IsRead || r.items[i].IsRead
		r.items[i] = stored
		return nil
	}
	r.index[msg.ID] = len(r.items)
	r.items = append(r.items, msg.Clone())
	return nil
}

func (r *MessageRepository) ByID(ctx context.Context, id messaging.MessageID) (*messaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	msg := r.items[i].Clone()
	return &msg, nil
}

func (r *MessageRepository) ForViewer(ctx context.Context, viewer string) ([]messaging.Message, error) {
	out := r.collect(func(m messaging.Message) bool { return m.Involves(viewer) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MessageRepository) ForListing(ctx context.Context, listingID, viewer string) ([]messaging.Message, error) {
	out := r.collect(func(m messaging.Message) bool { return m.ListingID == listingID && m.Involves(viewer) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, ids []messaging.MessageID, recipient string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for _, id := range ids {
		i, ok := r.index[id]
		if !ok {
			continue
		}
		if r.items[i].RecipientID != recipient || r.items[i].IsRead {
			continue
		}
		r.items[i].IsRead = true
		updated++
	}
	return updated, nil
}

func (r *MessageRepository) MarkListingRead(ctx context.Context, listingID, recipient string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for i := range r.items {
		m := &r.items[i]
		if m.ListingID == listingID && m.RecipientID == recipient && !m.IsRead {
			m.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, recipient string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, m := range r.items {
		if m.RecipientID == recipient && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id messaging.MessageID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return ErrMessageNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.items); j++ {
		r.index[r.items[j].ID] = j
	}
	return nil
}

func (r *MessageRepository) collect(keep func(messaging.Message) bool) []messaging.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]messaging.Message, 0)
	for _, m := range r.items {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	return out
}

var _ messaging.Repository = (*MessageRepository)(nil)
