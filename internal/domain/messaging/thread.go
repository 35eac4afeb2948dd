package messaging

import (
	"errors"
	"fmt"
	"sort"
)

const (
	UnknownListingTitle = "unknown listing"
	UnknownUserName     = "unknown user"
	DefaultRole         = "tenant"
)

// ErrInvalidScope is wrapped by InvalidScopeError.
var ErrInvalidScope = errors.New("messaging: message outside viewer scope")

// InvalidScopeError reports a message that neither came from nor went to the viewer.
type InvalidScopeError struct {
	MessageID MessageID
	ViewerID  string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("messaging: message %q does not involve viewer %q", e.MessageID, e.ViewerID)
}

func (e *InvalidScopeError) Unwrap() error { return ErrInvalidScope }

// ThreadKey identifies a conversation from the viewer's side.
type ThreadKey struct {
	ListingID     string
	CounterpartID string
}

// Thread is the view of every message exchanged with one counterpart about one listing.
// Threads are rebuilt from scratch on every load and never persisted.
type Thread struct {
	Key          ThreadKey
	ListingTitle string
	Counterpart  Participant
	// Messages are ordered oldest first.
	Messages    []Message
	LastMessage Message
	UnreadCount int
	// MissingReferences is set when a placeholder replaced a denormalized reference.
	MissingReferences bool
}

type threadBuilder struct {
	thread *Thread
	order  int
}

// BuildThreads groups viewer's messages by listing and counterpart. Threads are sorted by
// their last message, newest first. The input is never modified.
func BuildThreads(messages []Message, viewer string) ([]Thread, error) {
	for _, msg := range messages {
		if !msg.Involves(viewer) {
			return nil, &InvalidScopeError{MessageID: msg.ID, ViewerID: viewer}
		}
	}

	groups := make(map[ThreadKey]*threadBuilder)
	order := make([]ThreadKey, 0)
	for _, msg := range messages {
		key := ThreadKey{ListingID: msg.ListingID, CounterpartID: msg.CounterpartID(viewer)}
		b, ok := groups[key]
		if !ok {
			b = &threadBuilder{thread: &Thread{Key: key}, order: len(order)}
			groups[key] = b
			order = append(order, key)
		}
		b.thread.Messages = append(b.thread.Messages, msg.Clone())
	}

	threads := make([]Thread, 0, len(order))
	for _, key := range order {
		t := groups[key].thread
		finalize(t, viewer)
		threads = append(threads, *t)
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastMessage.CreatedAt.After(threads[j].LastMessage.CreatedAt)
	})
	return threads, nil
}

func finalize(t *Thread, viewer string) {
	// pick references in arrival order before the chronological sort reshuffles messages
	t.ListingTitle, t.Counterpart, t.MissingReferences = resolveReferences(t.Messages, t.Key, viewer)

	last := 0
	unread := 0
	for i, msg := range t.Messages {
		if msg.CreatedAt.After(t.Messages[last].CreatedAt) {
			last = i
		}
		if !msg.IsRead && msg.RecipientID == viewer {
			unread++
		}
	}
	t.LastMessage = t.Messages[last].Clone()
	t.UnreadCount = unread

	sort.SliceStable(t.Messages, func(i, j int) bool {
		return t.Messages[i].CreatedAt.Before(t.Messages[j].CreatedAt)
	})
}

func resolveReferences(messages []Message, key ThreadKey, viewer string) (string, Participant, bool) {
	title := ""
	var counterpart *Participant
	for _, msg := range messages {
		if title == "" && msg.Listing != nil && msg.Listing.Title != "" {
			title = msg.Listing.Title
		}
		if counterpart == nil {
			if ref := msg.counterpartRef(viewer); ref != nil {
				counterpart = ref
			}
		}
		if title != "" && counterpart != nil {
			break
		}
	}

	missing := false
	if title == "" {
		title = UnknownListingTitle
		missing = true
	}
	out := Participant{ID: key.CounterpartID, Name: UnknownUserName, Role: DefaultRole}
	if counterpart == nil {
		missing = true
	} else {
		if counterpart.Name != "" {
			out.Name = counterpart.Name
		} else {
			missing = true
		}
		if counterpart.Role != "" {
			out.Role = counterpart.Role
		}
	}
	return title, out, missing
}

// MarkThreadRead returns a copy of thread with every message addressed to viewer marked
// read, together with the identifiers that changed. Messages sent by viewer are untouched
// and already-read messages are never reported twice.
func MarkThreadRead(thread Thread, viewer string) (Thread, []MessageID) {
	out := thread
	out.Messages = make([]Message, len(thread.Messages))
	var flipped []MessageID
	for i, msg := range thread.Messages {
		cp := msg.Clone()
		if !cp.IsRead && cp.RecipientID == viewer {
			cp.IsRead = true
			flipped = append(flipped, cp.ID)
		}
		out.Messages[i] = cp
	}
	out.LastMessage = thread.LastMessage.Clone()
	if !out.LastMessage.IsRead && out.LastMessage.RecipientID == viewer {
		out.LastMessage.IsRead = true
	}
	out.UnreadCount = 0
	for _, msg := range out.Messages {
		if !msg.IsRead && msg.RecipientID == viewer {
			out.UnreadCount++
		}
	}
	return out, flipped
}

// AppendAndRebuild adds msg to the messages already grouped in threads and regroups
// everything from scratch.
func AppendAndRebuild(threads []Thread, msg Message, viewer string) ([]Thread, error) {
	total := 1
	for _, t := range threads {
		total += len(t.Messages)
	}
	flat := make([]Message, 0, total)
	for _, t := range threads {
		flat = append(flat, t.Messages...)
	}
	flat = append(flat, msg)
	return BuildThreads(flat, viewer)
}
