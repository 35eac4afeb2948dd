package messaging

import (
	"sort"
	"strings"
)

// ThreadFilter narrows a thread list the way the inbox search box does.
type ThreadFilter struct {
	Query      string
	UnreadOnly bool
}

// FilterThreads keeps threads whose listing title or counterpart name contains the query
// (case-insensitive), optionally only those with unread messages. Order is preserved.
func FilterThreads(threads []Thread, filter ThreadFilter) []Thread {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]Thread, 0, len(threads))
	for _, t := range threads {
		if filter.UnreadOnly && t.UnreadCount == 0 {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.ListingTitle), query) &&
			!strings.Contains(strings.ToLower(t.Counterpart.Name), query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FindThread returns the thread stored under key.
func FindThread(threads []Thread, key ThreadKey) (Thread, bool) {
	for _, t := range threads {
		if t.Key == key {
			return t, true
		}
	}
	return Thread{}, false
}

func UnreadTotal(threads []Thread) int {
	total := 0
	for _, t := range threads {
		total += t.UnreadCount
	}
	return total
}

// ParticipantPair is an unordered pair of users who exchanged messages.
type ParticipantPair struct {
	A string
	B string
}

// Participants lists the distinct pairs of users found in messages, each pair once with
// A < B, sorted.
func Participants(messages []Message) []ParticipantPair {
	seen := make(map[ParticipantPair]struct{}, len(messages))
	out := make([]ParticipantPair, 0)
	for _, msg := range messages {
		pair := ParticipantPair{A: msg.SenderID, B: msg.RecipientID}
		if pair.B < pair.A {
			pair.A, pair.B = pair.B, pair.A
		}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A == out[j].A {
			return out[i].B < out[j].B
		}
		return out[i].A < out[j].A
	})
	return out
}
