package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "rentboard/internal/app/outbox"
)

// Outbox holds events until Flush and then drops them; there is no broker behind it.
// A recording outbox keeps flushed records so tests can inspect them.
type Outbox struct {
	Logger *slog.Logger

	mu        sync.Mutex
	pending   []appoutbox.EventRecord
	record    bool
	delivered []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// NewRecordingOutbox keeps every flushed record. Use it in tests only.
func NewRecordingOutbox() *Outbox {
	return &Outbox{record: true}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Logger != nil {
		for _, rec := range o.pending {
			o.Logger.Debug("event discarded", "event", rec.Name, "aggregate", rec.Aggregate)
		}
	}
	if o.record {
		o.delivered = append(o.delivered, o.pending...)
	}
	o.pending = nil
	return nil
}

// Delivered returns a copy of every flushed record of a recording outbox.
func (o *Outbox) Delivered() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.delivered...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
