package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	appoutbox "rentboard/internal/app/outbox"
)

const defaultMaxPending = 1000

// Direct publishes buffered records straight to the broker on Flush. It is used when there
// is no durable store to relay from. Records that fail stay buffered for the next Flush, up
// to MaxPending; beyond that the oldest are dropped.
type Direct struct {
	Producer   Producer
	Formatter  Formatter
	MaxPending int
	Logger     *slog.Logger

	mu      sync.Mutex
	pending []appoutbox.EventRecord
}

func (d *Direct) Add(ctx context.Context, record appoutbox.EventRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, record)
	d.trimLocked()
	return nil
}

// Flush takes the current backlog and publishes it without holding the lock, so other
// senders are not blocked by broker round-trips.
func (d *Direct) Flush(ctx context.Context) error {
	if d.Producer == nil {
		return ErrWorkerNotConfigured
	}
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	d.mu.Unlock()

	var (
		errs   []error
		failed []appoutbox.EventRecord
	)
	for _, rec := range batch {
		env, err := d.Formatter.Format(rec)
		if err != nil {
			// malformed payloads never become publishable
			errs = append(errs, err)
			continue
		}
		if err := d.Producer.Publish(ctx, env.Topic, env.Key, env.Payload, env.Headers); err != nil {
			errs = append(errs, err)
			failed = append(failed, rec)
		}
	}
	if len(errs) == 0 {
		return nil
	}

	d.mu.Lock()
	d.pending = append(failed, d.pending...)
	d.trimLocked()
	pending := len(d.pending)
	d.mu.Unlock()
	if d.Logger != nil {
		d.Logger.Warn("direct outbox flush incomplete", "failed", len(errs), "pending", pending)
	}
	return errors.Join(errs...)
}

// Pending reports how many records wait for a successful Flush.
func (d *Direct) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Direct) trimLocked() {
	limit := d.MaxPending
	if limit <= 0 {
		limit = defaultMaxPending
	}
	over := len(d.pending) - limit
	if over <= 0 {
		return
	}
	if d.Logger != nil {
		d.Logger.Warn("direct outbox backlog full, dropping oldest records", "dropped", over)
	}
	d.pending = append([]appoutbox.EventRecord(nil), d.pending[over:]...)
}

var _ appoutbox.Outbox = (*Direct)(nil)
