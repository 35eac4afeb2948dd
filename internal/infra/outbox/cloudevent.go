package outbox

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	appoutbox "rentboard/internal/app/outbox"
)

const defaultSource = "app://rentboard"

// Envelope is a domain event ready for the broker.
type Envelope struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
}

// Formatter wraps event payloads into CloudEvents JSON envelopes.
type Formatter struct {
	TopicPrefix string
	Source      string
	// NewID names records that arrive without an id.
	NewID func() string
}

// Format builds the envelope for a stored event. The payload must be a JSON object.
// The CloudEvent id is the record id, so a re-published record keeps its identity.
func (f Formatter) Format(rec appoutbox.EventRecord) (Envelope, error) {
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return Envelope{}, err
	}
	id := rec.ID
	if id == "" {
		id = f.newID()
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              id,
		"type":            rec.Name + ".v1",
		"source":          f.source(),
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt.UTC(),
		"datacontenttype": "application/json",
		"data":            data,
	}
	headers := rec.Headers
	if trace, ok := headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, err
	}
	out := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range headers {
		out[k] = v
	}
	return Envelope{Topic: f.TopicFor(rec.Name), Key: rec.Aggregate, Payload: body, Headers: out}, nil
}

// TopicFor maps "message.sent" to "<prefix>message.events.v1".
func (f Formatter) TopicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return f.TopicPrefix + base + ".events.v1"
}

func (f Formatter) source() string {
	if f.Source != "" {
		return f.Source
	}
	return defaultSource
}

func (f Formatter) newID() string {
	if f.NewID != nil {
		return f.NewID()
	}
	return uuid.NewString()
}
