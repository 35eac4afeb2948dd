package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"rentboard/internal/domain/messaging"
)

// MessageSentHandler receives decoded message.sent events.
type MessageSentHandler interface {
	MessageSent(ctx context.Context, eventID string, ev messaging.MessageSent) error
}

// MessageEvents consumes CloudEvents from the message topic and dispatches the ones it knows.
type MessageEvents struct {
	Sent MessageSentHandler
}

type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (h MessageEvents) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		// a poison message is acknowledged so it cannot block the partition
		return nil
	}
	switch evt.Type {
	case "message.sent.v1":
		if h.Sent == nil {
			return nil
		}
		var ev messaging.MessageSent
		if err := json.Unmarshal(evt.Data, &ev); err != nil {
			return nil
		}
		if err := h.Sent.MessageSent(ctx, evt.ID, ev); err != nil {
			return fmt.Errorf("kafka: handle %s: %w", evt.ID, err)
		}
	}
	return nil
}

var _ MessageHandler = MessageEvents{}
