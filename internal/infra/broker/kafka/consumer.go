package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ConsumerOptions configure a group consumer. Zero values pick defaults.
type ConsumerOptions struct {
	Brokers []string
	Group   string
	Topics  []string
	// Retry lists the pauses between attempts at one message. Once exhausted the claim
	// stops without committing, and the group resumes from the last committed offset.
	Retry  []time.Duration
	Config *sarama.Config
	Logger *slog.Logger
}

var defaultRetry = []time.Duration{200 * time.Millisecond, time.Second, 5 * time.Second}

// Consumer feeds a consumer group's messages to a handler, in order per partition.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler
	retry   []time.Duration
	logger  *slog.Logger
}

func NewConsumer(opts ConsumerOptions, handler MessageHandler) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("kafka: consumer %q has no handler", opts.Group)
	}
	if len(opts.Topics) == 0 {
		return nil, fmt.Errorf("kafka: consumer %q has no topics", opts.Group)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = sarama.NewConfig()
		cfg.Version = sarama.V2_5_0_0
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	group, err := sarama.NewConsumerGroup(opts.Brokers, opts.Group, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: consumer group %q: %w", opts.Group, err)
	}
	retry := opts.Retry
	if retry == nil {
		retry = defaultRetry
	}
	return &Consumer{group: group, topics: opts.Topics, handler: handler, retry: retry, logger: opts.Logger}, nil
}

// Run consumes until ctx ends. Each session ends on a rebalance or on a message that kept
// failing; the loop then rejoins the group.
func (c *Consumer) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := c.group.Consume(ctx, c.topics, claimHandler{c}); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

// deliver hands msg to the handler, pausing between failed attempts as retry says.
func deliver(ctx context.Context, h MessageHandler, msg *sarama.ConsumerMessage, retry []time.Duration) error {
	err := h.Handle(ctx, msg)
	for _, pause := range retry {
		if err == nil {
			return nil
		}
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		err = h.Handle(ctx, msg)
	}
	return err
}

type claimHandler struct{ c *Consumer }

func (h claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks a message only once it was handled. A message that still fails after
// every retry ends the claim unmarked, so it is redelivered.
func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := deliver(sess.Context(), h.c.handler, msg, h.c.retry); err != nil {
			if h.c.logger != nil {
				h.c.logger.Warn("kafka message not handled, claim released",
					"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			}
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
