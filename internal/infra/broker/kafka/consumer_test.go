package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
)

type countingHandler struct {
	failures int
	calls    int
}

func (h *countingHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("recipient store offline")
	}
	return nil
}

func TestDeliver_RetriesUntilHandled(t *testing.T) {
	h := &countingHandler{failures: 2}
	err := deliver(context.Background(), h, &sarama.ConsumerMessage{}, []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond})
	assert.NoError(t, err)
	assert.Equal(t, 3, h.calls)
}

func TestDeliver_GivesUpAfterRetries(t *testing.T) {
	h := &countingHandler{failures: 10}
	err := deliver(context.Background(), h, &sarama.ConsumerMessage{}, []time.Duration{time.Millisecond})
	assert.Error(t, err)
	assert.Equal(t, 2, h.calls)
}

func TestDeliver_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &countingHandler{failures: 10}
	err := deliver(ctx, h, &sarama.ConsumerMessage{}, []time.Duration{time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, h.calls)
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(ConsumerOptions{Group: "g", Topics: []string{"t"}}, nil)
	assert.Error(t, err)
	_, err = NewConsumer(ConsumerOptions{Group: "g"}, &countingHandler{})
	assert.Error(t, err)
}
