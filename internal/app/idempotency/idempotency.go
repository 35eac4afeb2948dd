package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrKeyTooLong = errors.New("idempotency: key is too long")

const maxKeyLength = 128

// Record is the stored outcome of the first request made with a key.
type Record struct {
	Key        string
	Status     int
	Payload    []byte
	OccurredAt time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
}

// ScopedKey namespaces a client supplied key by user and operation so two users can never
// replay each other's responses. An empty client key disables idempotency.
func ScopedKey(userID, operation, clientKey string) (string, error) {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return "", nil
	}
	if len(clientKey) > maxKeyLength {
		return "", ErrKeyTooLong
	}
	return operation + ":" + userID + ":" + clientKey, nil
}
