package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
)

// DefaultTTL is how long reservations and records are kept when no TTL is given.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInFlight is returned by Reserve when another request holds the key.
	ErrInFlight = constant.ErrIdempotencyConflict
	// ErrNotFound is returned by Get when no record is stored for the key.
	ErrNotFound = errors.New("idempotency record not found")
	// ErrEmptyKey is returned when an operation receives a blank key.
	ErrEmptyKey = errors.New("idempotency key cannot be empty")
	// ErrNilClient is returned when a Redis store is built without a client.
	ErrNilClient = errors.New("redis client cannot be nil")
)

// Record is the stored outcome of a completed request.
type Record struct {
	StatusCode  int       `json:"statusCode"`
	ContentType string    `json:"contentType,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store keeps idempotency reservations and records.
//
// Reserve claims key for the caller. It returns (nil, nil) when the key was
// free, the stored Record when the key already completed, and ErrInFlight when
// another request holds the reservation.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (*Record, error)
	Complete(ctx context.Context, key string, record Record, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Record, error)
	Release(ctx context.Context, key string) error
}

func normalize(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}

	return key, nil
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}

	return ttl
}
