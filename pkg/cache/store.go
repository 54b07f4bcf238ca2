// Package cache provides expiring key/value stores used to persist the
// provider token pair between requests and processes. Four backends are
// available: an in-process map, an atomically written JSON file, an embedded
// SQLite database and Redis.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("cache: store closed")

// Store is an expiring key/value store. Implementations must be safe for
// concurrent use. Get never returns an expired value.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// EvictExpired removes entries whose TTL has elapsed. Backends with
	// native expiry may treat it as a no-op.
	EvictExpired(ctx context.Context) error
	Close() error
}

// Entry is a single value with its time-to-live, used for batched writes.
type Entry struct {
	Key   string
	Value string
	TTL   time.Duration
}

// BatchStore is implemented by stores that can persist several entries in
// one round trip (a transaction or a pipeline).
type BatchStore interface {
	SetMany(ctx context.Context, entries []Entry) error
}

// SetAll writes entries through SetMany when the store supports it and falls
// back to one Set per entry otherwise.
func SetAll(ctx context.Context, s Store, entries []Entry) error {
	if b, ok := s.(BatchStore); ok {
		return b.SetMany(ctx, entries)
	}

	for _, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value, e.TTL); err != nil {
			return err
		}
	}

	return nil
}

// expiresAt converts a TTL into an absolute deadline. A non-positive TTL
// means the entry never expires and yields the zero time.
func expiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}

	return now.Add(ttl)
}

// expired reports whether a deadline has passed. The zero deadline never expires.
func expired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}
