package kvstore

import (
	"context"
	"errors"
	"time"
)

// Store is the key-value port shared by the attribution and identity layers.
//
// Contract:
// - Get returns (value, true) only for a present, unexpired key. A missing
//   key is (="", false, nil); absence is not an error, callers branch on ok.
// - Set with ttl > 0 bounds the key's lifetime; ttl == 0 means no expiry.
// - Implementations must never interpret the value; corruption handling
//   belongs to the caller decoding it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrValueTooLarge is returned by size-capped stores for oversize writes.
var ErrValueTooLarge = errors.New("kvstore: value exceeds size cap")

// Capped wraps a Store and rejects values larger than MaxBytes.
// The backup store is size-limited; attribution records that do not fit
// are dropped rather than truncated into unparseable JSON.
type Capped struct {
	Inner    Store
	MaxBytes int
}

func NewCapped(inner Store, maxBytes int) *Capped {
	return &Capped{Inner: inner, MaxBytes: maxBytes}
}

func (c *Capped) Get(ctx context.Context, key string) (string, bool, error) {
	return c.Inner.Get(ctx, key)
}

func (c *Capped) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.MaxBytes > 0 && len(value) > c.MaxBytes {
		return ErrValueTooLarge
	}
	return c.Inner.Set(ctx, key, value, ttl)
}

func (c *Capped) Delete(ctx context.Context, key string) error {
	return c.Inner.Delete(ctx, key)
}
