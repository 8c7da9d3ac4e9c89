package identity

import (
	"context"
	"errors"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/kvstore"

	"github.com/google/uuid"
)

const identityKeyPrefix = "vid:v1:"

var ErrStoreUnavailable = errors.New("identity: store unavailable")

// Provider hands out stable opaque visitor identities.
//
// An identity is created on first need and persisted with the same
// expiration horizon as attribution records. It is never regenerated while
// the store still holds it; events for one visitor always group under one
// identity.
type Provider struct {
	store kvstore.Store
	ttl   time.Duration

	// newID is injectable for deterministic tests.
	newID func() string
}

func NewProvider(store kvstore.Store, ttl time.Duration) *Provider {
	return &Provider{store: store, ttl: ttl, newID: uuid.NewString}
}

// Ensure returns the identity for a visitor, minting one when needed.
//
// A presented identity that is still in the store is returned as-is. A
// presented identity the store no longer knows is re-adopted and
// re-persisted: the visitor's client kept the key alive longer than the
// server did, and adopting it preserves journey continuity. Only an empty
// presentation mints a fresh identity.
func (p *Provider) Ensure(ctx context.Context, presented string) (string, error) {
	if p.store == nil {
		return "", ErrStoreUnavailable
	}

	if presented != "" {
		_, ok, err := p.store.Get(ctx, identityKeyPrefix+presented)
		if err != nil {
			return "", err
		}
		if !ok {
			if err := p.store.Set(ctx, identityKeyPrefix+presented, presented, p.ttl); err != nil {
				return "", err
			}
		}
		return presented, nil
	}

	id := p.newID()
	if err := p.store.Set(ctx, identityKeyPrefix+id, id, p.ttl); err != nil {
		return "", err
	}
	return id, nil
}
