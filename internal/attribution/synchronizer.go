package attribution

import (
	"context"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/kvstore"
)

const attributionKeyPrefix = "attr:v1:"

// Synchronizer keeps the durable and backup stores carrying the same
// serialized attribution record.
//
// The durable store is authoritative for all reads. The backup exists only
// for recovery after the durable store has been cleared; self-healing is
// the single path data moves backup -> durable.
//
// Writes are last-write-wins. Concurrent writers (multiple tabs or
// collector instances for one visitor) race; that is an accepted
// consistency gap for this domain, not something this layer tries to lock
// around.
type Synchronizer struct {
	durable kvstore.Store
	backup  kvstore.Store
	ttl     time.Duration
}

func NewSynchronizer(durable, backup kvstore.Store, ttl time.Duration) *Synchronizer {
	return &Synchronizer{durable: durable, backup: backup, ttl: ttl}
}

func attributionKey(visitorKey string) string {
	return attributionKeyPrefix + visitorKey
}

// Reconcile writes a resolved record identically to both stores.
// A nil record triggers the self-healing pass instead: if the durable store
// is empty but the backup holds a parseable record, the backup copy is
// promoted into the durable store untouched.
func (s *Synchronizer) Reconcile(ctx context.Context, visitorKey string, resolved *Record) error {
	if visitorKey == "" {
		return nil
	}
	key := attributionKey(visitorKey)

	if resolved == nil {
		return s.selfHeal(ctx, key)
	}

	raw, err := resolved.Encode()
	if err != nil {
		return err
	}

	// Durable first: the record must be readable from the authoritative
	// store before anything downstream snapshots it.
	if err := s.durable.Set(ctx, key, raw, s.ttl); err != nil {
		return err
	}
	// Backup is best-effort. A full or size-capped backup store must not
	// fail the page load; it only narrows the recovery window.
	_ = s.backup.Set(ctx, key, raw, s.ttl)
	return nil
}

func (s *Synchronizer) selfHeal(ctx context.Context, key string) error {
	if _, ok, err := s.durable.Get(ctx, key); err != nil || ok {
		return err
	}
	raw, ok, err := s.backup.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	if _, valid := Decode(raw); !valid {
		return nil
	}
	return s.durable.Set(ctx, key, raw, s.ttl)
}

// CurrentDurable reads the authoritative record. Corrupt values read as
// absent, never as an error.
func (s *Synchronizer) CurrentDurable(ctx context.Context, visitorKey string) (*Record, error) {
	return s.read(ctx, s.durable, visitorKey)
}

// CurrentBackup reads the backup record. Recovery-only; callers other than
// the resolver's backup branch should not depend on it.
func (s *Synchronizer) CurrentBackup(ctx context.Context, visitorKey string) (*Record, error) {
	return s.read(ctx, s.backup, visitorKey)
}

func (s *Synchronizer) read(ctx context.Context, store kvstore.Store, visitorKey string) (*Record, error) {
	raw, ok, err := store.Get(ctx, attributionKey(visitorKey))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	rec, valid := Decode(raw)
	if !valid {
		return nil, nil
	}
	return &rec, nil
}
