package kvstore

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemory_AbsentKeyIsNotAnError(t *testing.T) {
	m := NewMemory()
	v, ok, err := m.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok || v != "" {
		t.Fatalf("expected absent, got ok=%v value=%q", ok, v)
	}
}

func TestMemory_TTLExpiresAgainstClock(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	m := NewMemory()
	m.Clock = func() time.Time { return now }

	if err := m.Set(context.Background(), "k", "v", time.Hour); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, ok, _ := m.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected key present before expiry")
	}

	now = now.Add(time.Hour)
	if _, ok, _ := m.Get(context.Background(), "k"); ok {
		t.Fatalf("expected key expired at the horizon")
	}
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	m := NewMemory()
	m.Clock = func() time.Time { return now }

	_ = m.Set(context.Background(), "k", "v", 0)
	now = now.Add(1000 * time.Hour)
	if _, ok, _ := m.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected key with no ttl to survive")
	}
}

func TestCapped_RejectsOversizeValues(t *testing.T) {
	m := NewMemory()
	c := NewCapped(m, 16)

	err := c.Set(context.Background(), "k", strings.Repeat("x", 17), 0)
	if err != ErrValueTooLarge {
		t.Fatalf("expected ErrValueTooLarge, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("oversize write must not reach the inner store")
	}

	if err := c.Set(context.Background(), "k", strings.Repeat("x", 16), 0); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, ok, _ := c.Get(context.Background(), "k"); !ok || len(v) != 16 {
		t.Fatalf("expected fitting value stored, got ok=%v len=%d", ok, len(v))
	}
}
