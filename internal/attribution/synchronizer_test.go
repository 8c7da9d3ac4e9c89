package attribution

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/kvstore"
)

func newTestSync(t *testing.T) (*Synchronizer, *kvstore.Memory, *kvstore.Memory) {
	t.Helper()
	durable := kvstore.NewMemory()
	backup := kvstore.NewMemory()
	return NewSynchronizer(durable, backup, 90*24*time.Hour), durable, backup
}

func TestSynchronizer_WritesBothStoresIdentically(t *testing.T) {
	s, durable, backup := newTestSync(t)
	ctx := context.Background()

	rec := &Record{Source: "google", Medium: "cpc", FirstVisitAt: testNow}
	if err := s.Reconcile(ctx, "v1", rec); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	dv, dok, _ := durable.Get(ctx, "attr:v1:v1")
	bv, bok, _ := backup.Get(ctx, "attr:v1:v1")
	if !dok || !bok {
		t.Fatalf("expected both stores written")
	}
	if dv != bv {
		t.Fatalf("stores diverged: %q vs %q", dv, bv)
	}
}

func TestSynchronizer_RecoversBackupIntoDurable(t *testing.T) {
	s, durable, _ := newTestSync(t)
	ctx := context.Background()

	rec := &Record{Source: "google", Medium: "cpc", FirstVisitAt: testNow}
	if err := s.Reconcile(ctx, "v1", rec); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// Durable store cleared externally; backup survives.
	_ = durable.Delete(ctx, "attr:v1:v1")

	if err := s.Reconcile(ctx, "v1", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, err := s.CurrentDurable(ctx, "v1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got == nil || got.Source != "google" || got.Medium != "cpc" {
		t.Fatalf("expected backup promoted to durable, got %+v", got)
	}
}

func TestSynchronizer_SelfHealNeverOverwritesDurable(t *testing.T) {
	s, _, backup := newTestSync(t)
	ctx := context.Background()

	first := &Record{Source: "google", Medium: "cpc", FirstVisitAt: testNow}
	if err := s.Reconcile(ctx, "v1", first); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// Plant a different record in the backup store only.
	other, _ := (Record{Source: "facebook", FirstVisitAt: testNow}).Encode()
	_ = backup.Set(ctx, "attr:v1:v1", other, 0)

	if err := s.Reconcile(ctx, "v1", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, _ := s.CurrentDurable(ctx, "v1")
	if got == nil || got.Source != "google" {
		t.Fatalf("durable record must win over backup, got %+v", got)
	}
}

func TestSynchronizer_CorruptValuesReadAsAbsent(t *testing.T) {
	s, durable, backup := newTestSync(t)
	ctx := context.Background()

	_ = durable.Set(ctx, "attr:v1:v1", "{not json", 0)
	_ = backup.Set(ctx, "attr:v1:v1", "also not json}", 0)

	if got, err := s.CurrentDurable(ctx, "v1"); err != nil || got != nil {
		t.Fatalf("corrupt durable must read as absent, got %+v err %v", got, err)
	}
	if got, err := s.CurrentBackup(ctx, "v1"); err != nil || got != nil {
		t.Fatalf("corrupt backup must read as absent, got %+v err %v", got, err)
	}

	// Self-heal must not promote a corrupt backup value.
	if err := s.Reconcile(ctx, "v1", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got, _ := s.CurrentDurable(ctx, "v1"); got != nil {
		t.Fatalf("corrupt backup must not self-heal, got %+v", got)
	}
}

func TestSynchronizer_CappedBackupDoesNotFailReconcile(t *testing.T) {
	durable := kvstore.NewMemory()
	backup := kvstore.NewCapped(kvstore.NewMemory(), 8)
	s := NewSynchronizer(durable, backup, time.Hour)
	ctx := context.Background()

	rec := &Record{Source: strings.Repeat("x", 64), FirstVisitAt: testNow}
	if err := s.Reconcile(ctx, "v1", rec); err != nil {
		t.Fatalf("backup rejection must not fail the write: %v", err)
	}
	if got, _ := s.CurrentDurable(ctx, "v1"); got == nil {
		t.Fatalf("durable store must still carry the record")
	}
	if got, _ := s.CurrentBackup(ctx, "v1"); got != nil {
		t.Fatalf("oversize record must not land in the capped backup")
	}
}
