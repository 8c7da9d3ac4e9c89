package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/attribution"
	"github.com/mehtameet005/utm-tracker/internal/identity"
	"github.com/mehtameet005/utm-tracker/internal/kvstore"
)

type fixture struct {
	svc     *Service
	repo    *MemoryRepo
	durable *kvstore.Memory
	backup  *kvstore.Memory
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    NewMemoryRepo(),
		durable: kvstore.NewMemory(),
		backup:  kvstore.NewMemory(),
		now:     time.Unix(1700000000, 0).UTC(),
	}
	sync := attribution.NewSynchronizer(f.durable, f.backup, 90*24*time.Hour)
	ids := identity.NewProvider(f.durable, 90*24*time.Hour)
	f.svc = NewService(f.repo, sync, ids)
	f.svc.clock = func() time.Time { return f.now }
	return f
}

func TestPageView_TaggedVisitWritesAttributionBeforeEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.svc.PageView(ctx, PageContext{
		URL:   "https://example.com/landing?utm_source=google&utm_medium=cpc",
		Query: map[string]string{"utm_source": "google", "utm_medium": "cpc"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Type != EventTypePageView || ev.Identity == "" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	// The event must carry the snapshot that was just written, not nil.
	if ev.Attribution == nil || ev.Attribution.Source != "google" || ev.Attribution.Medium != "cpc" {
		t.Fatalf("expected attribution snapshot on page_view, got %+v", ev.Attribution)
	}

	stored, err := f.svc.Attribution(ctx, ev.Identity)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stored == nil || stored.Source != "google" || stored.Fallback {
		t.Fatalf("unexpected durable record: %+v", stored)
	}
}

func TestPageView_FirstTouchSurvivesLaterCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.PageView(ctx, PageContext{
		URL:   "https://example.com/?utm_source=google",
		Query: map[string]string{"utm_source": "google"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	f.now = f.now.Add(time.Hour)
	second, err := f.svc.PageView(ctx, PageContext{
		PresentedIdentity: first.Identity,
		URL:               "https://example.com/?utm_source=facebook",
		Query:             map[string]string{"utm_source": "facebook"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if second.Attribution == nil || second.Attribution.Source != "google" {
		t.Fatalf("first-touch violated: %+v", second.Attribution)
	}
	stored, _ := f.svc.Attribution(ctx, first.Identity)
	if stored == nil || stored.Source != "google" {
		t.Fatalf("durable record overwritten: %+v", stored)
	}
}

func TestPageView_ReferrerFallback(t *testing.T) {
	f := newFixture(t)

	ev, err := f.svc.PageView(context.Background(), PageContext{
		URL:          "https://example.com/",
		ReferrerHost: "bing.com",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Attribution == nil || ev.Attribution.Source != "bing" || !ev.Attribution.Fallback {
		t.Fatalf("expected bing referral fallback, got %+v", ev.Attribution)
	}
	if ev.Attribution.Medium != attribution.MediumReferral {
		t.Fatalf("expected referral medium, got %q", ev.Attribution.Medium)
	}
}

func TestPageView_DirectVisitStaysAnonymous(t *testing.T) {
	f := newFixture(t)

	ev, err := f.svc.PageView(context.Background(), PageContext{URL: "https://example.com/"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Attribution != nil {
		t.Fatalf("expected nil attribution for direct visit, got %+v", ev.Attribution)
	}
	stored, _ := f.svc.Attribution(context.Background(), ev.Identity)
	if stored != nil {
		t.Fatalf("direct visit must not create a durable record, got %+v", stored)
	}
}

func TestPageView_RecoversAttributionFromBackup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.PageView(ctx, PageContext{
		URL:   "https://example.com/?utm_source=google",
		Query: map[string]string{"utm_source": "google"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// Durable store cleared externally; backup survives.
	_ = f.durable.Delete(ctx, "attr:v1:"+first.Identity)

	second, err := f.svc.PageView(ctx, PageContext{
		PresentedIdentity: first.Identity,
		URL:               "https://example.com/other",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if second.Attribution == nil || second.Attribution.Source != "google" {
		t.Fatalf("expected backup recovery, got %+v", second.Attribution)
	}
	stored, _ := f.svc.Attribution(ctx, first.Identity)
	if stored == nil || stored.Source != "google" {
		t.Fatalf("expected durable store healed, got %+v", stored)
	}
}

func TestRecord_StampsSnapshotAndAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pv, _ := f.svc.PageView(ctx, PageContext{
		URL:   "https://example.com/?utm_source=google",
		Query: map[string]string{"utm_source": "google"},
	})

	f.now = f.now.Add(time.Second)
	ev, err := f.svc.Record(ctx, pv.Identity, EventTypeButtonClick, "https://example.com/", map[string]string{"button_id": "cta"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Attribution == nil || ev.Attribution.Source != "google" {
		t.Fatalf("expected attribution snapshot, got %+v", ev.Attribution)
	}
	if !ev.Timestamp.Equal(f.now) {
		t.Fatalf("expected clock stamp %v, got %v", f.now, ev.Timestamp)
	}

	log, _ := f.repo.List(ctx)
	if len(log) != 2 {
		t.Fatalf("expected 2 events in the log, got %d", len(log))
	}
}

func TestRecord_ConsentWithheldSuppressesAppend(t *testing.T) {
	f := newFixture(t)
	ctx := WithConsent(context.Background(), false)

	ev, err := f.svc.Record(ctx, "v1", EventTypeFormSubmission, "https://example.com/", nil)
	if err != nil {
		t.Fatalf("suppression is not an error: %v", err)
	}
	// The event is still constructed for inspection.
	if ev.Type != EventTypeFormSubmission || ev.Identity == "" {
		t.Fatalf("expected a constructed event, got %+v", ev)
	}

	log, _ := f.repo.List(context.Background())
	if len(log) != 0 {
		t.Fatalf("consent-suppressed event reached the log")
	}
}

func TestRecord_RejectsEmptyType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Record(context.Background(), "v1", "", "", nil); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
