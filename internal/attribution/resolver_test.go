package attribution

import (
	"reflect"
	"testing"
	"time"
)

var testNow = time.Unix(1700000000, 0).UTC()

func TestResolve_CampaignParams(t *testing.T) {
	// URL ?utm_source=google&utm_medium=cpc, no prior record.
	got := Resolve(ResolveInput{
		Params:      map[string]string{"utm_source": "google", "utm_medium": "cpc"},
		LandingPage: "https://example.com/landing",
		Now:         testNow,
	})
	if got == nil {
		t.Fatalf("expected a record")
	}
	if got.Source != "google" || got.Medium != "cpc" || got.Fallback {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.FirstVisitAt.Equal(testNow) || got.FirstLandingPage != "https://example.com/landing" {
		t.Fatalf("expected first-visit stamps, got %+v", got)
	}
}

func TestResolve_ReferrerFallback(t *testing.T) {
	// No params, no prior record, referrer bing.com.
	got := Resolve(ResolveInput{
		ReferrerHost: "bing.com",
		LandingPage:  "https://example.com/",
		Now:          testNow,
	})
	if got == nil {
		t.Fatalf("expected a fallback record")
	}
	if got.Source != "bing" || got.Medium != MediumReferral || !got.Fallback {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestResolve_ExistingRecordWins(t *testing.T) {
	existing := &Record{Source: "google", Medium: "cpc", FirstVisitAt: testNow}
	got := Resolve(ResolveInput{
		Params:       map[string]string{"utm_source": "facebook"},
		Existing:     existing,
		ReferrerHost: "facebook.com",
		Now:          testNow.Add(time.Hour),
	})
	if got != existing {
		t.Fatalf("expected the existing record unchanged, got %+v", got)
	}
}

func TestResolve_BackupBeatsReferrer(t *testing.T) {
	backup := &Record{Source: "newsletter", Medium: "email", FirstVisitAt: testNow}
	got := Resolve(ResolveInput{
		Backup:       backup,
		ReferrerHost: "google.com",
		Now:          testNow.Add(time.Hour),
	})
	if got != backup {
		t.Fatalf("expected backup adopted verbatim, got %+v", got)
	}
}

func TestResolve_DirectVisitIsNil(t *testing.T) {
	if got := Resolve(ResolveInput{Now: testNow}); got != nil {
		t.Fatalf("expected nil for an anonymous direct visit, got %+v", got)
	}
}

func TestResolve_UnknownReferrerUsesRawHost(t *testing.T) {
	got := Resolve(ResolveInput{ReferrerHost: "blog.partner.io", Now: testNow})
	if got == nil || got.Source != "blog.partner.io" || !got.Fallback {
		t.Fatalf("expected raw-host fallback, got %+v", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	in := ResolveInput{
		Params:      map[string]string{"utm_source": "google", "utm_campaign": "spring"},
		LandingPage: "https://example.com/",
		Now:         testNow,
	}
	a := Resolve(in)
	b := Resolve(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("resolve is not idempotent: %+v vs %+v", a, b)
	}
}

func TestResolve_AnySingleParamCounts(t *testing.T) {
	for _, p := range []string{ParamSource, ParamMedium, ParamCampaign, ParamTerm, ParamContent} {
		got := Resolve(ResolveInput{Params: map[string]string{p: "x"}, Now: testNow})
		if got == nil {
			t.Fatalf("expected record for lone %s", p)
		}
		if got.Fallback {
			t.Fatalf("tagged record must not be marked fallback (%s)", p)
		}
	}
}
