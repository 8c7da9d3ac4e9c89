package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/auth"
	"github.com/mehtameet005/utm-tracker/internal/report"
	"github.com/mehtameet005/utm-tracker/internal/tracker"
	"github.com/mehtameet005/utm-tracker/pkg/logger"
	"github.com/mehtameet005/utm-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Collectors signal withheld consent with this header. Absence means
// granted; attribution capture itself is never gated on it.
const headerConsent = "X-Tracking-Consent"

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Tracker *tracker.Service
	Reports *report.Service

	// AllowEvent is the per-visitor ingest budget check. Nil disables the
	// cap. Kept as a function injection so handler tests run without Redis.
	AllowEvent func(ctx context.Context, visitorKey string) (bool, error)

	// DB backs the health endpoint. Nil skips the ping; memory-backed
	// deployments and handler tests stay healthy without Postgres.
	DB *sql.DB
}

// --- Health ---

// Healthz reports liveness. When a database is wired it pings it, so a
// dead backup store shows up in orchestration checks.
func (h Handlers) Healthz(c *gin.Context) {
	if h.DB != nil {
		if err := utils.HealthCheck(c.Request.Context(), h.DB, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	SiteID string `json:"site_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair for dashboard access.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.SiteID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, site_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.SiteID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Tracking ---

type pageViewRequest struct {
	VisitorKey string `json:"visitor_key,omitempty"`
	URL        string `json:"url"`
	Referrer   string `json:"referrer,omitempty"`
}

// TrackPageView handles the once-per-page-load "page entered" signal.
func (h Handlers) TrackPageView(c *gin.Context) {
	if h.Tracker == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "tracker not configured"})
		return
	}
	var req pageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	pageURL, err := url.Parse(req.URL)
	if err != nil || pageURL.Host == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "url must be absolute"})
		return
	}

	ctx := withConsentFromHeader(c)
	ev, err := h.Tracker.PageView(ctx, tracker.PageContext{
		PresentedIdentity: req.VisitorKey,
		URL:               req.URL,
		Query:             firstQueryValues(pageURL),
		ReferrerHost:      crossOriginReferrerHost(req.Referrer, pageURL.Host),
	})
	if err != nil {
		logger.FromGin(c).Error("pageview failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pageview failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"visitor_key": ev.Identity,
		"attribution": ev.Attribution,
	})
}

type eventRequest struct {
	VisitorKey string            `json:"visitor_key"`
	EventType  string            `json:"event_type"`
	PageURL    string            `json:"page_url,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// TrackEvent handles interaction notifications from DOM collectors.
func (h Handlers) TrackEvent(c *gin.Context) {
	if h.Tracker == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "tracker not configured"})
		return
	}
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.EventType == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "event_type required"})
		return
	}

	if h.AllowEvent != nil && req.VisitorKey != "" {
		ok, err := h.AllowEvent(c.Request.Context(), req.VisitorKey)
		if err != nil {
			// Budget check is protective, not load-bearing; degrade open.
			logger.FromGin(c).Warn("ingest budget check failed", "err", err)
		} else if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "ingest budget exhausted"})
			return
		}
	}

	ctx := withConsentFromHeader(c)
	ev, err := h.Tracker.Record(ctx, req.VisitorKey, tracker.EventType(req.EventType), req.PageURL, req.Details)
	if err != nil {
		if err == tracker.ErrInvalidEvent {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
			return
		}
		logger.FromGin(c).Error("record failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "record failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event_id":    ev.ID,
		"visitor_key": ev.Identity,
		"recorded":    tracker.ConsentFrom(ctx),
	})
}

// --- Dashboard reads ---

func (h Handlers) GetAttribution(c *gin.Context) {
	if h.Tracker == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "tracker not configured"})
		return
	}
	visitorKey := c.Param("visitor_key")
	if visitorKey == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "visitor_key required"})
		return
	}
	rec, err := h.Tracker.Attribution(c.Request.Context(), visitorKey)
	if err != nil {
		logger.FromGin(c).Error("attribution lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "attribution lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitor_key": visitorKey, "attribution": rec})
}

func (h Handlers) GetFunnelReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reports not configured"})
		return
	}
	r, err := h.Reports.Generate(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("report generation failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// --- helpers ---

func withConsentFromHeader(c *gin.Context) context.Context {
	v := strings.ToLower(strings.TrimSpace(c.GetHeader(headerConsent)))
	switch v {
	case "denied", "false", "0":
		return tracker.WithConsent(c.Request.Context(), false)
	default:
		return c.Request.Context()
	}
}

func firstQueryValues(u *url.URL) map[string]string {
	q := u.Query()
	out := make(map[string]string, len(q))
	for k, vs := range q {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

// crossOriginReferrerHost returns the referrer host only when it differs
// from the page host. Same-origin navigations carry no attribution signal
// and would otherwise misattribute internal clicks as referrals.
func crossOriginReferrerHost(referrer, pageHost string) string {
	if referrer == "" {
		return ""
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Host == "" {
		return ""
	}
	if strings.EqualFold(u.Host, pageHost) {
		return ""
	}
	return u.Host
}
