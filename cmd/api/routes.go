package main

import (
	"github.com/mehtameet005/utm-tracker/internal/httpapi"
	"github.com/mehtameet005/utm-tracker/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Healthz)

	// Collector endpoints (public). Browser snippets cannot carry bearer
	// tokens; abuse is bounded by the per-visitor ingest budget instead.
	track := r.Group("/track")
	{
		track.POST("/pageview", h.TrackPageView)
		track.POST("/events", h.TrackEvent)
	}

	// protected dashboard API
	v1 := r.Group("/v1")
	{
		// Token issuance (credential validation not wired yet).
		v1.POST("/auth/login", h.Login)

		authed := v1.Group("")
		authed.Use(authMW)
		authed.Use(rbac.RequireSite())
		authed.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAnalyst))
		{
			authed.GET("/attribution/:visitor_key", h.GetAttribution)
			authed.GET("/reports/funnel", h.GetFunnelReport)
		}
	}
}
