package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Dashboard users are scoped to a site (the tracked web property); SiteID
// must be present for all non-admin activity.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	SiteID    string    `json:"site_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
