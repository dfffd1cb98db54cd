// Package auth turns bearer tokens into the user profile shown by the wizard.
// Tokens are HS256 JWTs; signature checks can be disabled for local development.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
)

// Claims represents the JWT claims accepted by ekaya-migrate.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.).
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Profile converts the claims into the display profile.
func (c *Claims) Profile() models.UserProfile {
	if c == nil || c.Subject == "" {
		return models.AnonymousUser()
	}
	name := c.Name
	if name == "" {
		name = c.Email
	}
	return models.UserProfile{
		ID:            c.Subject,
		Name:          name,
		Email:         c.Email,
		Authenticated: true,
	}
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// ProfileFromContext returns the profile for the request, or the anonymous
// profile when no claims were attached.
func ProfileFromContext(ctx context.Context) models.UserProfile {
	claims, ok := GetClaims(ctx)
	if !ok {
		return models.AnonymousUser()
	}
	return claims.Profile()
}
