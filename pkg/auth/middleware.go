package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

var (
	ErrInvalidAuthorization = errors.New("authorization header must use the Bearer scheme")
	ErrInvalidToken         = errors.New("invalid token")
)

// ProfileRecorder receives the profile of every authenticated request.
// The tracker implements it so the persisted record carries the current user.
type ProfileRecorder interface {
	SetUserProfile(ctx context.Context, profile models.UserProfile) error
}

// Middleware provides HTTP authentication middleware.
type Middleware struct {
	verify   bool
	secret   []byte
	recorder ProfileRecorder
	logger   *zap.Logger
}

// NewMiddleware creates an auth middleware. recorder may be nil.
func NewMiddleware(cfg config.AuthConfig, recorder ProfileRecorder, logger *zap.Logger) *Middleware {
	return &Middleware{
		verify:   cfg.EnableVerification,
		secret:   []byte(cfg.JWTSecret),
		recorder: recorder,
		logger:   logger.Named("auth"),
	}
}

// ParseToken parses a bearer token into claims. With verification enabled the
// HS256 signature and the registered time claims are checked.
func (m *Middleware) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if !m.verify {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return claims, nil
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Authenticate attaches claims for requests that carry a bearer token.
// Requests without an Authorization header continue as the anonymous user;
// a malformed or rejected token is answered with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			m.unauthorized(w, ErrInvalidAuthorization.Error())
			return
		}

		claims, err := m.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			m.logger.Debug("Rejected bearer token",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		if m.recorder != nil {
			if err := m.recorder.SetUserProfile(ctx, claims.Profile()); err != nil {
				m.logger.Warn("Failed to record user profile",
					zap.String("user_id", claims.Subject),
					zap.Error(err))
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that were not authenticated by Authenticate.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetClaims(r.Context()); !ok {
			m.unauthorized(w, "Authentication required")
			return
		}
		next(w, r)
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
