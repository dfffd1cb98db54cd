package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/testhelpers"
)

const testSecret = "test-secret-with-enough-bytes-for-hs256"

type recordingSink struct {
	profiles []models.UserProfile
	err      error
}

func (s *recordingSink) SetUserProfile(_ context.Context, profile models.UserProfile) error {
	s.profiles = append(s.profiles, profile)
	return s.err
}

// serve runs one request through Authenticate and returns the response and
// the profile the downstream handler saw (nil when it was not reached).
func serve(t *testing.T, m *Middleware, authorization string) (*httptest.ResponseRecorder, *models.UserProfile) {
	t.Helper()

	var seen *models.UserProfile
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile := ProfileFromContext(r.Context())
		seen = &profile
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/wizard", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware_NoHeaderIsAnonymous(t *testing.T) {
	sink := &recordingSink{}
	m := NewMiddleware(config.AuthConfig{}, sink, zap.NewNop())

	rec, seen := serve(t, m, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, models.AnonymousUser(), *seen)
	assert.Empty(t, sink.profiles)
}

func TestMiddleware_UnverifiedToken(t *testing.T) {
	sink := &recordingSink{}
	m := NewMiddleware(config.AuthConfig{EnableVerification: false}, sink, zap.NewNop())

	rec, seen := serve(t, m, testhelpers.GenerateTestJWTWithBearer("user-42", "Ana Ruiz", "ana@example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	want := models.UserProfile{ID: "user-42", Name: "Ana Ruiz", Email: "ana@example.com", Authenticated: true}
	assert.Equal(t, want, *seen)
	assert.Equal(t, []models.UserProfile{want}, sink.profiles)
}

func TestMiddleware_NameFallsBackToEmail(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{}, nil, zap.NewNop())

	_, seen := serve(t, m, testhelpers.GenerateTestJWTWithBearer("user-7", "", "ops@example.com"))

	require.NotNil(t, seen)
	assert.Equal(t, "ops@example.com", seen.Name)
}

func TestMiddleware_VerifiedToken(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{EnableVerification: true, JWTSecret: testSecret}, nil, zap.NewNop())

	token, err := testhelpers.GenerateSignedTestJWT(testSecret, "user-1", "dev@example.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec, seen := serve(t, m, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.ID)
	assert.True(t, seen.Authenticated)
}

func TestMiddleware_RejectedTokens(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{EnableVerification: true, JWTSecret: testSecret}, nil, zap.NewNop())

	wrongSecret, err := testhelpers.GenerateSignedTestJWT("another-secret-of-sufficient-length", "user-1", "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	expired, err := testhelpers.GenerateSignedTestJWT(testSecret, "user-1", "", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
	}{
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + wrongSecret},
		{"expired", "Bearer " + expired},
		{"unsigned when verifying", testhelpers.GenerateTestJWTWithBearer("user-1", "", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, seen := serve(t, m, tt.authorization)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, seen, "handler should not be reached")

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body["error"])
		})
	}
}

func TestMiddleware_RecorderFailureDoesNotBlock(t *testing.T) {
	sink := &recordingSink{err: errors.New("store down")}
	m := NewMiddleware(config.AuthConfig{}, sink, zap.NewNop())

	rec, seen := serve(t, m, testhelpers.GenerateTestJWTWithBearer("user-9", "Kai", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Len(t, sink.profiles, 1)
}

func TestMiddleware_RequireAuth(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{}, nil, zap.NewNop())

	var called bool
	protected := m.Authenticate(m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/wizard/fail", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodPost, "/api/wizard/fail", nil)
	req.Header.Set("Authorization", testhelpers.GenerateTestJWTWithBearer("user-1", "", ""))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
}

func TestClaims_Profile(t *testing.T) {
	var nilClaims *Claims
	assert.Equal(t, models.AnonymousUser(), nilClaims.Profile())
	assert.Equal(t, models.AnonymousUser(), (&Claims{Name: "no subject"}).Profile())
}
