package audit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestNewSecurityAuditor(t *testing.T) {
	logger, _ := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	assert.NotNil(t, auditor)
	assert.NotNil(t, auditor.logger)
}

func TestLogExpressionRejected(t *testing.T) {
	projectID := uuid.New()
	rin := models.UserProfile{ID: "user-123", Name: "Rin", Authenticated: true}

	tests := []struct {
		name         string
		user         models.UserProfile
		details      ExpressionRejection
		wantLevel    zapcore.Level
		wantMessage  string
		wantSeverity string
		wantUser     string
	}{
		{
			name: "injection pattern from authenticated user",
			user: rin,
			details: ExpressionRejection{
				Source:       ExpressionSourceUser,
				SourceColumn: "EMAIL",
				TargetColumn: "email",
				Expression:   "x' OR '1'='1",
				Reason:       "injection pattern",
				Fingerprint:  "s&sos",
			},
			wantLevel:    zapcore.ErrorLevel,
			wantMessage:  "SQL injection pattern in transformation expression",
			wantSeverity: "critical",
			wantUser:     "user-123",
		},
		{
			name: "statement terminator from anonymous user",
			user: models.AnonymousUser(),
			details: ExpressionRejection{
				Source:     ExpressionSourceLLM,
				Expression: "UPPER(x); DROP TABLE t",
				Reason:     "statement terminator",
			},
			wantLevel:    zapcore.WarnLevel,
			wantMessage:  "Transformation expression rejected",
			wantSeverity: "warning",
			wantUser:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, recorded := setupTestLogger(t)
			auditor := NewSecurityAuditor(logger)
			auditor.now = fixedClock

			auditor.LogExpressionRejected(projectID, tt.user, "fm-003", tt.details)

			logs := recorded.All()
			require.Len(t, logs, 1)
			entry := logs[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, tt.wantMessage, entry.Message)
			assert.Equal(t, "security_audit", entry.LoggerName)

			fields := entry.ContextMap()
			assert.Equal(t, projectID.String(), fields["project_id"])
			assert.Equal(t, "fm-003", fields["mapping_id"])
			assert.Equal(t, string(tt.details.Source), fields["source"])
			assert.Equal(t, tt.details.Reason, fields["reason"])
			assert.Equal(t, tt.wantUser, fields["user_id"])
			assert.Equal(t, tt.wantSeverity, fields["severity"])

			eventJSON, ok := fields["event_json"].(string)
			require.True(t, ok, "event_json should be a string")

			var event SecurityEvent
			require.NoError(t, json.Unmarshal([]byte(eventJSON), &event))
			assert.Equal(t, EventExpressionRejected, event.EventType)
			assert.Equal(t, projectID, event.ProjectID)
			assert.Equal(t, tt.wantUser, event.UserID)
			assert.Equal(t, tt.wantSeverity, event.Severity)
			assert.True(t, fixedClock().Equal(event.Timestamp))

			details, ok := event.Details.(map[string]any)
			require.True(t, ok, "Details should be a map")
			assert.Equal(t, tt.details.Expression, details["expression"])
			assert.Equal(t, tt.details.Reason, details["reason"])
		})
	}
}

func TestLogExpressionRejected_TruncatesExpression(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	long := strings.Repeat("a", 500) + ";"
	auditor.LogExpressionRejected(uuid.Nil, models.AnonymousUser(), "", ExpressionRejection{
		Source:     ExpressionSourceUser,
		Expression: long,
		Reason:     "statement terminator",
	})

	require.Equal(t, 1, recorded.Len())
	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(recorded.All()[0].ContextMap()["event_json"].(string)), &event))
	details := event.Details.(map[string]any)
	assert.Equal(t, strings.Repeat("a", maxLoggedExpressionLen)+"...", details["expression"])
	assert.Empty(t, event.MappingID)
}

func TestLogExpressionRejected_NilAuditor(t *testing.T) {
	var auditor *SecurityAuditor
	assert.NotPanics(t, func() {
		auditor.LogExpressionRejected(uuid.New(), models.AnonymousUser(), "fm-1", ExpressionRejection{Reason: "comment"})
	})
}
