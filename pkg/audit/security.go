// Package audit provides security audit logging for SIEM consumption.
// Events are emitted as structured JSON on a dedicated logger namespace.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventExpressionRejected is logged when a transformation expression fails screening.
	EventExpressionRejected SecurityEventType = "expression_rejected"
)

// ExpressionSource says who wrote a rejected expression.
type ExpressionSource string

const (
	ExpressionSourceUser ExpressionSource = "user"
	ExpressionSourceLLM  ExpressionSource = "llm"
)

// maxLoggedExpressionLen bounds how much of an expression reaches the logs.
const maxLoggedExpressionLen = 200

// SecurityEvent represents an auditable security event with the context
// needed for SIEM ingestion.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	ProjectID uuid.UUID         `json:"project_id"`
	MappingID string            `json:"mapping_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// ExpressionRejection contains specifics of a refused transformation expression.
type ExpressionRejection struct {
	Source       ExpressionSource `json:"source"`
	SourceColumn string           `json:"source_column,omitempty"`
	TargetColumn string           `json:"target_column,omitempty"`
	Expression   string           `json:"expression"`
	Reason       string           `json:"reason"`
	Fingerprint  string           `json:"fingerprint,omitempty"` // libinjection fingerprint
}

// SecurityAuditor logs security events for SIEM consumption.
// A nil *SecurityAuditor discards every event.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor under the "security_audit"
// logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogExpressionRejected records a refused expression.
// Injection fingerprints are logged at ERROR with "critical" severity; other
// refusals (terminators, comments) are WARN with "warning" severity.
//
// Example usage:
//
//	auditor.LogExpressionRejected(project.ID, user, "fm-003",
//	    audit.ExpressionRejection{
//	        Source:      audit.ExpressionSourceUser,
//	        Expression:  "x' OR '1'='1",
//	        Reason:      "injection pattern",
//	        Fingerprint: "s&sos",
//	    },
//	)
func (a *SecurityAuditor) LogExpressionRejected(projectID uuid.UUID, user models.UserProfile, mappingID string, details ExpressionRejection) {
	if a == nil {
		return
	}

	severity := "warning"
	if details.Fingerprint != "" {
		severity = "critical"
	}
	details.Expression = logging.TruncateString(details.Expression, maxLoggedExpressionLen)

	var userID string
	if user.Authenticated {
		userID = user.ID
	}

	event := SecurityEvent{
		Timestamp: a.now().UTC(),
		EventType: EventExpressionRejected,
		ProjectID: projectID,
		MappingID: mappingID,
		UserID:    userID,
		Details:   details,
		Severity:  severity,
	}

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("project_id", projectID.String()),
		zap.String("mapping_id", mappingID),
		zap.String("source", string(details.Source)),
		zap.String("reason", details.Reason),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("user_id", userID),
		zap.String("severity", severity),
	}
	if severity == "critical" {
		a.logger.Error("SQL injection pattern in transformation expression", fields...)
		return
	}
	a.logger.Warn("Transformation expression rejected", fields...)
}
