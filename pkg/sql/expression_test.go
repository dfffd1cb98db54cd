package sql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExpression(t *testing.T) {
	tests := []struct {
		name              string
		expr              string
		wantReason        string // empty means accepted
		expectFingerprint bool
	}{
		// Ordinary transformations - should pass
		{name: "empty", expr: ""},
		{name: "whitespace only", expr: "   "},
		{name: "bare column", expr: "customer_id"},
		{name: "nested function call", expr: "UPPER(TRIM(email))"},
		{name: "single function call", expr: "LOWER(email)"},
		{name: "cast", expr: "CAST(CREATED_AT AS TIMESTAMP)"},
		{name: "arithmetic", expr: "ROUND(TOTAL_AMOUNT * 100, 2)"},
		{name: "coalesce with number", expr: "COALESCE(region_id, 0)"},

		// Structural breakout - rejected before libinjection runs
		{name: "statement terminator", expr: "UPPER(x); DROP TABLE t", wantReason: "statement terminator"},
		{name: "line comment", expr: "email -- trailing", wantReason: "comment"},
		{name: "block comment", expr: "notes /* x */", wantReason: "comment"},
		{name: "unterminated literal", expr: "x' OR 1=1", wantReason: "unterminated string literal"},

		// Injection patterns
		{name: "tautology", expr: "1' OR '1'='1", wantReason: "injection pattern", expectFingerprint: true},
		{name: "union select", expr: "1 UNION SELECT * FROM passwords", wantReason: "injection pattern", expectFingerprint: true},
		{name: "payload inside literal", expr: "COALESCE(name, '''; DROP TABLE users--')", wantReason: "injection pattern", expectFingerprint: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExpression(tt.expr)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			var rejected *ExpressionCheckError
			require.True(t, errors.As(err, &rejected), "expected *ExpressionCheckError, got %v", err)
			assert.Equal(t, tt.wantReason, rejected.Reason)
			assert.Equal(t, tt.expr, rejected.Expression)
			if tt.expectFingerprint {
				assert.NotEmpty(t, rejected.Fingerprint)
				assert.Contains(t, err.Error(), "fingerprint")
			} else {
				assert.Empty(t, rejected.Fingerprint)
			}
		})
	}
}

func TestSplitStringLiterals(t *testing.T) {
	code, literals, ok := splitStringLiterals("CONCAT(first_name, ' ', 'O''Brien')")
	require.True(t, ok)
	assert.Equal(t, "CONCAT(first_name,  ,  )", code)
	assert.Equal(t, []string{" ", "O'Brien"}, literals)

	_, _, ok = splitStringLiterals("x' OR 1=1")
	assert.False(t, ok)
}
