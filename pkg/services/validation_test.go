package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func TestFixtureValidationProvider(t *testing.T) {
	p, err := NewFixtureValidationProvider()
	require.NoError(t, err)

	project := models.NewProject("Retail", "oracle", "snowflake", time.Now())
	checks, err := p.Checklist(context.Background(), project)
	require.NoError(t, err)
	require.Len(t, checks, 6)

	assert.Equal(t, "row_count_parity", checks[0].ID)
	assert.Equal(t, "performance_baseline", checks[5].ID)
	for _, c := range checks {
		assert.Equal(t, models.ValidationCheckPassed, c.Status)
		assert.Equal(t, "oracle to snowflake", c.Detail)
		assert.NotEmpty(t, c.Name)
	}
}

func TestParseChecklist(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"valid", "checks:\n  - id: a\n    name: A\n", false},
		{"empty", "checks: []\n", true},
		{"missing id", "checks:\n  - name: A\n", true},
		{"duplicate", "checks:\n  - id: a\n  - id: a\n", true},
		{"malformed", "checks: [", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseChecklist([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
