package services

import (
	"context"
	"testing"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureSuggestionProvider(t *testing.T) {
	p := NewFixtureSuggestionProvider()

	tests := []struct {
		name    string
		req     SuggestionRequest
		wantIDs []string
	}{
		{
			name:    "all pairs",
			req:     SuggestionRequest{},
			wantIDs: []string{"fm-001", "fm-002", "fm-003", "fm-004", "fm-005", "fm-006", "fm-007", "fm-008"},
		},
		{
			name:    "customers pair",
			req:     SuggestionRequest{SourceTable: "sales.customers", TargetTable: "analytics.dim_customer"},
			wantIDs: []string{"fm-001", "fm-002", "fm-003", "fm-004"},
		},
		{
			name:    "unknown pair",
			req:     SuggestionRequest{SourceTable: "hr.employees", TargetTable: "analytics.dim_employee"},
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Suggest(context.Background(), tt.req)
			require.NoError(t, err)

			var ids []string
			for _, fm := range got {
				ids = append(ids, fm.ID)
				assert.Equal(t, models.MappingStatusSuggested, fm.Status)
				assert.True(t, models.IsValidTransformationType(fm.Transformation))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFixtureSuggestionProvider_Deterministic(t *testing.T) {
	p := NewFixtureSuggestionProvider()

	first, err := p.Suggest(context.Background(), SuggestionRequest{})
	require.NoError(t, err)
	first[0].Status = models.MappingStatusApproved

	second, err := p.Suggest(context.Background(), SuggestionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusSuggested, second[0].Status)
}
