package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMappingSuggestionPrompt(t *testing.T) {
	source := TableContext{
		Name:     "sales.customers",
		RowCount: 1200,
		Columns: []ColumnContext{
			{Name: "CUSTOMER_ID", DataType: "NUMBER", IsPrimaryKey: true},
			{Name: "REGION_ID", DataType: "NUMBER", IsForeignKey: true, IsNullable: true},
		},
	}
	target := TableContext{
		Name: "analytics.dim_customer",
		Columns: []ColumnContext{
			{Name: "customer_id", DataType: "INT64", IsPrimaryKey: true},
		},
	}

	prompt := BuildMappingSuggestionPrompt(source, target, nil)

	assert.Contains(t, prompt, "## Source table sales.customers")
	assert.Contains(t, prompt, "Row count: 1200")
	assert.Contains(t, prompt, "- CUSTOMER_ID NUMBER [PK]\n")
	assert.Contains(t, prompt, "- REGION_ID NUMBER [FK] (nullable)\n")
	assert.Contains(t, prompt, "## Target table analytics.dim_customer")
	assert.Contains(t, prompt, "- customer_id INT64 [PK]\n")
	assert.NotContains(t, prompt, "Decided Mappings")
	assert.Equal(t, 1, strings.Count(prompt, "Row count:"), "row count is omitted when unknown")
	assert.True(t, strings.HasSuffix(prompt, "Return ONLY the JSON, no additional text.\n"))
}

func TestBuildMappingSuggestionPrompt_DecidedMappings(t *testing.T) {
	existing := []ExistingMapping{
		{SourceColumn: "EMAIL", TargetColumn: "email", Status: "approved"},
		{SourceColumn: "FAX", TargetColumn: "phone", Status: "rejected"},
	}

	prompt := BuildMappingSuggestionPrompt(TableContext{Name: "a"}, TableContext{Name: "b"}, existing)

	assert.Contains(t, prompt, "## Decided Mappings")
	assert.Contains(t, prompt, "- EMAIL → email (approved)\n")
	assert.Contains(t, prompt, "- FAX → phone (rejected)\n")
}

func TestBuildMappingSuggestionSystemMessage(t *testing.T) {
	msg := BuildMappingSuggestionSystemMessage()
	assert.Contains(t, msg, "data migration expert")
}
