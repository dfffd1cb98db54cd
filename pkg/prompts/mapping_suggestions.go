// Package prompts builds the LLM prompts used by the mapping phase.
package prompts

import (
	"fmt"
	"strings"
)

// TableContext provides the schema of one side of a table pair.
type TableContext struct {
	Name     string
	RowCount int64
	Columns  []ColumnContext
}

// ColumnContext provides column details for LLM analysis.
type ColumnContext struct {
	Name         string
	DataType     string
	IsNullable   bool
	IsPrimaryKey bool
	IsForeignKey bool
}

// ExistingMapping is a mapping the user already decided on. The model is told
// not to propose a different target for its source column.
type ExistingMapping struct {
	SourceColumn string
	TargetColumn string
	Status       string
}

// BuildMappingSuggestionPrompt creates the prompt asking the model to map the
// columns of source onto the columns of target.
func BuildMappingSuggestionPrompt(source, target TableContext, existing []ExistingMapping) string {
	var prompt strings.Builder

	prompt.WriteString("# Column Mapping\n\n")
	prompt.WriteString("Map each column of the source table to the target column it should be migrated into.\n\n")

	writeTable(&prompt, "Source", source)
	writeTable(&prompt, "Target", target)

	if len(existing) > 0 {
		prompt.WriteString("## Decided Mappings\n\n")
		prompt.WriteString("These were reviewed by the user. Do not propose a different target for these source columns:\n")
		for _, m := range existing {
			prompt.WriteString(fmt.Sprintf("- %s → %s (%s)\n", m.SourceColumn, m.TargetColumn, m.Status))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("## Guidelines\n\n")
	prompt.WriteString("- Use `direct` when names and types line up, `cast` when only the type changes\n")
	prompt.WriteString("- Use `concat`, `split`, `lookup` or `expression` only when a single column cannot carry the value\n")
	prompt.WriteString("- Expressions are a single SQL fragment: no semicolons, no comments\n")
	prompt.WriteString("- Skip source columns that have no plausible target\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with `mappings`, an array of:\n")
	prompt.WriteString("- `source_column`, `target_column`\n")
	prompt.WriteString("- `transformation`: one of \"direct\", \"cast\", \"concat\", \"split\", \"lookup\", \"expression\"\n")
	prompt.WriteString("- `expression`: empty for direct mappings\n")
	prompt.WriteString("- `confidence`: integer from 0 to 100\n")
	prompt.WriteString("- `notes`: brief explanation\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildMappingSuggestionSystemMessage returns the system message for the LLM.
func BuildMappingSuggestionSystemMessage() string {
	return `You are a data migration expert. You map columns of a source database table to columns of a target warehouse table.`
}

func writeTable(prompt *strings.Builder, label string, table TableContext) {
	prompt.WriteString(fmt.Sprintf("## %s table %s\n\n", label, table.Name))
	if table.RowCount > 0 {
		prompt.WriteString(fmt.Sprintf("Row count: %d\n", table.RowCount))
	}
	prompt.WriteString("Columns:\n")
	for _, col := range table.Columns {
		flags := ""
		if col.IsPrimaryKey {
			flags += " [PK]"
		}
		if col.IsForeignKey {
			flags += " [FK]"
		}
		if col.IsNullable {
			flags += " (nullable)"
		}
		prompt.WriteString(fmt.Sprintf("- %s %s%s\n", col.Name, col.DataType, flags))
	}
	prompt.WriteString("\n")
}
