// Package sql contains lightweight SQL text helpers used by schema ingestion
// and code generation. None of it is a real SQL parser.
package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// ParsedTable is a table definition found in DDL text.
type ParsedTable struct {
	Name    string
	Columns []string
}

// createTablePattern matches the head of a CREATE TABLE statement up to the
// opening parenthesis of the column list.
var createTablePattern = regexp.MustCompile(
	"(?is)create\\s+(?:or\\s+replace\\s+)?(?:(?:global\\s+|local\\s+)?temp(?:orary)?\\s+)?table\\s+(?:if\\s+not\\s+exists\\s+)?([\\w.\"`\\[\\]]+)\\s*\\(")

// constraintPrefixes start table-level constraint entries, which are not columns.
var constraintPrefixes = []string{
	"constraint", "primary key", "foreign key", "unique", "check", "index", "key ",
}

// ParseCreateTables extracts table names and column names from DDL text.
// It handles quoted identifiers, nested parentheses in types such as
// NUMBER(10,2), and table-level constraints. Anything else is ignored.
func ParseCreateTables(ddl string) ([]ParsedTable, error) {
	var tables []ParsedTable

	for _, loc := range createTablePattern.FindAllStringSubmatchIndex(ddl, -1) {
		name := unquoteIdentifier(ddl[loc[2]:loc[3]])
		body, ok := balancedBody(ddl[loc[1]:])
		if !ok {
			return nil, fmt.Errorf("unterminated column list for table %s", name)
		}

		table := ParsedTable{Name: name}
		for _, entry := range splitTopLevel(body) {
			entry = strings.TrimSpace(entry)
			if entry == "" || isConstraint(entry) {
				continue
			}
			fields := strings.Fields(entry)
			table.Columns = append(table.Columns, unquoteIdentifier(fields[0]))
		}
		tables = append(tables, table)
	}

	return tables, nil
}

// balancedBody returns the text up to the parenthesis closing an already
// opened one.
func balancedBody(s string) (string, bool) {
	depth := 1
	for i, ch := range s {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits a column list by commas, respecting parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	var current strings.Builder
	parenDepth := 0

	for _, ch := range s {
		switch ch {
		case '(':
			parenDepth++
			current.WriteRune(ch)
		case ')':
			parenDepth--
			current.WriteRune(ch)
		case ',':
			if parenDepth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isConstraint(entry string) bool {
	lower := strings.ToLower(entry)
	for _, prefix := range constraintPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// unquoteIdentifier strips "", ``, and [] quoting from each dotted part.
func unquoteIdentifier(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(p, "\"`[]")
	}
	return strings.Join(parts, ".")
}
