package models

import "time"

// RelationshipKind describes how a lineage relationship was established.
type RelationshipKind string

const (
	RelationshipKindForeignKey RelationshipKind = "foreign_key"
	RelationshipKindInferred   RelationshipKind = "inferred"
	RelationshipKindLineage    RelationshipKind = "lineage"
)

// LineageColumn is a column discovered in a lineage table.
type LineageColumn struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	IsNullable   bool   `json:"is_nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	IsForeignKey bool   `json:"is_foreign_key"`
}

// LineageTable is a table discovered in the uploaded schemas.
type LineageTable struct {
	Schema   string          `json:"schema"`
	Name     string          `json:"name"`
	RowCount int64           `json:"row_count"`
	Columns  []LineageColumn `json:"columns"`
}

// FullName returns schema-qualified name, e.g. "sales.orders".
func (t LineageTable) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// LineageRelationship is an inferred edge between two columns.
type LineageRelationship struct {
	ID           string           `json:"id"`
	SourceTable  string           `json:"source_table"`
	SourceColumn string           `json:"source_column"`
	TargetTable  string           `json:"target_table"`
	TargetColumn string           `json:"target_column"`
	Kind         RelationshipKind `json:"kind"`
	Confidence   int              `json:"confidence"`
}

// LineageSummary aggregates statistics over a lineage graph.
type LineageSummary struct {
	TableCount          int      `json:"table_count"`
	ColumnCount         int      `json:"column_count"`
	RelationshipCount   int      `json:"relationship_count"`
	ConnectedComponents int      `json:"connected_components"`
	IslandTables        []string `json:"island_tables,omitempty"`
}

// LineageGraph is the discovered set of tables, columns and relationships.
type LineageGraph struct {
	Tables        []LineageTable        `json:"tables"`
	Relationships []LineageRelationship `json:"relationships"`
	Summary       LineageSummary        `json:"summary"`
}

// DiscoveryState is the sub-state of the discovery phase.
type DiscoveryState struct {
	Running     bool          `json:"running"`
	Progress    int           `json:"progress"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Graph       *LineageGraph `json:"graph,omitempty"`
	Error       *string       `json:"error"`
}
