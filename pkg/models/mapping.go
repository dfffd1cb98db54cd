package models

import "time"

// TransformationType is the kind of transformation applied between two columns.
type TransformationType string

const (
	TransformationDirect     TransformationType = "direct"
	TransformationCast       TransformationType = "cast"
	TransformationConcat     TransformationType = "concat"
	TransformationSplit      TransformationType = "split"
	TransformationLookup     TransformationType = "lookup"
	TransformationExpression TransformationType = "expression"
)

// ValidTransformationTypes contains all valid transformation values.
var ValidTransformationTypes = []TransformationType{
	TransformationDirect,
	TransformationCast,
	TransformationConcat,
	TransformationSplit,
	TransformationLookup,
	TransformationExpression,
}

// IsValidTransformationType checks if the given transformation is valid.
func IsValidTransformationType(t TransformationType) bool {
	for _, v := range ValidTransformationTypes {
		if v == t {
			return true
		}
	}
	return false
}

// MappingStatus is the human-adjudicated status of a field mapping.
type MappingStatus string

const (
	MappingStatusSuggested MappingStatus = "suggested"
	MappingStatusApproved  MappingStatus = "approved"
	MappingStatusRejected  MappingStatus = "rejected"
	MappingStatusManual    MappingStatus = "manual"
)

// CanTransitionTo returns true if moving from this status to target is valid.
// Re-applying the current status is always allowed so updates stay idempotent.
//
//	suggested → approved | rejected
//	rejected  → suggested
func (s MappingStatus) CanTransitionTo(target MappingStatus) bool {
	if s == target {
		return true
	}
	switch s {
	case MappingStatusSuggested:
		return target == MappingStatusApproved || target == MappingStatusRejected
	case MappingStatusRejected:
		return target == MappingStatusSuggested
	default:
		return false
	}
}

// IsDecided returns true once a human approved or rejected the mapping.
func (s MappingStatus) IsDecided() bool {
	return s == MappingStatusApproved || s == MappingStatusRejected
}

// FieldMapping is a proposed correspondence between a source and target column.
type FieldMapping struct {
	ID             string             `json:"id"`
	SourceTable    string             `json:"source_table"`
	SourceColumn   string             `json:"source_column"`
	TargetTable    string             `json:"target_table"`
	TargetColumn   string             `json:"target_column"`
	Transformation TransformationType `json:"transformation"`
	Expression     string             `json:"expression,omitempty"`
	Confidence     int                `json:"confidence"`
	Status         MappingStatus      `json:"status"`
	ApprovedAt     *time.Time         `json:"approved_at,omitempty"`
	Notes          string             `json:"notes,omitempty"`
}

// FieldMappingUpdate carries the fields to merge into a FieldMapping.
// Nil pointers leave the existing value untouched.
type FieldMappingUpdate struct {
	Status         *MappingStatus      `json:"status,omitempty"`
	ApprovedAt     *time.Time          `json:"approved_at,omitempty"`
	TargetColumn   *string             `json:"target_column,omitempty"`
	Transformation *TransformationType `json:"transformation,omitempty"`
	Expression     *string             `json:"expression,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
}

// TableMapping groups the field mappings between one source and one target table.
type TableMapping struct {
	ID            string         `json:"id"`
	SourceTable   string         `json:"source_table"`
	TargetTable   string         `json:"target_table"`
	FieldMappings []FieldMapping `json:"field_mappings"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// MappingMetrics aggregates mapping completion for one table pair.
type MappingMetrics struct {
	SourceTable       string `json:"source_table"`
	TargetTable       string `json:"target_table"`
	Total             int    `json:"total"`
	Approved          int    `json:"approved"`
	Rejected          int    `json:"rejected"`
	Pending           int    `json:"pending"`
	Manual            int    `json:"manual"`
	CompletionPercent int    `json:"completion_percent"`
}

// TablePairKey identifies a source/target table pair.
func TablePairKey(sourceTable, targetTable string) string {
	return sourceTable + "->" + targetTable
}

// MappingState is the sub-state of the mapping phase.
type MappingState struct {
	SelectedSourceTable string                    `json:"selected_source_table,omitempty"`
	SelectedTargetTable string                    `json:"selected_target_table,omitempty"`
	Suggestions         []FieldMapping            `json:"suggestions"`
	TableMappings       []TableMapping            `json:"table_mappings"`
	Metrics             map[string]MappingMetrics `json:"metrics"`
	GeneratedAt         *time.Time                `json:"generated_at,omitempty"`
	CompletedAt         *time.Time                `json:"completed_at,omitempty"`
	Error               *string                   `json:"error"`
}
