// Package models contains domain types for ekaya-migrate.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle status of a migration project.
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusInProgress ProjectStatus = "in-progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// ValidProjectStatuses contains all valid project status values.
var ValidProjectStatuses = []ProjectStatus{
	ProjectStatusDraft,
	ProjectStatusInProgress,
	ProjectStatusCompleted,
	ProjectStatusFailed,
}

// IsValidProjectStatus checks if the given status is valid.
func IsValidProjectStatus(s ProjectStatus) bool {
	for _, v := range ValidProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the project is completed or failed.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusFailed
}

// Schema dialects offered for the source/target pair.
const (
	DialectOracle     = "oracle"
	DialectSQLServer  = "sqlserver"
	DialectPostgreSQL = "postgresql"
	DialectMySQL      = "mysql"
	DialectTeradata   = "teradata"
	DialectBigQuery   = "bigquery"
	DialectSnowflake  = "snowflake"
	DialectDatabricks = "databricks"
	DialectRedshift   = "redshift"
)

// ValidDialects contains every schema dialect a project may name.
var ValidDialects = []string{
	DialectOracle,
	DialectSQLServer,
	DialectPostgreSQL,
	DialectMySQL,
	DialectTeradata,
	DialectBigQuery,
	DialectSnowflake,
	DialectDatabricks,
	DialectRedshift,
}

// IsValidDialect checks if the given dialect is supported.
func IsValidDialect(d string) bool {
	for _, v := range ValidDialects {
		if v == d {
			return true
		}
	}
	return false
}

// Project represents a migration project moving through the wizard.
type Project struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	SourceDialect string         `json:"source_dialect"`
	TargetDialect string         `json:"target_dialect"`
	Status        ProjectStatus  `json:"status"`
	Progress      ProgressRecord `json:"progress"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ProgressRecord tracks which phase a project is in and what it has finished.
type ProgressRecord struct {
	CurrentPhase       Phase    `json:"current_phase"`
	CompletedPhases    PhaseSet `json:"completed_phases"`
	SchemasUploaded    bool     `json:"schemas_uploaded"`
	MappingsComplete   bool     `json:"mappings_complete"`
	CodeGenerated      bool     `json:"code_generated"`
	ValidationComplete bool     `json:"validation_complete"`
}

// NewProject returns a draft project positioned at the upload phase.
func NewProject(name, sourceDialect, targetDialect string, now time.Time) *Project {
	return &Project{
		ID:            uuid.New(),
		Name:          name,
		SourceDialect: sourceDialect,
		TargetDialect: targetDialect,
		Status:        ProjectStatusDraft,
		Progress: ProgressRecord{
			CurrentPhase:    PhaseUpload,
			CompletedPhases: NewPhaseSet(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Progress.CompletedPhases = p.Progress.CompletedPhases.Clone()
	return &c
}
