package models

import "time"

// FileSide says whether an uploaded schema describes the source or the target.
type FileSide string

const (
	FileSideSource FileSide = "source"
	FileSideTarget FileSide = "target"
)

// IsValidFileSide checks if the given side is valid.
func IsValidFileSide(s FileSide) bool {
	return s == FileSideSource || s == FileSideTarget
}

// SchemaFileStatus is the processing status of an uploaded schema file.
// State machine:
//
//	uploading → processing → completed
//	                ↓
//	              error
type SchemaFileStatus string

const (
	SchemaFileStatusUploading  SchemaFileStatus = "uploading"
	SchemaFileStatusProcessing SchemaFileStatus = "processing"
	SchemaFileStatusCompleted  SchemaFileStatus = "completed"
	SchemaFileStatusError      SchemaFileStatus = "error"
)

// CanTransitionTo returns true if moving from this status to target is valid.
// A file in error can be re-processed.
func (s SchemaFileStatus) CanTransitionTo(target SchemaFileStatus) bool {
	switch s {
	case SchemaFileStatusUploading:
		return target == SchemaFileStatusProcessing || target == SchemaFileStatusError
	case SchemaFileStatusProcessing:
		return target == SchemaFileStatusCompleted || target == SchemaFileStatusError
	case SchemaFileStatusError:
		return target == SchemaFileStatusProcessing
	default:
		return false
	}
}

// SchemaPreview is derived from a successfully processed schema file.
type SchemaPreview struct {
	TableCount  int      `json:"table_count"`
	ColumnCount int      `json:"column_count"`
	Tables      []string `json:"tables,omitempty"`
}

// SchemaFile is an uploaded schema artifact. IDs are assigned by the client.
type SchemaFile struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Side       FileSide         `json:"side"`
	Size       int64            `json:"size"`
	Status     SchemaFileStatus `json:"status"`
	Preview    *SchemaPreview   `json:"preview,omitempty"`
	Error      string           `json:"error,omitempty"`
	UploadedAt time.Time        `json:"uploaded_at"`
}

// UploadState holds the files handed over by the ingestion surface.
type UploadState struct {
	SourceFiles []SchemaFile `json:"source_files"`
	TargetFiles []SchemaFile `json:"target_files"`
}

// Ready reports whether both sides have at least one file and every file
// finished processing.
func (u *UploadState) Ready() bool {
	if len(u.SourceFiles) == 0 || len(u.TargetFiles) == 0 {
		return false
	}
	for _, f := range u.SourceFiles {
		if f.Status != SchemaFileStatusCompleted {
			return false
		}
	}
	for _, f := range u.TargetFiles {
		if f.Status != SchemaFileStatusCompleted {
			return false
		}
	}
	return true
}
