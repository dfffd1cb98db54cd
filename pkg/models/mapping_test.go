package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMappingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to MappingStatus
		want     bool
	}{
		{MappingStatusSuggested, MappingStatusApproved, true},
		{MappingStatusSuggested, MappingStatusRejected, true},
		{MappingStatusSuggested, MappingStatusManual, false},
		{MappingStatusRejected, MappingStatusSuggested, true},
		{MappingStatusRejected, MappingStatusApproved, false},
		{MappingStatusApproved, MappingStatusSuggested, false},
		{MappingStatusApproved, MappingStatusRejected, false},
		{MappingStatusApproved, MappingStatusApproved, true},
		{MappingStatusManual, MappingStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSchemaFileStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, SchemaFileStatusUploading.CanTransitionTo(SchemaFileStatusProcessing))
	assert.True(t, SchemaFileStatusProcessing.CanTransitionTo(SchemaFileStatusCompleted))
	assert.True(t, SchemaFileStatusProcessing.CanTransitionTo(SchemaFileStatusError))
	assert.True(t, SchemaFileStatusError.CanTransitionTo(SchemaFileStatusProcessing))
	assert.False(t, SchemaFileStatusCompleted.CanTransitionTo(SchemaFileStatusProcessing))
	assert.False(t, SchemaFileStatusUploading.CanTransitionTo(SchemaFileStatusCompleted))
}

func TestUploadState_Ready(t *testing.T) {
	done := SchemaFile{ID: "a", Status: SchemaFileStatusCompleted}
	busy := SchemaFile{ID: "b", Status: SchemaFileStatusProcessing}

	assert.False(t, (&UploadState{}).Ready())
	assert.False(t, (&UploadState{SourceFiles: []SchemaFile{done}}).Ready())
	assert.True(t, (&UploadState{SourceFiles: []SchemaFile{done}, TargetFiles: []SchemaFile{done}}).Ready())
	assert.False(t, (&UploadState{SourceFiles: []SchemaFile{done, busy}, TargetFiles: []SchemaFile{done}}).Ready())
}

func TestValidationState_AllPassed(t *testing.T) {
	assert.False(t, (&ValidationState{}).AllPassed())
	assert.True(t, (&ValidationState{Checks: []ValidationCheck{{Status: ValidationCheckPassed}}}).AllPassed())
	assert.False(t, (&ValidationState{Checks: []ValidationCheck{
		{Status: ValidationCheckPassed}, {Status: ValidationCheckPending},
	}}).AllPassed())
}
