package models

// PersistedState is the single record written under the storage key.
// It is overwritten wholesale on every phase transition and completion action.
type PersistedState struct {
	CurrentProject *Project    `json:"currentProject"`
	CurrentPhase   Phase       `json:"currentPhase"`
	UserProfile    UserProfile `json:"userProfile"`
}

// WizardSnapshot is a read model of the whole tracker for consumers.
type WizardSnapshot struct {
	Project        *Project            `json:"project"`
	CurrentPhase   Phase               `json:"current_phase"`
	CanProceed     bool                `json:"can_proceed"`
	UserProfile    UserProfile         `json:"user_profile"`
	Upload         UploadState         `json:"upload"`
	Discovery      DiscoveryState      `json:"discovery"`
	Mapping        MappingState        `json:"mapping"`
	CodeGeneration CodeGenerationState `json:"code_generation"`
	Validation     ValidationState     `json:"validation"`
}
