package models

import "time"

// Platform is a fixed code-generation target.
type Platform string

const (
	PlatformBigQuery   Platform = "bigquery"
	PlatformSnowflake  Platform = "snowflake"
	PlatformDatabricks Platform = "databricks"
	PlatformRedshift   Platform = "redshift"
)

// ValidPlatforms contains every supported code-generation target.
var ValidPlatforms = []Platform{
	PlatformBigQuery,
	PlatformSnowflake,
	PlatformDatabricks,
	PlatformRedshift,
}

// IsValidPlatform checks if the given platform is supported.
func IsValidPlatform(p Platform) bool {
	for _, v := range ValidPlatforms {
		if v == p {
			return true
		}
	}
	return false
}

// GeneratedCode is the single artifact held in a platform slot.
type GeneratedCode struct {
	Platform      Platform  `json:"platform"`
	Content       string    `json:"content"`
	Filename      string    `json:"filename"`
	Size          int       `json:"size"`
	Language      string    `json:"language"`
	LastGenerated time.Time `json:"last_generated"`
}

// CodeGenerationState is the sub-state of the codegen phase.
type CodeGenerationState struct {
	SelectedPlatform Platform                    `json:"selected_platform"`
	GeneratedCodes   map[Platform]*GeneratedCode `json:"generated_codes"`
	Generating       bool                        `json:"generating"`
	Progress         int                         `json:"progress"`
	CompletedAt      *time.Time                  `json:"completed_at,omitempty"`
	Error            *string                     `json:"error"`
}
