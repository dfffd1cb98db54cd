package models

import "time"

// ValidationCheckStatus is the outcome of one checklist item.
type ValidationCheckStatus string

const (
	ValidationCheckPending ValidationCheckStatus = "pending"
	ValidationCheckPassed  ValidationCheckStatus = "passed"
	ValidationCheckFailed  ValidationCheckStatus = "failed"
)

// ValidationCheck is one item of the post-migration validation checklist.
type ValidationCheck struct {
	ID          string                `json:"id" yaml:"id"`
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Status      ValidationCheckStatus `json:"status" yaml:"status"`
	Detail      string                `json:"detail,omitempty" yaml:"detail,omitempty"`
	CheckedAt   *time.Time            `json:"checked_at,omitempty" yaml:"-"`
}

// ValidationState is the sub-state of the validation phase.
type ValidationState struct {
	Checks      []ValidationCheck `json:"checks"`
	Running     bool              `json:"running"`
	Progress    int               `json:"progress"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       *string           `json:"error"`
}

// AllPassed reports whether there is at least one check and every check passed.
func (v *ValidationState) AllPassed() bool {
	if len(v.Checks) == 0 {
		return false
	}
	for _, c := range v.Checks {
		if c.Status != ValidationCheckPassed {
			return false
		}
	}
	return true
}
