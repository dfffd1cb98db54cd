package tracker

import "github.com/ekaya-inc/ekaya-migrate/pkg/models"

// CanProceedToNextPhase reports whether the current phase's gate is satisfied.
// It never mutates state and fails closed for unknown phases or no project.
func (t *Tracker) CanProceedToNextPhase() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canProceedLocked()
}

func (t *Tracker) canProceedLocked() bool {
	if t.project == nil {
		return false
	}

	switch t.phase {
	case models.PhaseUpload:
		return t.upload.Ready()
	case models.PhaseDiscovery:
		return t.discovery.CompletedAt != nil && t.discovery.Graph != nil
	case models.PhaseMapping:
		return len(t.mapping.TableMappings) > 0 ||
			allSuggestionsDecided(t.mapping.Suggestions) ||
			t.mapping.CompletedAt != nil
	case models.PhaseCodegen:
		return t.codegen.CompletedAt != nil && len(t.codegen.GeneratedCodes) > 0
	case models.PhaseValidation:
		return t.project.Progress.ValidationComplete
	default:
		return false
	}
}

// allSuggestionsDecided is true for a non-empty list where every suggestion
// was approved or rejected.
func allSuggestionsDecided(suggestions []models.FieldMapping) bool {
	if len(suggestions) == 0 {
		return false
	}
	for _, s := range suggestions {
		if !s.Status.IsDecided() {
			return false
		}
	}
	return true
}
