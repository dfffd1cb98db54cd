package tracker

import (
	"time"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// InitialStatePolicy decides the state a tracker starts from when nothing
// has been persisted yet.
type InitialStatePolicy interface {
	Initial(now time.Time) *models.PersistedState
}

// EmptyInitialState starts with no project at the upload phase.
type EmptyInitialState struct{}

func (EmptyInitialState) Initial(time.Time) *models.PersistedState {
	return &models.PersistedState{
		CurrentPhase: models.PhaseUpload,
		UserProfile:  models.AnonymousUser(),
	}
}

// DefaultProjectInitialState starts with a draft sample project.
type DefaultProjectInitialState struct {
	Name          string
	SourceDialect string
	TargetDialect string
}

func (p DefaultProjectInitialState) Initial(now time.Time) *models.PersistedState {
	project := models.NewProject(p.Name, p.SourceDialect, p.TargetDialect, now)
	return &models.PersistedState{
		CurrentProject: project,
		CurrentPhase:   models.PhaseUpload,
		UserProfile:    models.AnonymousUser(),
	}
}

// PolicyFromConfig selects the initial-state policy from tracker configuration.
func PolicyFromConfig(cfg config.TrackerConfig) InitialStatePolicy {
	if !cfg.SeedDefaultProject {
		return EmptyInitialState{}
	}
	return DefaultProjectInitialState{
		Name:          cfg.DefaultProjectName,
		SourceDialect: cfg.DefaultSource,
		TargetDialect: cfg.DefaultTarget,
	}
}
