// Package tracker owns the migration progress state: the current project,
// which wizard phase it is in, and the per-phase sub-state that decides
// whether the wizard may move forward.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/audit"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/repositories"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
)

// Providers are the strategies the tracker delegates phase work to.
type Providers struct {
	Suggestions services.SuggestionProvider
	Lineage     services.LineageProvider
	Preview     services.PreviewProvider
	CodeGen     services.CodeGenerator
	Validation  services.ValidationProvider
	Simulator   services.Simulator
}

// Options tune tracker behaviour.
type Options struct {
	// AllowUngatedNavigation lets SetCurrentPhase move to any phase without
	// checking the gate or the phase order.
	AllowUngatedNavigation bool
	// InitialState is used when the store holds no record. Defaults to EmptyInitialState.
	InitialState InitialStatePolicy
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// Auditor receives rejected transformation expressions. Nil disables auditing.
	Auditor *audit.SecurityAuditor
}

// Tracker is the single source of truth for migration progress.
// All methods are safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	store     repositories.StateRepository
	providers Providers
	opts      Options
	logger    *zap.Logger

	project *models.Project
	phase   models.Phase
	user    models.UserProfile

	// generation increments whenever sub-state is reset so that long-running
	// steps can detect that their result no longer applies.
	generation uint64

	upload     models.UploadState
	discovery  models.DiscoveryState
	mapping    models.MappingState
	codegen    models.CodeGenerationState
	validation models.ValidationState
}

// New creates a tracker and loads the persisted record from store.
// When nothing is persisted the initial-state policy decides the starting state.
func New(ctx context.Context, store repositories.StateRepository, providers Providers, opts Options, logger *zap.Logger) (*Tracker, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.InitialState == nil {
		opts.InitialState = EmptyInitialState{}
	}

	t := &Tracker{
		store:     store,
		providers: providers,
		opts:      opts,
		logger:    logger.Named("tracker"),
	}
	t.resetSubStatesLocked()

	state, err := store.Load(ctx)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		state = opts.InitialState.Initial(t.now())
		t.logger.Info("No persisted wizard state, using initial-state policy",
			zap.Bool("has_project", state.CurrentProject != nil))
	case err != nil:
		return nil, fmt.Errorf("failed to load wizard state: %w", err)
	}

	t.applyPersistedLocked(state)
	return t, nil
}

func (t *Tracker) now() time.Time {
	return t.opts.Now().UTC()
}

func (t *Tracker) applyPersistedLocked(state *models.PersistedState) {
	t.project = state.CurrentProject.Clone()
	t.user = state.UserProfile
	if t.user.ID == "" {
		t.user = models.AnonymousUser()
	}

	t.phase = models.PhaseUpload
	switch {
	case models.IsValidPhase(state.CurrentPhase):
		t.phase = state.CurrentPhase
	case t.project != nil && models.IsValidPhase(t.project.Progress.CurrentPhase):
		t.phase = t.project.Progress.CurrentPhase
	}
	if t.project != nil {
		if t.project.Progress.CompletedPhases == nil {
			t.project.Progress.CompletedPhases = models.NewPhaseSet()
		}
		t.project.Progress.CurrentPhase = t.phase
	}
}

func (t *Tracker) resetSubStatesLocked() {
	t.generation++
	t.upload = models.UploadState{}
	t.discovery = models.DiscoveryState{}
	t.mapping = models.MappingState{Metrics: map[string]models.MappingMetrics{}}
	t.codegen = models.CodeGenerationState{GeneratedCodes: map[models.Platform]*models.GeneratedCode{}}
	t.validation = models.ValidationState{}
}

// persistLocked overwrites the stored record with the current state.
func (t *Tracker) persistLocked(ctx context.Context) error {
	state := &models.PersistedState{
		CurrentProject: t.project.Clone(),
		CurrentPhase:   t.phase,
		UserProfile:    t.user,
	}
	if err := t.store.Save(ctx, state); err != nil {
		t.logger.Error("Failed to persist wizard state", zap.Error(err))
		return fmt.Errorf("failed to persist wizard state: %w", err)
	}
	return nil
}

// openProjectLocked returns the current project if it exists and is not closed.
func (t *Tracker) openProjectLocked() (*models.Project, error) {
	if t.project == nil {
		return nil, apperrors.ErrNoProject
	}
	if t.project.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status is %s", apperrors.ErrProjectClosed, t.project.Status)
	}
	return t.project, nil
}

func (t *Tracker) touchLocked() {
	if t.project != nil {
		t.project.UpdatedAt = t.now()
	}
}

// markCompletedLocked folds a finished phase into the completion record.
func (t *Tracker) markCompletedLocked(phase models.Phase) {
	if t.project == nil {
		return
	}
	t.project.Progress.CompletedPhases.Add(phase)
}

// SetCurrentProject replaces the active project and positions the wizard at
// the project's persisted phase, or upload when the project has none.
// Sub-state is reset when the project identity changes. A nil project clears it.
func (t *Tracker) SetCurrentProject(ctx context.Context, project *models.Project) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setCurrentProjectLocked(ctx, project)
}

func (t *Tracker) setCurrentProjectLocked(ctx context.Context, project *models.Project) error {
	next := project.Clone()

	changed := (t.project == nil) != (next == nil) ||
		(t.project != nil && next != nil && t.project.ID != next.ID)
	if changed {
		t.resetSubStatesLocked()
	}

	t.project = next
	t.phase = models.PhaseUpload
	if next != nil {
		if next.Progress.CompletedPhases == nil {
			next.Progress.CompletedPhases = models.NewPhaseSet()
		}
		if models.IsValidPhase(next.Progress.CurrentPhase) {
			t.phase = next.Progress.CurrentPhase
		}
		next.Progress.CurrentPhase = t.phase
		t.logger.Info("Current project set",
			zap.String("project_id", next.ID.String()),
			zap.String("phase", string(t.phase)),
			zap.Bool("reset", changed))
	} else {
		t.logger.Info("Current project cleared")
	}

	return t.persistLocked(ctx)
}

// CreateProject builds a draft project at the upload phase and makes it current.
func (t *Tracker) CreateProject(ctx context.Context, name, sourceDialect, targetDialect string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", apperrors.ErrInvalidInput)
	}
	if !models.IsValidDialect(sourceDialect) || !models.IsValidDialect(targetDialect) {
		return nil, fmt.Errorf("%w: unsupported dialect pair %q -> %q", apperrors.ErrInvalidInput, sourceDialect, targetDialect)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	project := models.NewProject(name, sourceDialect, targetDialect, t.now())
	if err := t.setCurrentProjectLocked(ctx, project); err != nil {
		return nil, err
	}
	return t.project.Clone(), nil
}

// SetCurrentPhase moves the wizard to phase. Moving to the current phase is a no-op.
//
// Forward moves must target the immediately next phase and satisfy its gate,
// unless AllowUngatedNavigation is set. Backward moves are always allowed.
// Every change records the phase being left into CompletedPhases. Moving past
// upload flips a draft project to in-progress.
func (t *Tracker) SetCurrentPhase(ctx context.Context, phase models.Phase) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setCurrentPhaseLocked(ctx, phase)
}

func (t *Tracker) setCurrentPhaseLocked(ctx context.Context, phase models.Phase) error {
	if !models.IsValidPhase(phase) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidPhase, phase)
	}
	if phase == t.phase {
		return nil
	}
	project, err := t.openProjectLocked()
	if err != nil {
		return err
	}

	forward := t.phase.Before(phase)
	if forward && !t.opts.AllowUngatedNavigation {
		next, _ := t.phase.Next()
		if phase != next {
			return fmt.Errorf("%w: %s -> %s", apperrors.ErrPhaseSkipped, t.phase, phase)
		}
		if !t.canProceedLocked() {
			return fmt.Errorf("%w: %s", apperrors.ErrPhaseGated, t.phase)
		}
	}

	previous := t.phase
	project.Progress.CompletedPhases.Add(previous)
	if phase != models.PhaseUpload && project.Status == models.ProjectStatusDraft {
		project.Status = models.ProjectStatusInProgress
	}

	t.phase = phase
	project.Progress.CurrentPhase = phase
	t.touchLocked()

	t.logger.Info("Phase changed",
		zap.String("project_id", project.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(phase)))

	return t.persistLocked(ctx)
}

// Advance moves to the next phase if the current phase's gate is satisfied.
func (t *Tracker) Advance(ctx context.Context) (models.Phase, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, ok := t.phase.Next()
	if !ok {
		return t.phase, fmt.Errorf("%w: %s is the last phase", apperrors.ErrInvalidPhase, t.phase)
	}
	if !t.canProceedLocked() {
		return t.phase, fmt.Errorf("%w: %s", apperrors.ErrPhaseGated, t.phase)
	}
	if err := t.setCurrentPhaseLocked(ctx, next); err != nil {
		return t.phase, err
	}
	return t.phase, nil
}

// CurrentPhase returns the phase the wizard is in.
func (t *Tracker) CurrentPhase() models.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// CurrentProject returns a copy of the active project, or nil.
func (t *Tracker) CurrentProject() *models.Project {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.project.Clone()
}

// SetUserProfile records the profile populated by authentication.
func (t *Tracker) SetUserProfile(ctx context.Context, profile models.UserProfile) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if profile.ID == "" {
		profile = models.AnonymousUser()
	}
	if profile == t.user {
		return nil
	}
	t.user = profile
	return t.persistLocked(ctx)
}

// FailProject marks the current project failed. A closed project cannot fail again.
func (t *Tracker) FailProject(ctx context.Context, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	project, err := t.openProjectLocked()
	if err != nil {
		return err
	}
	project.Status = models.ProjectStatusFailed
	project.FailureReason = reason
	t.touchLocked()

	t.logger.Warn("Project failed",
		zap.String("project_id", project.ID.String()),
		zap.String("reason", reason))

	return t.persistLocked(ctx)
}

// FixtureProviders returns the canned strategies with the given simulator.
func FixtureProviders(sim services.Simulator, logger *zap.Logger) (Providers, error) {
	validation, err := services.NewFixtureValidationProvider()
	if err != nil {
		return Providers{}, err
	}
	return Providers{
		Suggestions: services.NewFixtureSuggestionProvider(),
		Lineage:     services.NewFixtureLineageProvider(logger),
		Preview:     services.NewDDLPreviewProvider(),
		CodeGen:     services.NewTemplateCodeGenerator(),
		Validation:  validation,
		Simulator:   sim,
	}, nil
}
