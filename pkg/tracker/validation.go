package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// RunValidation runs the validation checklist. ValidationComplete becomes
// true only when every check passed.
func (t *Tracker) RunValidation(ctx context.Context) ([]models.ValidationCheck, error) {
	t.mu.Lock()
	project, err := t.openProjectLocked()
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if t.validation.Running {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: validation", apperrors.ErrOperationRunning)
	}
	t.validation.Running = true
	t.validation.Progress = 0
	t.validation.Error = nil
	snapshot := project.Clone()
	gen := t.generation
	t.mu.Unlock()

	err = t.providers.Simulator.Run(ctx, func(percent int) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen == t.generation {
			t.validation.Progress = percent
		}
	})
	var checks []models.ValidationCheck
	if err == nil {
		checks, err = t.providers.Validation.Checklist(ctx, snapshot)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil, fmt.Errorf("%w: project changed during validation", apperrors.ErrConflict)
	}
	t.validation.Running = false

	if err != nil {
		msg := err.Error()
		t.validation.Error = &msg
		t.logger.Warn("Validation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to run validation: %w", err)
	}

	now := t.now()
	for i := range checks {
		checkedAt := now
		checks[i].CheckedAt = &checkedAt
	}
	t.validation.Checks = checks
	t.validation.Progress = 100

	return cloneValidation(t.validation).Checks, t.syncValidationLocked(ctx)
}

// SetValidationCheck records the outcome of one check by ID.
func (t *Tracker) SetValidationCheck(ctx context.Context, id string, passed bool, detail string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return err
	}

	for i := range t.validation.Checks {
		c := &t.validation.Checks[i]
		if c.ID != id {
			continue
		}
		c.Status = models.ValidationCheckFailed
		if passed {
			c.Status = models.ValidationCheckPassed
		}
		c.Detail = detail
		now := t.now()
		c.CheckedAt = &now
		return t.syncValidationLocked(ctx)
	}
	return fmt.Errorf("%w: validation check %s", apperrors.ErrNotFound, id)
}

// syncValidationLocked mirrors the checklist outcome into the project and persists.
func (t *Tracker) syncValidationLocked(ctx context.Context) error {
	complete := t.validation.AllPassed()
	t.project.Progress.ValidationComplete = complete
	if complete && t.validation.CompletedAt == nil {
		now := t.now()
		t.validation.CompletedAt = &now
	} else if !complete {
		t.validation.CompletedAt = nil
	}
	t.touchLocked()

	t.logger.Info("Validation updated",
		zap.String("project_id", t.project.ID.String()),
		zap.Int("checks", len(t.validation.Checks)),
		zap.Bool("complete", complete))

	return t.persistLocked(ctx)
}

// CompleteProject is the terminal action: it requires a satisfied validation
// checklist, records the validation phase and marks the project completed.
func (t *Tracker) CompleteProject(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	project, err := t.openProjectLocked()
	if err != nil {
		return err
	}
	if !project.Progress.ValidationComplete {
		return fmt.Errorf("%w: validation checklist is not satisfied", apperrors.ErrPhaseGated)
	}

	now := t.now()
	if t.validation.CompletedAt == nil {
		t.validation.CompletedAt = &now
	}
	project.Status = models.ProjectStatusCompleted
	t.markCompletedLocked(models.PhaseValidation)
	t.touchLocked()

	t.logger.Info("Project completed", zap.String("project_id", project.ID.String()))

	return t.persistLocked(ctx)
}
