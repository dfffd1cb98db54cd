package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
)

// SelectPlatform chooses the code generation target shown by default.
func (t *Tracker) SelectPlatform(platform models.Platform) error {
	if !models.IsValidPlatform(platform) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownPlatform, platform)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return err
	}
	t.codegen.SelectedPlatform = platform
	return nil
}

// GenerateCode renders migration code for platform, or the selected platform
// when empty, and replaces that platform's slot. The new artifact's
// LastGenerated is always strictly later than the one it replaces.
func (t *Tracker) GenerateCode(ctx context.Context, platform models.Platform) (*models.GeneratedCode, error) {
	t.mu.Lock()
	if platform == "" {
		platform = t.codegen.SelectedPlatform
	}
	if !models.IsValidPlatform(platform) {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownPlatform, platform)
	}
	project, err := t.openProjectLocked()
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if t.codegen.Generating {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: code generation", apperrors.ErrOperationRunning)
	}
	t.codegen.Generating = true
	t.codegen.Progress = 0
	t.codegen.Error = nil
	t.codegen.SelectedPlatform = platform

	req := services.CodeGenerationRequest{
		Project:       project.Clone(),
		Platform:      platform,
		Suggestions:   cloneFieldMappings(t.mapping.Suggestions),
		TableMappings: cloneMapping(t.mapping).TableMappings,
	}
	gen := t.generation
	t.mu.Unlock()

	err = t.providers.Simulator.Run(ctx, func(percent int) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen == t.generation {
			t.codegen.Progress = percent
		}
	})
	var code *models.GeneratedCode
	if err == nil {
		code, err = t.providers.CodeGen.Generate(ctx, req)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil, fmt.Errorf("%w: project changed during code generation", apperrors.ErrConflict)
	}
	t.codegen.Generating = false

	if err != nil {
		msg := err.Error()
		t.codegen.Error = &msg
		t.logger.Warn("Code generation failed",
			zap.String("platform", string(platform)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to generate %s code: %w", platform, err)
	}

	code.Platform = platform
	code.LastGenerated = t.nextGenerationTime(t.codegen.GeneratedCodes[platform])
	t.codegen.GeneratedCodes[platform] = code
	t.codegen.Progress = 100

	t.logger.Info("Code generated",
		zap.String("platform", string(platform)),
		zap.String("filename", code.Filename),
		zap.Int("size", code.Size))

	out := *code
	return &out, nil
}

func (t *Tracker) nextGenerationTime(prev *models.GeneratedCode) time.Time {
	now := t.now()
	if prev != nil && !now.After(prev.LastGenerated) {
		return prev.LastGenerated.Add(time.Nanosecond)
	}
	return now
}

// GeneratedCode returns a copy of the artifact in platform's slot.
func (t *Tracker) GeneratedCode(platform models.Platform) (*models.GeneratedCode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	code, ok := t.codegen.GeneratedCodes[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no code generated for %s", apperrors.ErrNotFound, platform)
	}
	out := *code
	return &out, nil
}

// CompleteCodeGeneration stamps code generation completion and records the
// codegen phase as completed.
func (t *Tracker) CompleteCodeGeneration(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	project, err := t.openProjectLocked()
	if err != nil {
		return err
	}
	now := t.now()
	t.codegen.CompletedAt = &now
	project.Progress.CodeGenerated = len(t.codegen.GeneratedCodes) > 0
	t.markCompletedLocked(models.PhaseCodegen)
	t.touchLocked()

	t.logger.Info("Code generation completed",
		zap.String("project_id", project.ID.String()),
		zap.Int("artifacts", len(t.codegen.GeneratedCodes)))

	return t.persistLocked(ctx)
}
