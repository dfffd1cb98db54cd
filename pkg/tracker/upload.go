package tracker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// AddSchemaFile registers an uploaded schema descriptor in the uploading state.
// An empty ID is replaced with a generated one.
func (t *Tracker) AddSchemaFile(ctx context.Context, file models.SchemaFile) (models.SchemaFile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return models.SchemaFile{}, err
	}
	if !models.IsValidFileSide(file.Side) {
		return models.SchemaFile{}, fmt.Errorf("%w: file side %q", apperrors.ErrInvalidInput, file.Side)
	}
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if _, _, ok := t.findFileLocked(file.ID); ok {
		return models.SchemaFile{}, fmt.Errorf("%w: schema file %s already exists", apperrors.ErrConflict, file.ID)
	}

	file.Status = models.SchemaFileStatusUploading
	file.Preview = nil
	file.Error = ""
	file.UploadedAt = t.now()

	if file.Side == models.FileSideSource {
		t.upload.SourceFiles = append(t.upload.SourceFiles, file)
	} else {
		t.upload.TargetFiles = append(t.upload.TargetFiles, file)
	}
	t.syncUploadFlagLocked()

	t.logger.Debug("Schema file added",
		zap.String("file_id", file.ID),
		zap.String("side", string(file.Side)),
		zap.Int64("size", file.Size))
	return file, nil
}

// ProcessSchemaFile derives the preview of an uploaded file. A failure to
// parse leaves the file in the error state; it is not returned as an error.
func (t *Tracker) ProcessSchemaFile(ctx context.Context, id string, content []byte) (models.SchemaFile, error) {
	t.mu.Lock()
	if _, err := t.openProjectLocked(); err != nil {
		t.mu.Unlock()
		return models.SchemaFile{}, err
	}
	file, err := t.transitionFileLocked(id, models.SchemaFileStatusProcessing)
	if err != nil {
		t.mu.Unlock()
		return models.SchemaFile{}, err
	}
	file.Error = ""
	snapshot := *file
	gen := t.generation
	t.mu.Unlock()

	err = t.providers.Simulator.Run(ctx, nil)
	var preview *models.SchemaPreview
	if err == nil {
		preview, err = t.providers.Preview.Preview(ctx, snapshot, content)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return models.SchemaFile{}, fmt.Errorf("%w: project changed while processing %s", apperrors.ErrConflict, id)
	}

	target := models.SchemaFileStatusCompleted
	if err != nil {
		target = models.SchemaFileStatusError
	}
	file, terr := t.transitionFileLocked(id, target)
	if terr != nil {
		return models.SchemaFile{}, terr
	}

	if err != nil {
		file.Error = err.Error()
		t.logger.Warn("Schema file processing failed",
			zap.String("file_id", id),
			zap.Error(err))
	} else {
		file.Preview = preview
	}
	t.syncUploadFlagLocked()
	return cloneFiles([]models.SchemaFile{*file})[0], nil
}

// RemoveSchemaFile drops an uploaded file from either side.
func (t *Tracker) RemoveSchemaFile(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return err
	}
	side, idx, ok := t.findFileLocked(id)
	if !ok {
		return fmt.Errorf("%w: schema file %s", apperrors.ErrNotFound, id)
	}
	if side == models.FileSideSource {
		t.upload.SourceFiles = append(t.upload.SourceFiles[:idx], t.upload.SourceFiles[idx+1:]...)
	} else {
		t.upload.TargetFiles = append(t.upload.TargetFiles[:idx], t.upload.TargetFiles[idx+1:]...)
	}
	t.syncUploadFlagLocked()
	return nil
}

func (t *Tracker) findFileLocked(id string) (models.FileSide, int, bool) {
	for i, f := range t.upload.SourceFiles {
		if f.ID == id {
			return models.FileSideSource, i, true
		}
	}
	for i, f := range t.upload.TargetFiles {
		if f.ID == id {
			return models.FileSideTarget, i, true
		}
	}
	return "", -1, false
}

func (t *Tracker) fileLocked(id string) (*models.SchemaFile, bool) {
	side, idx, ok := t.findFileLocked(id)
	if !ok {
		return nil, false
	}
	if side == models.FileSideSource {
		return &t.upload.SourceFiles[idx], true
	}
	return &t.upload.TargetFiles[idx], true
}

func (t *Tracker) transitionFileLocked(id string, status models.SchemaFileStatus) (*models.SchemaFile, error) {
	file, ok := t.fileLocked(id)
	if !ok {
		return nil, fmt.Errorf("%w: schema file %s", apperrors.ErrNotFound, id)
	}
	if !file.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: schema file %s is %s, cannot become %s",
			apperrors.ErrInvalidStatusTransition, id, file.Status, status)
	}
	file.Status = status
	return file, nil
}

// syncUploadFlagLocked mirrors the upload gate into the project progress record.
func (t *Tracker) syncUploadFlagLocked() {
	if t.project != nil {
		t.project.Progress.SchemasUploaded = t.upload.Ready()
	}
}

// SetSchemaFiles replaces both upload lists with descriptors whose status the
// ingestion surface already decided.
func (t *Tracker) SetSchemaFiles(ctx context.Context, source, target []models.SchemaFile) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.openProjectLocked(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(source)+len(target))
	for _, group := range [][]models.SchemaFile{source, target} {
		for _, f := range group {
			if f.ID == "" || seen[f.ID] {
				return fmt.Errorf("%w: schema file ids must be unique and non-empty", apperrors.ErrInvalidInput)
			}
			seen[f.ID] = true
		}
	}

	t.upload.SourceFiles = withSide(source, models.FileSideSource)
	t.upload.TargetFiles = withSide(target, models.FileSideTarget)
	t.syncUploadFlagLocked()
	return nil
}

func withSide(files []models.SchemaFile, side models.FileSide) []models.SchemaFile {
	out := cloneFiles(files)
	for i := range out {
		out[i].Side = side
	}
	return out
}
