package repositories

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// fileStateRepository stores the wizard state as <dir>/<key>.json.
type fileStateRepository struct {
	path string
}

// NewFileStateRepository creates a repository backed by a JSON file.
// The directory is created on first save.
func NewFileStateRepository(dir, key string) StateRepository {
	name := unsafeKeyChars.ReplaceAllString(key, "_") + ".json"
	return &fileStateRepository{path: filepath.Join(dir, name)}
}

func (r *fileStateRepository) Load(ctx context.Context) (*models.PersistedState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return decodeState(data)
}

// Save writes to a temp file and renames it over the old record.
func (r *fileStateRepository) Save(ctx context.Context, state *models.PersistedState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (r *fileStateRepository) Clear(ctx context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

var _ StateRepository = (*fileStateRepository)(nil)
