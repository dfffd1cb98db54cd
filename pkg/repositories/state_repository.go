package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// StateRepository persists the single wizard state record under one key.
// Load returns apperrors.ErrNotFound when nothing has been written yet.
type StateRepository interface {
	Load(ctx context.Context) (*models.PersistedState, error)
	Save(ctx context.Context, state *models.PersistedState) error
	Clear(ctx context.Context) error
}

func encodeState(state *models.PersistedState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wizard state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*models.PersistedState, error) {
	var state models.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wizard state: %w", err)
	}
	if state.CurrentProject != nil && state.CurrentProject.Progress.CompletedPhases == nil {
		state.CurrentProject.Progress.CompletedPhases = models.NewPhaseSet()
	}
	return &state, nil
}

// memoryStateRepository keeps the encoded record in process memory.
type memoryStateRepository struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStateRepository creates a repository that never touches disk.
// The record is stored encoded so callers cannot alias saved state.
func NewMemoryStateRepository() StateRepository {
	return &memoryStateRepository{}
}

func (r *memoryStateRepository) Load(ctx context.Context) (*models.PersistedState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil, apperrors.ErrNotFound
	}
	return decodeState(r.data)
}

func (r *memoryStateRepository) Save(ctx context.Context, state *models.PersistedState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}

func (r *memoryStateRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.data = nil
	r.mu.Unlock()
	return nil
}

var _ StateRepository = (*memoryStateRepository)(nil)
