package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// redisStateRepository stores the wizard state as a single Redis string.
type redisStateRepository struct {
	client redis.Cmdable
	key    string
}

// NewRedisStateRepository creates a repository writing to key on client.
// The key never expires.
func NewRedisStateRepository(client redis.Cmdable, key string) StateRepository {
	return &redisStateRepository{client: client, key: key}
}

func (r *redisStateRepository) Load(ctx context.Context) (*models.PersistedState, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wizard state: %w", err)
	}
	return decodeState(data)
}

func (r *redisStateRepository) Save(ctx context.Context, state *models.PersistedState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set wizard state: %w", err)
	}
	return nil
}

func (r *redisStateRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete wizard state: %w", err)
	}
	return nil
}

var _ StateRepository = (*redisStateRepository)(nil)
