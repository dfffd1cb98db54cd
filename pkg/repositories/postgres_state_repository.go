package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// PgxQuerier is the subset of pgxpool.Pool used by the postgres repository.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresStateRepository stores the wizard state in the wizard_state table.
type postgresStateRepository struct {
	db  PgxQuerier
	key string
}

// NewPostgresStateRepository creates a repository over the wizard_state table.
// The table is created by the embedded migrations in pkg/database.
func NewPostgresStateRepository(db PgxQuerier, key string) StateRepository {
	return &postgresStateRepository{db: db, key: key}
}

func (r *postgresStateRepository) Load(ctx context.Context) (*models.PersistedState, error) {
	query := `SELECT payload FROM wizard_state WHERE key = $1`

	var payload []byte
	if err := r.db.QueryRow(ctx, query, r.key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wizard state: %w", err)
	}
	return decodeState(payload)
}

// Save upserts the record so the row is overwritten wholesale.
func (r *postgresStateRepository) Save(ctx context.Context, state *models.PersistedState) error {
	payload, err := encodeState(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO wizard_state (key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query, r.key, payload); err != nil {
		return fmt.Errorf("failed to save wizard state: %w", err)
	}
	return nil
}

func (r *postgresStateRepository) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM wizard_state WHERE key = $1`, r.key); err != nil {
		return fmt.Errorf("failed to delete wizard state: %w", err)
	}
	return nil
}

var _ StateRepository = (*postgresStateRepository)(nil)
