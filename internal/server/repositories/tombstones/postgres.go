package tombstones

import (
	"context"
	"fmt"

	"github.com/mihailsb/docsync/internal/dbx"
	"github.com/mihailsb/docsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Tombstone) error {
	query := `
		INSERT INTO tombstones (sync_id, user_id, deleted_at, deleted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sync_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, t.SyncID, t.UserID, t.DeletedAt, t.DeletedBy); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID, syncID string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM tombstones WHERE sync_id = $1 AND user_id = $2)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, syncID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Tombstone, error) {
	query := `
		SELECT sync_id, user_id, deleted_at, deleted_by
		FROM tombstones
		WHERE user_id = $1
		ORDER BY deleted_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []*models.Tombstone
	for rows.Next() {
		t := &models.Tombstone{}
		if err := rows.Scan(&t.SyncID, &t.UserID, &t.DeletedAt, &t.DeletedBy); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return list, nil
}
