package tombstones

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/dbx"
	"github.com/mihailsb/docsync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, t *models.Tombstone) error {
	query := `INSERT INTO tombstones (sync_id, user_id, deleted_at, deleted_by, reason)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(sync_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, t.SyncID, t.UserID, t.DeletedAt, t.DeletedBy, t.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert tombstone: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, syncID string) (*models.Tombstone, error) {
	query := `SELECT sync_id, user_id, deleted_at, deleted_by, reason FROM tombstones WHERE sync_id = ?`
	row := r.db.QueryRowContext(ctx, query, syncID)

	t := &models.Tombstone{}
	err := row.Scan(&t.SyncID, &t.UserID, &t.DeletedAt, &t.DeletedBy, &t.Reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select tombstone: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, syncID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tombstones WHERE sync_id = ?`, syncID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tombstone: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context, userID string) ([]*models.Tombstone, error) {
	query := `SELECT sync_id, user_id, deleted_at, deleted_by, reason FROM tombstones
			WHERE user_id = ? ORDER BY deleted_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	var result []*models.Tombstone
	for rows.Next() {
		t := &models.Tombstone{}
		if err := rows.Scan(&t.SyncID, &t.UserID, &t.DeletedAt, &t.DeletedBy, &t.Reason); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tombstones WHERE deleted_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstones: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) PurgeKeepLatest(ctx context.Context, userID string, n int) (int64, error) {
	query := `DELETE FROM tombstones WHERE user_id = ? AND sync_id NOT IN (
			SELECT sync_id FROM tombstones WHERE user_id = ? ORDER BY deleted_at DESC LIMIT ?)`
	res, err := r.db.ExecContext(ctx, query, userID, userID, n)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstones: %w", err)
	}
	return res.RowsAffected()
}
