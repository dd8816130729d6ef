package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const documentColumns = `sync_id, user_id, title, category, notes, doc_date, version, content_hash, sync_state, deleted, deleted_at, updated_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, doc *models.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(sync_id) DO UPDATE SET
				title = excluded.title,
				category = excluded.category,
				notes = excluded.notes,
				doc_date = excluded.doc_date,
				version = excluded.version,
				content_hash = excluded.content_hash,
				sync_state = excluded.sync_state,
				deleted = excluded.deleted,
				deleted_at = excluded.deleted_at,
				updated_at = excluded.updated_at
	`
	var deletedAt any
	if doc.DeletedAt != nil {
		deletedAt = *doc.DeletedAt
	}
	_, err := r.db.ExecContext(ctx, query,
		doc.SyncID, doc.UserID, doc.Title, doc.Category, doc.Notes, doc.Date,
		doc.Version, doc.ContentHash, string(doc.SyncState), doc.Deleted, deletedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

func scanDocument(scan func(dest ...any) error) (*models.Document, error) {
	d := &models.Document{}
	var state string
	var deletedAt sql.NullTime
	err := scan(&d.SyncID, &d.UserID, &d.Title, &d.Category, &d.Notes, &d.Date,
		&d.Version, &d.ContentHash, &state, &d.Deleted, &deletedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.SyncState = models.SyncState(state)
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	return d, nil
}

func (r *SQLiteRepository) GetBySyncID(ctx context.Context, syncID string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE sync_id = ?`
	row := r.db.QueryRowContext(ctx, query, syncID)
	d, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select document: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context, userID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = ? AND deleted = 0 ORDER BY updated_at`
	return r.list(ctx, query, userID)
}

func (r *SQLiteRepository) ListByState(ctx context.Context, userID string, state models.SyncState) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = ? AND sync_state = ? ORDER BY updated_at`
	return r.list(ctx, query, userID, string(state))
}

func (r *SQLiteRepository) SetState(ctx context.Context, syncID string, state models.SyncState) error {
	query := `UPDATE documents SET sync_state = ? WHERE sync_id = ?`
	res, err := r.db.ExecContext(ctx, query, string(state), syncID)
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, syncID string) error {
	query := `DELETE FROM documents WHERE sync_id = ?`
	if _, err := r.db.ExecContext(ctx, query, syncID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
