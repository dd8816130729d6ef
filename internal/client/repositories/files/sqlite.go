package files

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

const attachmentColumns = `id, document_sync_id, file_name, label, local_path, remote_key, file_size, checksum, sync_state`

func (r *SQLiteRepository) Upsert(ctx context.Context, f *models.FileAttachment) error {
	query := `INSERT INTO file_attachments (` + attachmentColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				file_name = excluded.file_name,
				label = excluded.label,
				local_path = excluded.local_path,
				remote_key = excluded.remote_key,
				file_size = excluded.file_size,
				checksum = excluded.checksum,
				sync_state = excluded.sync_state
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.DocumentSyncID, f.FileName, f.Label, f.LocalPath, f.RemoteKey,
		f.FileSize, f.Checksum, string(f.SyncState))
	if err != nil {
		return fmt.Errorf("failed to upsert attachment: %w", err)
	}
	return nil
}

func scanAttachment(scan func(dest ...any) error) (*models.FileAttachment, error) {
	f := &models.FileAttachment{}
	var state string
	err := scan(&f.ID, &f.DocumentSyncID, &f.FileName, &f.Label, &f.LocalPath,
		&f.RemoteKey, &f.FileSize, &f.Checksum, &state)
	if err != nil {
		return nil, err
	}
	f.SyncState = models.FileSyncState(state)
	return f, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.FileAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM file_attachments WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	f, err := scanAttachment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select attachment: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) ListByDocument(ctx context.Context, docSyncID string) ([]*models.FileAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM file_attachments WHERE document_sync_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, docSyncID)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	var result []*models.FileAttachment
	for rows.Next() {
		f, err := scanAttachment(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM file_attachments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByDocument(ctx context.Context, docSyncID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM file_attachments WHERE document_sync_id = ?`, docSyncID); err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	return nil
}
