package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/dbx"
	"github.com/mihailsb/docsync/internal/server/models"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {

	query :=
		`INSERT INTO documents (sync_id, user_id, title, category, notes, doc_date, content_hash, attachments, version, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, now())
		 RETURNING version, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		doc.SyncID, doc.UserID, doc.Title, doc.Category, doc.Notes, doc.Date,
		doc.ContentHash, doc.Attachments).Scan(&doc.Version, &doc.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// Update bumps the version only when the stored version matches
// expectedVersion. A zero-row result is disambiguated with a follow-up
// lookup: a missing row is common.ErrNotFound, a version mismatch is
// common.ErrVersionConflict.
func (r *PostgresRepository) Update(ctx context.Context, doc *models.Document, expectedVersion int64) (*models.Document, error) {

	query :=
		`UPDATE documents
		 SET title = $4, category = $5, notes = $6, doc_date = $7, content_hash = $8,
		     attachments = $9, deleted = $10, deleted_at = $11,
		     version = version + 1, updated_at = now()
		 WHERE sync_id = $1 AND user_id = $2 AND version = $3
		 RETURNING version, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		doc.SyncID, doc.UserID, expectedVersion,
		doc.Title, doc.Category, doc.Notes, doc.Date, doc.ContentHash,
		doc.Attachments, doc.Deleted, doc.DeletedAt).Scan(&doc.Version, &doc.UpdatedAt)

	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var exists bool
	check := `SELECT EXISTS(SELECT 1 FROM documents WHERE sync_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, check, doc.SyncID, doc.UserID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return nil, common.ErrNotFound
	}
	return nil, common.ErrVersionConflict
}

func (r *PostgresRepository) Get(ctx context.Context, userID, syncID string) (*models.Document, error) {
	query :=
		`SELECT sync_id, user_id, title, category, notes, doc_date, content_hash, attachments, version, deleted, deleted_at, updated_at
		 FROM documents
		 WHERE sync_id = $1 AND user_id = $2
		 `

	doc := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, syncID, userID).Scan(
		&doc.SyncID, &doc.UserID, &doc.Title, &doc.Category, &doc.Notes, &doc.Date,
		&doc.ContentHash, &doc.Attachments, &doc.Version, &doc.Deleted, &doc.DeletedAt, &doc.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	query :=
		`SELECT sync_id, user_id, title, category, notes, doc_date, content_hash, attachments, version, deleted, deleted_at, updated_at
		 FROM documents
		 WHERE user_id = $1
		 ORDER BY updated_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(
			&doc.SyncID, &doc.UserID, &doc.Title, &doc.Category, &doc.Notes, &doc.Date,
			&doc.ContentHash, &doc.Attachments, &doc.Version, &doc.Deleted, &doc.DeletedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return docs, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, syncID string) error {
	query :=
		`DELETE FROM documents
		 WHERE sync_id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, syncID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}
