package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/dbx"
	"github.com/mihailsb/docsync/internal/server/models"
	"github.com/mihailsb/docsync/internal/server/repositories/repomanager"
)

// ChangeNotifier fans a document change out to the owner's connected
// devices. The websocket hub implements it; a nil-safe no-op is used in
// tests.
type ChangeNotifier interface {
	NotifyChange(userID string, frame api.ChangeFrame)
}

type noopNotifier struct{}

func (noopNotifier) NotifyChange(string, api.ChangeFrame) {}

type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    ChangeNotifier
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, n ChangeNotifier) *DocumentService {
	if n == nil {
		n = noopNotifier{}
	}
	return &DocumentService{db: db, repomanager: m, notifier: n}
}

// Create stores a new document under the client-assigned sync id. The id
// must be a valid UUID; re-creating a tombstoned id is rejected so deleted
// documents cannot be resurrected by a late-syncing device.
func (s *DocumentService) Create(ctx context.Context, userID string, payload api.DocumentPayload) (*models.Document, error) {

	if err := validateSyncID(payload.SyncID); err != nil {
		return nil, err
	}

	tombstoned, err := s.repomanager.Tombstones(s.db).Exists(ctx, userID, payload.SyncID)
	if err != nil {
		return nil, err
	}
	if tombstoned {
		return nil, fmt.Errorf("%w: document was deleted", common.ErrValidation)
	}

	doc := payloadToModel(userID, payload)

	doc, err = s.repomanager.Documents(s.db).Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyChange(userID, changeFrame(api.ChangeKindCreated, doc))
	return doc, nil
}

// Update applies the mutation when expectedVersion matches the stored
// version; a mismatch surfaces as common.ErrVersionConflict.
func (s *DocumentService) Update(ctx context.Context, userID string, payload api.DocumentPayload, expectedVersion int64) (*models.Document, error) {

	if err := validateSyncID(payload.SyncID); err != nil {
		return nil, err
	}

	doc := payloadToModel(userID, payload)

	doc, err := s.repomanager.Documents(s.db).Update(ctx, doc, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyChange(userID, changeFrame(api.ChangeKindUpdated, doc))
	return doc, nil
}

// Delete removes the document row and records a tombstone in the same
// transaction, so a delete can never be acknowledged without its tombstone.
func (s *DocumentService) Delete(ctx context.Context, userID, syncID, deletedBy string) error {

	if err := validateSyncID(syncID); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Documents(tx).Delete(ctx, userID, syncID); err != nil {
			return err
		}
		return s.repomanager.Tombstones(tx).Create(ctx, &models.Tombstone{
			SyncID:    syncID,
			UserID:    userID,
			DeletedAt: time.Now().UTC(),
			DeletedBy: deletedBy,
		})
	})
	if err != nil {
		// Deleting an already-deleted document is idempotent as long as the
		// tombstone exists.
		if errors.Is(err, common.ErrNotFound) {
			tombstoned, terr := s.repomanager.Tombstones(s.db).Exists(ctx, userID, syncID)
			if terr == nil && tombstoned {
				return nil
			}
		}
		return err
	}

	s.notifier.NotifyChange(userID, api.ChangeFrame{
		Kind:       api.ChangeKindDeleted,
		DocumentID: syncID,
		Timestamp:  time.Now().UTC(),
	})
	return nil
}

func (s *DocumentService) Get(ctx context.Context, userID, syncID string) (*models.Document, error) {
	if err := validateSyncID(syncID); err != nil {
		return nil, err
	}
	return s.repomanager.Documents(s.db).Get(ctx, userID, syncID)
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]*models.Document, error) {
	return s.repomanager.Documents(s.db).ListByUser(ctx, userID)
}

func validateSyncID(syncID string) error {
	if _, err := uuid.Parse(syncID); err != nil {
		return fmt.Errorf("%w: %q", common.ErrInvalidSyncID, syncID)
	}
	return nil
}

func payloadToModel(userID string, p api.DocumentPayload) *models.Document {
	doc := &models.Document{
		SyncID:      p.SyncID,
		UserID:      userID,
		Title:       p.Title,
		Category:    p.Category,
		Notes:       p.Notes,
		Date:        p.Date,
		ContentHash: p.ContentHash,
		Deleted:     p.Deleted,
		DeletedAt:   p.DeletedAt,
	}
	for _, a := range p.Attachments {
		doc.Attachments = append(doc.Attachments, models.Attachment{
			ID:        a.ID,
			FileName:  a.FileName,
			Label:     a.Label,
			RemoteKey: a.RemoteKey,
			FileSize:  a.FileSize,
			Checksum:  a.Checksum,
		})
	}
	return doc
}

// ToResponse converts a stored document to its wire form.
func ToResponse(doc *models.Document) api.DocumentResponse {
	payload := api.DocumentPayload{
		SyncID:      doc.SyncID,
		Title:       doc.Title,
		Category:    doc.Category,
		Notes:       doc.Notes,
		Date:        doc.Date,
		ContentHash: doc.ContentHash,
		Deleted:     doc.Deleted,
		DeletedAt:   doc.DeletedAt,
	}
	for _, a := range doc.Attachments {
		payload.Attachments = append(payload.Attachments, api.AttachmentPayload{
			ID:        a.ID,
			FileName:  a.FileName,
			Label:     a.Label,
			RemoteKey: a.RemoteKey,
			FileSize:  a.FileSize,
			Checksum:  a.Checksum,
		})
	}
	return api.DocumentResponse{Document: payload, Version: doc.Version, UpdatedAt: doc.UpdatedAt}
}

func changeFrame(kind api.ChangeKind, doc *models.Document) api.ChangeFrame {
	resp := ToResponse(doc)
	return api.ChangeFrame{
		Kind:       kind,
		DocumentID: doc.SyncID,
		Document:   &resp,
		Timestamp:  time.Now().UTC(),
	}
}
