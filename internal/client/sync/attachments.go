package sync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mihailsb/docsync/internal/hashx"
	"github.com/mihailsb/docsync/internal/models"
)

// NewLocalAttachment builds an attachment record for a local file: it
// assigns the attachment id, computes the checksum and size, and marks the
// record pending upload. The remote key is assigned later, on first upload.
func NewLocalAttachment(docSyncID, path, label string) (*models.FileAttachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	checksum, size, err := hashx.SumReader(f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}

	fileName := filepath.Base(path)
	if label == "" {
		label = fileName
	}

	return &models.FileAttachment{
		ID:             uuid.NewString(),
		DocumentSyncID: docSyncID,
		FileName:       fileName,
		Label:          label,
		LocalPath:      path,
		FileSize:       size,
		Checksum:       checksum,
		SyncState:      models.FilePending,
	}, nil
}
