package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/server/models"
)

const testSyncID = "5a2f0d6e-8a3b-4a1d-9f50-0f6f58a3a001"

func newDocService(t *testing.T) (*DocumentService, *fakeRepoManager, *capturingNotifier) {
	t.Helper()
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	rm := newFakeRepoManager()
	n := &capturingNotifier{}
	return NewDocumentService(db, rm, n), rm, n
}

func samplePayload() api.DocumentPayload {
	return api.DocumentPayload{
		SyncID:      testSyncID,
		Title:       "passport",
		Category:    "identity",
		Notes:       "expires 2030",
		Date:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		ContentHash: "abc",
	}
}

func TestDocumentService_CreateNotifies(t *testing.T) {
	svc, _, n := newDocService(t)

	doc, err := svc.Create(context.Background(), "u-1", samplePayload())
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Version)

	require.Len(t, n.frames, 1)
	assert.Equal(t, api.ChangeKindCreated, n.frames[0].Kind)
	assert.Equal(t, testSyncID, n.frames[0].DocumentID)
	require.NotNil(t, n.frames[0].Document)
	assert.Equal(t, "passport", n.frames[0].Document.Document.Title)
}

func TestDocumentService_CreateRejectsInvalidSyncID(t *testing.T) {
	svc, _, _ := newDocService(t)

	p := samplePayload()
	p.SyncID = "not-a-uuid"
	_, err := svc.Create(context.Background(), "u-1", p)
	assert.ErrorIs(t, err, common.ErrInvalidSyncID)
}

func TestDocumentService_CreateRejectsTombstonedID(t *testing.T) {
	svc, rm, _ := newDocService(t)

	require.NoError(t, rm.tombs.Create(context.Background(), &models.Tombstone{
		SyncID: testSyncID, UserID: "u-1", DeletedAt: time.Now(), DeletedBy: "device-b",
	}))
	_, err := svc.Create(context.Background(), "u-1", samplePayload())
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDocumentService_UpdateBumpsVersion(t *testing.T) {
	svc, _, n := newDocService(t)

	_, err := svc.Create(context.Background(), "u-1", samplePayload())
	require.NoError(t, err)

	p := samplePayload()
	p.Title = "passport (renewed)"
	doc, err := svc.Update(context.Background(), "u-1", p, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, doc.Version)

	require.Len(t, n.frames, 2)
	assert.Equal(t, api.ChangeKindUpdated, n.frames[1].Kind)
}

func TestDocumentService_UpdateVersionConflict(t *testing.T) {
	svc, _, n := newDocService(t)

	_, err := svc.Create(context.Background(), "u-1", samplePayload())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "u-1", samplePayload(), 7)
	assert.ErrorIs(t, err, common.ErrVersionConflict)
	assert.Len(t, n.frames, 1, "no notification on a rejected update")
}

func TestDocumentService_DeleteWritesTombstone(t *testing.T) {
	svc, rm, n := newDocService(t)

	_, err := svc.Create(context.Background(), "u-1", samplePayload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "u-1", testSyncID, "device-a"))

	_, err = rm.docs.Get(context.Background(), "u-1", testSyncID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	exists, err := rm.tombs.Exists(context.Background(), "u-1", testSyncID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "device-a", rm.tombs.rows[testSyncID].DeletedBy)

	last := n.frames[len(n.frames)-1]
	assert.Equal(t, api.ChangeKindDeleted, last.Kind)
	assert.Nil(t, last.Document)
}

func TestDocumentService_DeleteIdempotent(t *testing.T) {
	svc, _, _ := newDocService(t)

	_, err := svc.Create(context.Background(), "u-1", samplePayload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "u-1", testSyncID, "device-a"))
	require.NoError(t, svc.Delete(context.Background(), "u-1", testSyncID, "device-a"))
}

func TestDocumentService_DeleteUnknownFails(t *testing.T) {
	svc, _, _ := newDocService(t)

	err := svc.Delete(context.Background(), "u-1", testSyncID, "device-a")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocumentService_GetAndList(t *testing.T) {
	svc, _, _ := newDocService(t)

	_, err := svc.Create(context.Background(), "u-1", samplePayload())
	require.NoError(t, err)

	doc, err := svc.Get(context.Background(), "u-1", testSyncID)
	require.NoError(t, err)
	assert.Equal(t, "passport", doc.Title)

	list, err := svc.List(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other, err := svc.List(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
