package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/models"
	"github.com/mihailsb/docsync/internal/syncid"
)

func conflictPair() (*models.Document, *models.Document) {
	id := syncid.Generate()
	local := &models.Document{
		SyncID:    id,
		UserID:    "u1",
		Title:     "local title",
		Category:  "medical",
		Version:   1,
		SyncState: models.StatePendingUpload,
		UpdatedAt: time.Now().UTC(),
	}
	remote := local.Clone()
	remote.Title = "remote title"
	remote.Version = 2
	remote.SyncState = models.StateSynced
	return local, remote
}

func TestDetector_DocumentModified(t *testing.T) {
	local, remote := conflictPair()

	c := NewDetector().Detect(local, remote)
	require.NotNil(t, c)
	require.Equal(t, models.ConflictDocumentModified, c.Type)
	require.Equal(t, local.SyncID, c.DocumentID)
	require.Equal(t, "local title", c.LocalVersion.Title)
	require.Equal(t, "remote title", c.RemoteVersion.Title)
}

func TestDetector_DeleteModify(t *testing.T) {
	local, remote := conflictPair()
	now := time.Now().UTC()
	remote.Deleted = true
	remote.DeletedAt = &now

	c := NewDetector().Detect(local, remote)
	require.NotNil(t, c)
	require.Equal(t, models.ConflictDeleteModify, c.Type)
}

func TestDetector_SameContentIsNotAConflict(t *testing.T) {
	local, remote := conflictPair()
	remote.Title = local.Title

	// Version drift with identical content is a no-op re-sync.
	require.Nil(t, NewDetector().Detect(local, remote))
}

func TestDetector_SnapshotsDoNotAliasInputs(t *testing.T) {
	local, remote := conflictPair()
	c := NewDetector().Detect(local, remote)

	local.Title = "mutated"
	require.Equal(t, "local title", c.LocalVersion.Title)
}

func TestResolver_KeepLocal(t *testing.T) {
	ctx := context.Background()
	local, remote := conflictPair()
	docs := newFakeDocsRepo()
	require.NoError(t, docs.Upsert(ctx, local))
	bus := NewBus(8)
	events, cancel := bus.Subscribe()
	defer cancel()

	var queued *models.Document
	var queuedType models.OperationType
	r := NewResolver(docs, bus, func(_ context.Context, d *models.Document, typ models.OperationType) error {
		queued = d
		queuedType = typ
		return nil
	})

	c := NewDetector().Detect(local, remote)
	resolved, err := r.Resolve(ctx, c, models.ResolveKeepLocal, nil)
	require.NoError(t, err)

	require.Equal(t, local.SyncID, resolved.SyncID)
	require.Equal(t, "local title", resolved.Title)
	// The next update is made against the version the remote store holds.
	require.Equal(t, remote.Version, resolved.Version)
	require.Equal(t, models.StatePendingUpload, resolved.SyncState)

	require.NotNil(t, queued)
	require.Equal(t, models.OpUpdate, queuedType)
	require.Equal(t, local.SyncID, queued.SyncID)

	ev := <-events
	require.Equal(t, EventConflictResolved, ev.Type)
	require.Equal(t, local.SyncID, ev.DocumentID)
}

func TestResolver_KeepLocalOverDeletedRemoteRecreates(t *testing.T) {
	ctx := context.Background()
	local, remote := conflictPair()
	now := time.Now().UTC()
	remote.Deleted = true
	remote.DeletedAt = &now
	docs := newFakeDocsRepo()
	require.NoError(t, docs.Upsert(ctx, local))
	bus := NewBus(8)
	_, cancel := bus.Subscribe()
	defer cancel()

	var queued *models.Document
	var queuedType models.OperationType
	r := NewResolver(docs, bus, func(_ context.Context, d *models.Document, typ models.OperationType) error {
		queued = d
		queuedType = typ
		return nil
	})

	c := NewDetector().Detect(local, remote)
	require.Equal(t, models.ConflictDeleteModify, c.Type)

	resolved, err := r.Resolve(ctx, c, models.ResolveKeepLocal, nil)
	require.NoError(t, err)

	// The remote copy is gone, so keeping the local side re-creates the
	// document under the same identifier.
	require.Equal(t, local.SyncID, resolved.SyncID)
	require.False(t, resolved.Deleted)
	require.Zero(t, resolved.Version)
	require.NotNil(t, queued)
	require.Equal(t, models.OpUpload, queuedType)
}

func TestResolver_KeepRemote(t *testing.T) {
	ctx := context.Background()
	local, remote := conflictPair()
	docs := newFakeDocsRepo()
	require.NoError(t, docs.Upsert(ctx, local))
	bus := NewBus(8)

	r := NewResolver(docs, bus, func(_ context.Context, _ *models.Document, _ models.OperationType) error {
		t.Fatal("keepRemote must not re-queue")
		return nil
	})

	c := NewDetector().Detect(local, remote)
	resolved, err := r.Resolve(ctx, c, models.ResolveKeepRemote, nil)
	require.NoError(t, err)

	require.Equal(t, local.SyncID, resolved.SyncID)
	require.Equal(t, "remote title", resolved.Title)
	require.Equal(t, models.StateSynced, resolved.SyncState)

	stored, err := docs.GetBySyncID(ctx, local.SyncID)
	require.NoError(t, err)
	require.Equal(t, "remote title", stored.Title)
}

func TestResolver_Merge(t *testing.T) {
	ctx := context.Background()
	local, remote := conflictPair()
	docs := newFakeDocsRepo()
	require.NoError(t, docs.Upsert(ctx, local))
	bus := NewBus(8)

	requeued := false
	r := NewResolver(docs, bus, func(_ context.Context, _ *models.Document, _ models.OperationType) error {
		requeued = true
		return nil
	})

	merge := func(l, rem *models.Document) (*models.Document, error) {
		out := l.Clone()
		out.Title = l.Title + " + " + rem.Title
		// A badly behaved merge may even tamper with the identifier.
		out.SyncID = syncid.Generate()
		return out, nil
	}

	c := NewDetector().Detect(local, remote)
	resolved, err := r.Resolve(ctx, c, models.ResolveMerge, merge)
	require.NoError(t, err)

	require.Equal(t, "local title + remote title", resolved.Title)
	require.Equal(t, remote.Version, resolved.Version)
	require.True(t, requeued)
	// The identifier survives any strategy, including a misbehaving merge.
	require.Equal(t, local.SyncID, resolved.SyncID)
}

func TestResolver_MergeRequiresFunction(t *testing.T) {
	ctx := context.Background()
	local, remote := conflictPair()
	docs := newFakeDocsRepo()
	bus := NewBus(8)
	r := NewResolver(docs, bus, func(_ context.Context, _ *models.Document, _ models.OperationType) error { return nil })

	c := NewDetector().Detect(local, remote)
	_, err := r.Resolve(ctx, c, models.ResolveMerge, nil)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestResolver_RejectsUnknownStrategy(t *testing.T) {
	ctx := context.Background()
	local, remote := conflictPair()
	docs := newFakeDocsRepo()
	bus := NewBus(8)
	r := NewResolver(docs, bus, func(_ context.Context, _ *models.Document, _ models.OperationType) error { return nil })

	c := NewDetector().Detect(local, remote)
	_, err := r.Resolve(ctx, c, models.ResolutionStrategy("coin_flip"), nil)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestResolver_MergeErrorPropagates(t *testing.T) {
	ctx := context.Background()
	local, remote := conflictPair()
	docs := newFakeDocsRepo()
	bus := NewBus(8)
	r := NewResolver(docs, bus, func(_ context.Context, _ *models.Document, _ models.OperationType) error { return nil })

	boom := errors.New("boom")
	c := NewDetector().Detect(local, remote)
	_, err := r.Resolve(ctx, c, models.ResolveMerge, func(_, _ *models.Document) (*models.Document, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}
