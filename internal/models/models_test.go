package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSyncState_Valid(t *testing.T) {
	all := []SyncState{
		StateLocalOnly, StatePendingUpload, StateUploading, StateSynced,
		StatePendingDownload, StateDownloading, StateConflict,
		StatePendingDeletion, StateError,
	}
	for _, s := range all {
		require.True(t, s.Valid(), "state %s", s)
	}
	require.False(t, SyncState("bogus").Valid())
	require.False(t, SyncState("").Valid())
}

func TestSyncState_Drainable(t *testing.T) {
	require.True(t, StatePendingUpload.Drainable())
	require.True(t, StateSynced.Drainable())
	require.False(t, StateConflict.Drainable())
	require.False(t, StateError.Drainable())
}

func TestOperationType_Beats(t *testing.T) {
	require.True(t, OpDelete.Beats(OpUpdate))
	require.True(t, OpDelete.Beats(OpUpload))
	require.True(t, OpUpdate.Beats(OpUpload))
	require.False(t, OpUpload.Beats(OpUpdate))
	require.False(t, OpUpdate.Beats(OpUpdate))
}

func TestDocument_ContentHash(t *testing.T) {
	date := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	d1 := &Document{Title: "invoice", Category: "finance", Notes: "Q1", Date: date}
	d2 := &Document{Title: "invoice", Category: "finance", Notes: "Q1", Date: date, Version: 7, SyncState: StateSynced}

	// Bookkeeping fields do not participate in the hash.
	require.Equal(t, d1.ComputeContentHash(), d2.ComputeContentHash())
	require.True(t, d1.ContentEquals(d2))

	d2.Notes = "Q2"
	require.False(t, d1.ContentEquals(d2))
}

func TestDocument_Clone(t *testing.T) {
	at := time.Now()
	d := &Document{SyncID: "id", Title: "a", Deleted: true, DeletedAt: &at}
	c := d.Clone()
	c.Title = "b"
	*c.DeletedAt = at.Add(time.Hour)

	require.Equal(t, "a", d.Title)
	require.Equal(t, at, *d.DeletedAt)
}
