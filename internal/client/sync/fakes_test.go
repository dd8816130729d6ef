package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	gosync "sync"
	"time"

	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeIdentity struct {
	authed bool
	userID string
}

func (f *fakeIdentity) IsAuthenticated() bool { return f.authed }
func (f *fakeIdentity) CurrentUserID() string { return f.userID }

type fakeGate struct {
	allow  bool
	reason string
}

func (f *fakeGate) CanSync() bool        { return f.allow }
func (f *fakeGate) DenialReason() string { return f.reason }

type fakeDocsRepo struct {
	mu   gosync.Mutex
	docs map[string]*models.Document

	// stateErrs is a queue of errors returned by the next SetState calls,
	// one per call, before the real behavior runs.
	stateErrs []error
}

func newFakeDocsRepo() *fakeDocsRepo {
	return &fakeDocsRepo{docs: make(map[string]*models.Document)}
}

func (f *fakeDocsRepo) Upsert(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.SyncID] = doc.Clone()
	return nil
}

func (f *fakeDocsRepo) GetBySyncID(_ context.Context, syncID string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[syncID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return d.Clone(), nil
}

func (f *fakeDocsRepo) ListAll(_ context.Context, userID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, d := range f.docs {
		if d.UserID == userID && !d.Deleted {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (f *fakeDocsRepo) ListByState(_ context.Context, userID string, state models.SyncState) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, d := range f.docs {
		if d.UserID == userID && d.SyncState == state {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (f *fakeDocsRepo) failNextSetState(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateErrs = append(f.stateErrs, errs...)
}

func (f *fakeDocsRepo) SetState(_ context.Context, syncID string, state models.SyncState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stateErrs) > 0 {
		err := f.stateErrs[0]
		f.stateErrs = f.stateErrs[1:]
		return err
	}
	d, ok := f.docs[syncID]
	if !ok {
		return common.ErrNotFound
	}
	d.SyncState = state
	return nil
}

func (f *fakeDocsRepo) Delete(_ context.Context, syncID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, syncID)
	return nil
}

type fakeFilesRepo struct {
	mu    gosync.Mutex
	files map[string]*models.FileAttachment
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{files: make(map[string]*models.FileAttachment)}
}

func (f *fakeFilesRepo) Upsert(_ context.Context, a *models.FileAttachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[a.ID] = a.Clone()
	return nil
}

func (f *fakeFilesRepo) GetByID(_ context.Context, id string) (*models.FileAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a.Clone(), nil
}

func (f *fakeFilesRepo) ListByDocument(_ context.Context, docSyncID string) ([]*models.FileAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FileAttachment
	for _, a := range f.files {
		if a.DocumentSyncID == docSyncID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
	return nil
}

func (f *fakeFilesRepo) DeleteByDocument(_ context.Context, docSyncID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.files {
		if a.DocumentSyncID == docSyncID {
			delete(f.files, id)
		}
	}
	return nil
}

type fakeTombsRepo struct {
	mu   gosync.Mutex
	rows map[string]*models.Tombstone
}

func newFakeTombsRepo() *fakeTombsRepo {
	return &fakeTombsRepo{rows: make(map[string]*models.Tombstone)}
}

func (f *fakeTombsRepo) Insert(_ context.Context, t *models.Tombstone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[t.SyncID]; ok {
		return nil
	}
	c := *t
	f.rows[t.SyncID] = &c
	return nil
}

func (f *fakeTombsRepo) Get(_ context.Context, syncID string) (*models.Tombstone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[syncID]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTombsRepo) Exists(_ context.Context, syncID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[syncID]
	return ok, nil
}

func (f *fakeTombsRepo) ListAll(_ context.Context, userID string) ([]*models.Tombstone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tombstone
	for _, t := range f.rows {
		if t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeTombsRepo) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.rows {
		if t.DeletedAt.Before(cutoff) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTombsRepo) PurgeKeepLatest(_ context.Context, userID string, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var own []*models.Tombstone
	for _, t := range f.rows {
		if t.UserID == userID {
			own = append(own, t)
		}
	}
	if len(own) <= keep {
		return 0, nil
	}
	sort.Slice(own, func(i, j int) bool { return own[i].DeletedAt.Before(own[j].DeletedAt) })
	var n int64
	for _, t := range own[:len(own)-keep] {
		delete(f.rows, t.SyncID)
		n++
	}
	return n, nil
}

// fakeRemote is an in-memory RemoteStore with optimistic concurrency and
// injectable failures.
type fakeRemote struct {
	mu   gosync.Mutex
	docs map[string]*models.Document

	// errs is a queue of errors returned by the next mutating calls, one per
	// call, before the real behavior runs.
	errs []error

	createCalls  int
	updateCalls  int
	deleteCalls  int
	refreshCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]*models.Document)}
}

func (f *fakeRemote) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, errs...)
}

func (f *fakeRemote) popErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeRemote) Create(_ context.Context, doc *models.Document) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if err := f.popErr(); err != nil {
		return 0, err
	}
	if _, ok := f.docs[doc.SyncID]; ok {
		return 0, common.ErrAlreadyExists
	}
	stored := doc.Clone()
	stored.Version = 1
	f.docs[doc.SyncID] = stored
	return stored.Version, nil
}

func (f *fakeRemote) Update(_ context.Context, doc *models.Document, expectedVersion int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if err := f.popErr(); err != nil {
		return 0, err
	}
	stored, ok := f.docs[doc.SyncID]
	if !ok {
		return 0, common.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return 0, fmt.Errorf("expected %d, have %d: %w", expectedVersion, stored.Version, common.ErrVersionConflict)
	}
	next := doc.Clone()
	next.Version = stored.Version + 1
	f.docs[doc.SyncID] = next
	return next.Version, nil
}

func (f *fakeRemote) Delete(_ context.Context, syncID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if err := f.popErr(); err != nil {
		return err
	}
	if _, ok := f.docs[syncID]; !ok {
		return common.ErrNotFound
	}
	delete(f.docs, syncID)
	return nil
}

func (f *fakeRemote) Get(_ context.Context, syncID string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[syncID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return d.Clone(), nil
}

func (f *fakeRemote) ListAll(_ context.Context, userID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (f *fakeRemote) RefreshCredentials(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return nil
}

type fakeBlobs struct {
	mu      gosync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(_ context.Context, key string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return key, nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeConn struct {
	ch chan bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{ch: make(chan bool, 8)}
}

func (f *fakeConn) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-f.ch:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

type fakeWatcher struct {
	mu       gosync.Mutex
	events   chan ChangeEvent
	errs     chan error
	watchErr error
	watches  int
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		events: make(chan ChangeEvent, 16),
		errs:   make(chan error, 1),
	}
}

func (f *fakeWatcher) Watch(_ context.Context, _ string) (<-chan ChangeEvent, <-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watches++
	if f.watchErr != nil {
		return nil, nil, f.watchErr
	}
	return f.events, f.errs, nil
}
