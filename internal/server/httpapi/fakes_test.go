package httpapi

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mihailsb/docsync/internal/common"
	"github.com/mihailsb/docsync/internal/dbx"
	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/server/models"
	"github.com/mihailsb/docsync/internal/server/repositories/documents"
	"github.com/mihailsb/docsync/internal/server/repositories/refreshtokens"
	"github.com/mihailsb/docsync/internal/server/repositories/tombstones"
	"github.com/mihailsb/docsync/internal/server/repositories/users"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newMockDB returns a sqlmock *sql.DB pre-loaded with enough transaction
// expectations for any handler sequence a test performs.
func newMockDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 16; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrAlreadyExists
	}
	user.ID = "11111111-1111-4111-8111-" + time.Now().Format("150405.000000")[:12]
	user.CreatedAt = time.Now()
	r.byEmail[user.Email] = user
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

type fakeTokenRepo struct {
	tokens map[string]*models.RefreshToken
}

func (r *fakeTokenRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	r.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeTokenRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return t, nil
}

func (r *fakeTokenRepo) Delete(ctx context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

type fakeDocRepo struct {
	docs map[string]*models.Document
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if _, ok := r.docs[doc.SyncID]; ok {
		return nil, common.ErrAlreadyExists
	}
	doc.Version = 1
	doc.UpdatedAt = time.Now()
	r.docs[doc.SyncID] = doc
	return doc, nil
}

func (r *fakeDocRepo) Update(ctx context.Context, doc *models.Document, expectedVersion int64) (*models.Document, error) {
	stored, ok := r.docs[doc.SyncID]
	if !ok || stored.UserID != doc.UserID {
		return nil, common.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return nil, common.ErrVersionConflict
	}
	doc.Version = stored.Version + 1
	doc.UpdatedAt = time.Now()
	r.docs[doc.SyncID] = doc
	return doc, nil
}

func (r *fakeDocRepo) Get(ctx context.Context, userID, syncID string) (*models.Document, error) {
	d, ok := r.docs[syncID]
	if !ok || d.UserID != userID {
		return nil, common.ErrNotFound
	}
	return d, nil
}

func (r *fakeDocRepo) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range r.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, userID, syncID string) error {
	d, ok := r.docs[syncID]
	if !ok || d.UserID != userID {
		return common.ErrNotFound
	}
	delete(r.docs, syncID)
	return nil
}

type fakeTombRepo struct {
	rows map[string]*models.Tombstone
}

func (r *fakeTombRepo) Create(ctx context.Context, t *models.Tombstone) error {
	if _, ok := r.rows[t.SyncID]; !ok {
		r.rows[t.SyncID] = t
	}
	return nil
}

func (r *fakeTombRepo) Exists(ctx context.Context, userID, syncID string) (bool, error) {
	t, ok := r.rows[syncID]
	return ok && t.UserID == userID, nil
}

func (r *fakeTombRepo) ListByUser(ctx context.Context, userID string) ([]*models.Tombstone, error) {
	var out []*models.Tombstone
	for _, t := range r.rows {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	users  *fakeUserRepo
	tokens *fakeTokenRepo
	docs   *fakeDocRepo
	tombs  *fakeTombRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:  &fakeUserRepo{byEmail: map[string]*models.User{}},
		tokens: &fakeTokenRepo{tokens: map[string]*models.RefreshToken{}},
		docs:   &fakeDocRepo{docs: map[string]*models.Document{}},
		tombs:  &fakeTombRepo{rows: map[string]*models.Tombstone{}},
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository  { return m.tokens }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documents.Repository          { return m.docs }
func (m *fakeRepoManager) Tombstones(db dbx.DBTX) tombstones.Repository        { return m.tombs }
