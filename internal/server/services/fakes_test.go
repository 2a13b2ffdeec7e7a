package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/dbx"
	"github.com/apetrenko/filevault/internal/server/models"
	filesrepo "github.com/apetrenko/filevault/internal/server/repositories/files"
	grantsrepo "github.com/apetrenko/filevault/internal/server/repositories/grants"
	usersrepo "github.com/apetrenko/filevault/internal/server/repositories/users"
)

// --- shared fakes for service tests ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	mu     sync.Mutex
	byName map[string]*models.User
	nextID int64

	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byName: make(map[string]*models.User), nextID: 1}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = f.nextID
	f.nextID++
	f.byName[u.Username] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byName[username]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.VerificationToken == token && token != "" {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) MarkVerified(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.ID == userID {
			u.Verified = true
			u.VerificationToken = ""
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeFilesRepo struct {
	mu     sync.Mutex
	byID   map[int64]*models.File
	nextID int64

	createErr error
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{byID: make(map[int64]*models.File), nextID: 1}
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	file.ID = f.nextID
	f.nextID++
	f.byID[file.ID] = file
	return file, nil
}

func (f *fakeFilesRepo) Get(ctx context.Context, id int64) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.byID[id]; ok {
		return file, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFilesRepo) List(ctx context.Context) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.File, 0, len(f.byID))
	for _, file := range f.byID {
		out = append(out, file)
	}
	return out, nil
}

// fakeGrantsRepo mirrors the storage contract: Consume is a mutex-guarded
// compare-and-swap so racing goroutines in tests see exactly one winner,
// just like the conditional UPDATE in Postgres.
type fakeGrantsRepo struct {
	mu   sync.Mutex
	byID map[string]*models.DownloadGrant

	createErr  error
	getErr     error
	consumeErr error
}

func newFakeGrantsRepo() *fakeGrantsRepo {
	return &fakeGrantsRepo{byID: make(map[string]*models.DownloadGrant)}
}

func (f *fakeGrantsRepo) Create(ctx context.Context, grant *models.DownloadGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *grant
	f.byID[grant.ID] = &cp
	return nil
}

func (f *fakeGrantsRepo) Get(ctx context.Context, grantID string) (*models.DownloadGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if g, ok := f.byID[grantID]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeGrantsRepo) Consume(ctx context.Context, grantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return false, f.consumeErr
	}
	g, ok := f.byID[grantID]
	if !ok || g.Consumed {
		return false, nil
	}
	g.Consumed = true
	return true, nil
}

type fakeRepoManager struct {
	users  usersrepo.Repository
	files  filesrepo.Repository
	grants grantsrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return m.users }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository             { return m.files }
func (m *fakeRepoManager) Grants(db dbx.DBTX) grantsrepo.Repository           { return m.grants }
