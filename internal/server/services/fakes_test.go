package services

// Hand-rolled fakes shared by the service tests. Everything is in-memory
// and single-goroutine; the concurrency-sensitive statements have their own
// repository tests against sqlmock.

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/openvault/openvault/internal/common"
	"github.com/openvault/openvault/internal/dbx"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/models"
	accesslogsrepo "github.com/openvault/openvault/internal/server/repositories/accesslogs"
	accountsrepo "github.com/openvault/openvault/internal/server/repositories/accounts"
	filesrepo "github.com/openvault/openvault/internal/server/repositories/files"
	recoverycodesrepo "github.com/openvault/openvault/internal/server/repositories/recoverycodes"
	sessionsrepo "github.com/openvault/openvault/internal/server/repositories/sessions"
	sharelinksrepo "github.com/openvault/openvault/internal/server/repositories/sharelinks"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

// plainHasher hashes by prefixing, so tests stay fast and can read back
// what was "hashed".
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Verify(encoded, candidate string) (bool, error) {
	return strings.TrimPrefix(encoded, "h:") == candidate, nil
}

type fakeAccountsRepo struct {
	byID    map[string]*models.Account
	byEmail map[string]*models.Account
}

func newFakeAccountsRepo() *fakeAccountsRepo {
	return &fakeAccountsRepo{byID: map[string]*models.Account{}, byEmail: map[string]*models.Account{}}
}

func (f *fakeAccountsRepo) add(a *models.Account) {
	f.byID[a.ID] = a
	f.byEmail[a.Email] = a
}

func (f *fakeAccountsRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if _, ok := f.byEmail[a.Email]; ok {
		return nil, common.ErrorConflict
	}
	a.ID = "acc-" + a.Email
	a.CreatedAt = time.Now()
	f.add(a)
	return a, nil
}

func (f *fakeAccountsRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if a, ok := f.byEmail[email]; ok {
		return a, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccountsRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccountsRepo) SetTotpSecret(ctx context.Context, id, secret string) error {
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.TotpSecret = secret
	return nil
}

func (f *fakeAccountsRepo) EnableMfa(ctx context.Context, id string) error {
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.MfaEnabled = true
	return nil
}

func (f *fakeAccountsRepo) ClearMfa(ctx context.Context, id string) error {
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.MfaEnabled = false
	a.TotpSecret = ""
	return nil
}

type fakeSessionsRepo struct {
	byToken map[string]*models.Session
	nextID  int
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{byToken: map[string]*models.Session{}}
}

func (f *fakeSessionsRepo) Create(ctx context.Context, s *models.Session) error {
	f.nextID++
	s.ID = "sess-" + strings.Repeat("x", f.nextID)
	s.CreatedAt = time.Now()
	f.byToken[s.RefreshToken] = s
	return nil
}

func (f *fakeSessionsRepo) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*models.Session, error) {
	s, ok := f.byToken[oldToken]
	if !ok || s.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrorNotFound
	}
	delete(f.byToken, oldToken)
	s.RefreshToken = newToken
	s.ExpiresAt = expiresAt
	f.byToken[newToken] = s
	return s, nil
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}

type fakeRecoveryRepo struct {
	codes  []*models.RecoveryCode
	nextID int
}

func (f *fakeRecoveryRepo) CreateBatch(ctx context.Context, accountID string, hashes []string) error {
	for _, h := range hashes {
		f.nextID++
		f.codes = append(f.codes, &models.RecoveryCode{
			ID: "rc-" + strings.Repeat("i", f.nextID), AccountID: accountID, CodeHash: h,
		})
	}
	return nil
}

func (f *fakeRecoveryRepo) DeleteAll(ctx context.Context, accountID string) error {
	kept := f.codes[:0]
	for _, c := range f.codes {
		if c.AccountID != accountID {
			kept = append(kept, c)
		}
	}
	f.codes = kept
	return nil
}

func (f *fakeRecoveryRepo) ListUnused(ctx context.Context, accountID string) ([]*models.RecoveryCode, error) {
	var out []*models.RecoveryCode
	for _, c := range f.codes {
		if c.AccountID == accountID && !c.Used {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRecoveryRepo) MarkUsed(ctx context.Context, id string) error {
	for _, c := range f.codes {
		if c.ID == id && !c.Used {
			now := time.Now()
			c.Used = true
			c.UsedAt = &now
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeShareLinksRepo struct {
	byToken map[string]*models.ShareLink
	byID    map[string]*models.ShareLink
	nextID  int
}

func newFakeShareLinksRepo() *fakeShareLinksRepo {
	return &fakeShareLinksRepo{byToken: map[string]*models.ShareLink{}, byID: map[string]*models.ShareLink{}}
}

func (f *fakeShareLinksRepo) add(l *models.ShareLink) {
	f.byToken[l.Token] = l
	f.byID[l.ID] = l
}

func (f *fakeShareLinksRepo) Create(ctx context.Context, l *models.ShareLink) error {
	f.nextID++
	l.ID = "link-" + strings.Repeat("n", f.nextID)
	l.IsActive = true
	l.CreatedAt = time.Now()
	f.add(l)
	return nil
}

func (f *fakeShareLinksRepo) GetByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	if l, ok := f.byToken[token]; ok {
		return l, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeShareLinksRepo) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	if l, ok := f.byID[id]; ok {
		return l, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeShareLinksRepo) Deactivate(ctx context.Context, id, createdBy string) error {
	l, ok := f.byID[id]
	if !ok || l.CreatedBy != createdBy {
		return common.ErrorNotFound
	}
	l.IsActive = false
	return nil
}

func (f *fakeShareLinksRepo) IncrementDownloadCount(ctx context.Context, id string) (bool, error) {
	l, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	if l.MaxDownloads != nil && l.DownloadCount >= *l.MaxDownloads {
		return false, nil
	}
	l.DownloadCount++
	return true, nil
}

type fakeFilesRepo struct {
	files   map[string]*models.File
	folders map[string]*models.Folder
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{files: map[string]*models.File{}, folders: map[string]*models.Folder{}}
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if file, ok := f.files[id]; ok && !file.IsTrashed {
		return file, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFilesRepo) GetFolderFile(ctx context.Context, folderID, fileID string) (*models.File, error) {
	file, ok := f.files[fileID]
	if !ok || file.IsTrashed || file.FolderID == nil || *file.FolderID != folderID {
		return nil, common.ErrorNotFound
	}
	return file, nil
}

func (f *fakeFilesRepo) ListByFolder(ctx context.Context, folderID string) ([]*models.File, error) {
	var out []*models.File
	for _, file := range f.files {
		if file.FolderID != nil && *file.FolderID == folderID && !file.IsTrashed {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	if folder, ok := f.folders[id]; ok {
		return folder, nil
	}
	return nil, common.ErrorNotFound
}

type fakeAccessLogsRepo struct {
	entries   []*models.ShareAccessLog
	appendErr error
}

func (f *fakeAccessLogsRepo) Append(ctx context.Context, e *models.ShareAccessLog) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	e.ID = "log"
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAccessLogsRepo) ListByShareLink(ctx context.Context, linkID string, limit int) ([]*models.ShareAccessLog, error) {
	var out []*models.ShareAccessLog
	for _, e := range f.entries {
		if e.ShareLinkID == linkID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	accounts   *fakeAccountsRepo
	sessions   *fakeSessionsRepo
	recovery   *fakeRecoveryRepo
	shareLinks *fakeShareLinksRepo
	files      *fakeFilesRepo
	accessLogs *fakeAccessLogsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		accounts:   newFakeAccountsRepo(),
		sessions:   newFakeSessionsRepo(),
		recovery:   &fakeRecoveryRepo{},
		shareLinks: newFakeShareLinksRepo(),
		files:      newFakeFilesRepo(),
		accessLogs: &fakeAccessLogsRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository { return m.accounts }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository { return m.sessions }
func (m *fakeRepoManager) RecoveryCodes(db dbx.DBTX) recoverycodesrepo.Repository {
	return m.recovery
}
func (m *fakeRepoManager) ShareLinks(db dbx.DBTX) sharelinksrepo.Repository { return m.shareLinks }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository           { return m.files }
func (m *fakeRepoManager) AccessLogs(db dbx.DBTX) accesslogsrepo.Repository { return m.accessLogs }

type fakeStorage struct {
	lastKey string
}

func (f *fakeStorage) PresignGet(ctx context.Context, key string) (string, error) {
	f.lastKey = key
	return "https://storage.local/get/" + key, nil
}

func (f *fakeStorage) PresignGetInline(ctx context.Context, key, contentType string) (string, error) {
	f.lastKey = key
	return "https://storage.local/inline/" + key, nil
}
