package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/common"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/config"
	"github.com/openvault/openvault/internal/server/models"
	"github.com/openvault/openvault/internal/server/repositories/repomanager"
)

const (
	shareTokenBytes    = 32
	shareOtpDigits     = 6
	accessLogPageLimit = 100
)

// ClientInfo identifies the anonymous caller for the audit trail.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// FileInfo is the anonymous-facing descriptor of a shared file.
type FileInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// ShareView is what an anonymous visitor learns about a link that passed
// the gate checks: the challenge flags and the shared content's descriptors,
// never storage keys or hashes.
type ShareView struct {
	Token            string     `json:"token"`
	Permission       string     `json:"permission"`
	RequiresPassword bool       `json:"requiresPassword"`
	RequiresOtp      bool       `json:"requiresOtp"`
	File             *FileInfo  `json:"file,omitempty"`
	FolderName       string     `json:"folderName,omitempty"`
	Files            []FileInfo `json:"files,omitempty"`
}

// CreateLinkInput describes a new share link. Exactly one of FileID and
// FolderID must be set.
type CreateLinkInput struct {
	FileID       string
	FolderID     string
	Password     string
	Permission   string
	OtpEnabled   bool
	OpensAt      *time.Time
	ExpiresAt    *time.Time
	MaxDownloads *int
}

// CreatedLink is the owner's receipt: the persisted link, the public URL,
// and — when the OTP gate is on — the code to hand to recipients.
type CreatedLink struct {
	Link     *models.ShareLink
	ShareURL string
	OtpCode  string
}

// AccessProof carries the gate answers an anonymous caller presents with a
// download or preview request.
type AccessProof struct {
	Password string
	OtpCode  string
}

// ContentHandle is an issued retrieval handle plus the descriptor the
// client needs to present it.
type ContentHandle struct {
	URL      string `json:"retrievalHandle"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// ShareService evaluates share-link gates and serves the anonymous access
// flows plus the owner-side link management.
type ShareService struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	logger  logging.Logger
	hasher  PasswordHasher
	storage ObjectStorage
	baseURL string
}

// NewShareService constructs a ShareService.
func NewShareService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config,
	hasher PasswordHasher, storage ObjectStorage, logger logging.Logger) *ShareService {
	return &ShareService{
		db:      db,
		repos:   repos,
		logger:  logger,
		hasher:  hasher,
		storage: storage,
		baseURL: strings.TrimRight(cfg.ShareBaseURL, "/"),
	}
}

// checkGates runs the fixed gate sequence. The first failing gate wins, in
// this order: kill switch, not-yet-open window, expiry, download cap.
func checkGates(link *models.ShareLink, now time.Time) error {
	if !link.IsActive {
		return apperr.New(apperr.CodeLinkDisabled, "this link has been disabled")
	}
	if link.OpensAt != nil && now.Before(*link.OpensAt) {
		return apperr.New(apperr.CodeNotYetOpen, "this link is not yet open")
	}
	if link.ExpiresAt != nil && now.After(*link.ExpiresAt) {
		return apperr.New(apperr.CodeLinkExpired, "this link has expired")
	}
	if link.MaxDownloads != nil && link.DownloadCount >= *link.MaxDownloads {
		return apperr.New(apperr.CodeLimitReached, "download limit reached")
	}
	return nil
}

// resolve fetches a link by its public token and runs the gates.
func (s *ShareService) resolve(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := s.repos.ShareLinks(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "share link not found")
		}
		return nil, apperr.Internal(err)
	}
	if err := checkGates(link, time.Now()); err != nil {
		return nil, err
	}
	return link, nil
}

// ViewMetadata is the anonymous landing view. It passes the gates, records
// the visit, and returns the challenge flags plus content descriptors.
func (s *ShareService) ViewMetadata(ctx context.Context, token string, client ClientInfo) (*ShareView, error) {
	link, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	view := &ShareView{
		Token:            link.Token,
		Permission:       link.Permission,
		RequiresPassword: link.RequiresPassword(),
		RequiresOtp:      link.OtpEnabled,
	}

	fileRepo := s.repos.Files(s.db)
	switch {
	case link.FileID != nil:
		file, err := fileRepo.GetByID(ctx, *link.FileID)
		if err != nil {
			return nil, s.missingTarget(err)
		}
		view.File = fileDescriptor(file)
	case link.FolderID != nil:
		folder, err := fileRepo.GetFolder(ctx, *link.FolderID)
		if err != nil {
			return nil, s.missingTarget(err)
		}
		view.FolderName = folder.Name
		entries, err := fileRepo.ListByFolder(ctx, folder.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		view.Files = make([]FileInfo, 0, len(entries))
		for _, f := range entries {
			view.Files = append(view.Files, *fileDescriptor(f))
		}
	default:
		return nil, apperr.New(apperr.CodeNotFound, "share link not found")
	}

	s.audit(ctx, link.ID, models.ActionView, client)
	return view, nil
}

// VerifyPassword answers the password gate. Presenting a password to a link
// that never had one is an error, not a success.
func (s *ShareService) VerifyPassword(ctx context.Context, token, password string, client ClientInfo) error {
	link, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.checkPassword(link, password); err != nil {
		return err
	}
	s.audit(ctx, link.ID, models.ActionPasswordVerify, client)
	return nil
}

// VerifyOTP answers the OTP gate.
func (s *ShareService) VerifyOTP(ctx context.Context, token, code string, client ClientInfo) error {
	link, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.checkOtp(link, code); err != nil {
		return err
	}
	s.audit(ctx, link.ID, models.ActionOtpVerify, client)
	return nil
}

// Download re-runs the gates and proofs, claims a download slot, and only
// then issues the retrieval handle. The slot claim is atomic: concurrent
// downloads at the cap cannot overshoot it.
func (s *ShareService) Download(ctx context.Context, token, fileID string, proof AccessProof, client ClientInfo) (*ContentHandle, error) {
	link, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.checkProofs(link, proof); err != nil {
		return nil, err
	}

	file, err := s.resolveFile(ctx, link, fileID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.repos.ShareLinks(s.db).IncrementDownloadCount(ctx, link.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !claimed {
		return nil, apperr.New(apperr.CodeLimitReached, "download limit reached")
	}

	url, err := s.storage.PresignGet(ctx, file.StorageKey)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.audit(ctx, link.ID, models.ActionDownload, client)
	return contentHandle(url, file), nil
}

// Preview issues an inline retrieval handle without claiming a download
// slot, so previewing never burns the cap.
func (s *ShareService) Preview(ctx context.Context, token, fileID string, proof AccessProof, client ClientInfo) (*ContentHandle, error) {
	link, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.checkProofs(link, proof); err != nil {
		return nil, err
	}

	file, err := s.resolveFile(ctx, link, fileID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.PresignGetInline(ctx, file.StorageKey, file.MimeType)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.audit(ctx, link.ID, models.ActionView, client)
	return contentHandle(url, file), nil
}

// CreateLink mints a share link for the owner. The OTP code, when enabled,
// is generated server-side and returned once.
func (s *ShareService) CreateLink(ctx context.Context, ownerID string, in CreateLinkInput) (*CreatedLink, error) {
	if (in.FileID == "") == (in.FolderID == "") {
		return nil, apperr.New(apperr.CodeValidationFailed, "exactly one of fileId and folderId is required")
	}

	fileRepo := s.repos.Files(s.db)
	link := &models.ShareLink{CreatedBy: ownerID, Permission: in.Permission, OtpEnabled: in.OtpEnabled,
		OpensAt: in.OpensAt, ExpiresAt: in.ExpiresAt, MaxDownloads: in.MaxDownloads}
	if link.Permission == "" {
		link.Permission = models.PermissionViewer
	}

	if in.FileID != "" {
		if _, err := fileRepo.GetByID(ctx, in.FileID); err != nil {
			return nil, s.missingTarget(err)
		}
		link.FileID = &in.FileID
	} else {
		if _, err := fileRepo.GetFolder(ctx, in.FolderID); err != nil {
			return nil, s.missingTarget(err)
		}
		link.FolderID = &in.FolderID
	}

	token, err := common.MakeURLSafeToken(shareTokenBytes)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	link.Token = token

	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		link.PasswordHash = &hash
	}

	var otpCode string
	if in.OtpEnabled {
		otpCode, err = common.MakeNumericCode(shareOtpDigits)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		link.OtpCode = &otpCode
	}

	if err := s.repos.ShareLinks(s.db).Create(ctx, link); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info(ctx, "share link created", "link_id", link.ID, "account_id", ownerID)
	return &CreatedLink{Link: link, ShareURL: s.baseURL + "/share/" + link.Token, OtpCode: otpCode}, nil
}

// DeactivateLink flips the kill switch. Only the creator may do so; anyone
// else sees the link as absent.
func (s *ShareService) DeactivateLink(ctx context.Context, ownerID, linkID string) error {
	err := s.repos.ShareLinks(s.db).Deactivate(ctx, linkID, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return apperr.New(apperr.CodeNotFound, "share link not found")
		}
		return apperr.Internal(err)
	}
	s.logger.Info(ctx, "share link deactivated", "link_id", linkID, "account_id", ownerID)
	return nil
}

// ListAccessLog returns the newest audit entries for one of the owner's
// links.
func (s *ShareService) ListAccessLog(ctx context.Context, ownerID, linkID string) ([]*models.ShareAccessLog, error) {
	link, err := s.repos.ShareLinks(s.db).GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "share link not found")
		}
		return nil, apperr.Internal(err)
	}
	if link.CreatedBy != ownerID {
		return nil, apperr.New(apperr.CodeNotFound, "share link not found")
	}

	entries, err := s.repos.AccessLogs(s.db).ListByShareLink(ctx, linkID, accessLogPageLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}

func (s *ShareService) checkPassword(link *models.ShareLink, password string) error {
	if !link.RequiresPassword() {
		return apperr.New(apperr.CodeNoPassword, "this link has no password")
	}
	ok, err := s.hasher.Verify(*link.PasswordHash, password)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.New(apperr.CodeWrongPassword, "incorrect password")
	}
	return nil
}

func (s *ShareService) checkOtp(link *models.ShareLink, code string) error {
	if !link.OtpEnabled || link.OtpCode == nil {
		return apperr.New(apperr.CodeNoOtp, "this link has no access code")
	}
	if subtle.ConstantTimeCompare([]byte(*link.OtpCode), []byte(strings.TrimSpace(code))) != 1 {
		return apperr.New(apperr.CodeWrongOtp, "incorrect access code")
	}
	return nil
}

// checkProofs re-validates both gates for content access. The landing-page
// verify endpoints and the content endpoints are independent, so a caller
// cannot skip the challenge by going straight for the content.
func (s *ShareService) checkProofs(link *models.ShareLink, proof AccessProof) error {
	if link.RequiresPassword() {
		if err := s.checkPassword(link, proof.Password); err != nil {
			return err
		}
	}
	if link.OtpEnabled {
		if err := s.checkOtp(link, proof.OtpCode); err != nil {
			return err
		}
	}
	return nil
}

// resolveFile maps the request onto the link's target. For a folder link
// the file must live in the shared folder; for a file link a mismatched id
// is rejected.
func (s *ShareService) resolveFile(ctx context.Context, link *models.ShareLink, fileID string) (*models.File, error) {
	fileRepo := s.repos.Files(s.db)
	switch {
	case link.FileID != nil:
		if fileID != "" && fileID != *link.FileID {
			return nil, apperr.New(apperr.CodeFileNotInShare, "file is not part of this share")
		}
		file, err := fileRepo.GetByID(ctx, *link.FileID)
		if err != nil {
			return nil, s.missingTarget(err)
		}
		return file, nil
	case link.FolderID != nil:
		if fileID == "" {
			return nil, apperr.New(apperr.CodeValidationFailed, "fileId is required for folder shares")
		}
		file, err := fileRepo.GetFolderFile(ctx, *link.FolderID, fileID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, apperr.New(apperr.CodeFileNotInShare, "file is not part of this share")
			}
			return nil, apperr.Internal(err)
		}
		return file, nil
	}
	return nil, apperr.New(apperr.CodeNotFound, "share link not found")
}

// audit appends an access-log entry. Audit failures are logged and
// swallowed: the trail is best effort and never blocks the visitor.
func (s *ShareService) audit(ctx context.Context, linkID, action string, client ClientInfo) {
	entry := &models.ShareAccessLog{
		ShareLinkID: linkID,
		Action:      action,
		IPAddress:   client.IPAddress,
		UserAgent:   client.UserAgent,
	}
	if err := s.repos.AccessLogs(s.db).Append(ctx, entry); err != nil {
		s.logger.Warn(ctx, "access log write failed", "link_id", linkID, "action", action, "error", err)
	}
}

func (s *ShareService) missingTarget(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return apperr.New(apperr.CodeNotFound, "shared content not found")
	}
	return apperr.Internal(err)
}

func fileDescriptor(f *models.File) *FileInfo {
	return &FileInfo{ID: f.ID, Name: f.Name, MimeType: f.MimeType, Size: f.Size}
}

func contentHandle(url string, f *models.File) *ContentHandle {
	return &ContentHandle{URL: url, FileName: f.Name, MimeType: f.MimeType, Size: f.Size}
}
