// Package services contains server-side business logic. This file implements
// AuthService: registration, login with the MFA gate, refresh-token rotation,
// and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/common"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/auth"
	"github.com/openvault/openvault/internal/server/config"
	"github.com/openvault/openvault/internal/server/models"
	"github.com/openvault/openvault/internal/server/repositories/repomanager"
)

// refreshTokenBytes is the entropy of a refresh token before base64url
// encoding (64 characters on the wire).
const refreshTokenBytes = 48

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginInput carries everything a login attempt may present. TotpCode and
// RecoveryCode are empty unless the client is answering the MFA challenge.
type LoginInput struct {
	Email        string
	Password     string
	TotpCode     string
	RecoveryCode string
	IPAddress    string
	UserAgent    string
}

// LoginResult is a successful login: tokens plus the account projection.
type LoginResult struct {
	Tokens  TokenPair
	Account models.Summary
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email     string
	Name      string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginVerifier answers the second factor during login. Implemented by
// MfaService; an interface so AuthService tests can fake it.
type LoginVerifier interface {
	VerifyLogin(ctx context.Context, account *models.Account, totpCode, recoveryCode string) error
}

// PasswordHasher abstracts Argon2id hashing so tests can swap in a cheap
// implementation.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, candidate string) (bool, error)
}

// AuthService provides registration, login, token refresh, and logout.
type AuthService struct {
	db                   *sql.DB
	repos                repomanager.RepositoryManager
	logger               logging.Logger
	hasher               PasswordHasher
	mfa                  LoginVerifier
	jwtSecret            []byte
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
}

// NewAuthService constructs an AuthService from injected dependencies.
func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config,
	hasher PasswordHasher, mfa LoginVerifier, logger logging.Logger) *AuthService {
	return &AuthService{
		db:                   db,
		repos:                repos,
		logger:               logger,
		hasher:               hasher,
		mfa:                  mfa,
		jwtSecret:            []byte(cfg.JWTSecret),
		accessTokenValidity:  config.ParseExpiry(cfg.AccessTokenExpiry),
		refreshTokenValidity: config.ParseExpiry(cfg.RefreshTokenExpiry),
	}
}

// Register creates an account with a freshly hashed password and signs it
// straight in. A taken email yields CodeEmailExists.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	repo := s.repos.Accounts(s.db)

	if _, err := repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.New(apperr.CodeEmailExists, "email already registered")
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, apperr.Internal(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	account := &models.Account{Email: in.Email, Name: in.Name, Role: "user", PasswordHash: hash}
	created, err := repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			// Lost the race with a concurrent registration for the same email.
			return nil, apperr.New(apperr.CodeEmailExists, "email already registered")
		}
		return nil, apperr.Internal(err)
	}

	tokens, err := s.issueSession(ctx, created, in.IPAddress, in.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account registered", "account_id", created.ID)
	return &LoginResult{Tokens: *tokens, Account: created.Summary()}, nil
}

// Login verifies email and password, then — when the account has MFA
// enabled — requires a valid TOTP or recovery code before issuing a session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	repo := s.repos.Accounts(s.db)

	account, err := repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
		}
		return nil, apperr.Internal(err)
	}

	ok, err := s.hasher.Verify(account.PasswordHash, in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
	}

	if account.MfaEnabled {
		if in.TotpCode == "" && in.RecoveryCode == "" {
			return nil, apperr.New(apperr.CodeMfaRequired, "multi-factor code required")
		}
		if err := s.mfa.VerifyLogin(ctx, account, in.TotpCode, in.RecoveryCode); err != nil {
			return nil, err
		}
	}

	tokens, err := s.issueSession(ctx, account, in.IPAddress, in.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login succeeded", "account_id", account.ID, "ip", in.IPAddress)
	return &LoginResult{Tokens: *tokens, Account: account.Summary()}, nil
}

// Refresh spends the presented refresh token and mints a replacement pair.
// The rotation is a single conditional update, so a token can be spent at
// most once; a spent, expired, or unknown token yields CodeInvalidRefresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperr.New(apperr.CodeInvalidRefresh, "missing refresh token")
	}

	newToken, err := common.MakeURLSafeToken(refreshTokenBytes)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	sessionRepo := s.repos.Sessions(s.db)
	session, err := sessionRepo.Rotate(ctx, refreshToken, newToken, time.Now().Add(s.refreshTokenValidity))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.New(apperr.CodeInvalidRefresh, "invalid or expired refresh token")
		}
		return nil, apperr.Internal(err)
	}

	account, err := s.repos.Accounts(s.db).GetByID(ctx, session.AccountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	access, err := auth.GenerateToken(account.ID, account.Email, account.Role, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: newToken}, nil
}

// Logout discards the session behind the refresh token. Logging out an
// already-dead token succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repos.Sessions(s.db).Delete(ctx, refreshToken); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, account *models.Account, ip, userAgent string) (*TokenPair, error) {
	access, err := auth.GenerateToken(account.ID, account.Email, account.Role, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	refresh, err := common.MakeURLSafeToken(refreshTokenBytes)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	session := &models.Session{
		AccountID:    account.ID,
		RefreshToken: refresh,
		IPAddress:    ip,
		UserAgent:    userAgent,
		ExpiresAt:    time.Now().Add(s.refreshTokenValidity),
	}
	if err := s.repos.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, apperr.Internal(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
