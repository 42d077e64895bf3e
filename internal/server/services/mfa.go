package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/common"
	"github.com/openvault/openvault/internal/dbx"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/config"
	"github.com/openvault/openvault/internal/server/models"
	"github.com/openvault/openvault/internal/server/repositories/repomanager"
)

const (
	totpSecretSize     = 32
	recoveryCodeCount  = 10
	recoveryCodeLength = 8
)

// totpOpts pins the verification parameters: 30 s period with one step of
// clock skew in either direction, six digits, SHA-1.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// validateTotp is a seam for tests.
var validateTotp = func(code, secret string, t time.Time) (bool, error) {
	return totp.ValidateCustom(code, secret, t, totpOpts)
}

// EnrollmentInfo is the provisioning material for an authenticator app.
type EnrollmentInfo struct {
	Secret     string
	OtpauthURL string
}

// IssuedRecoveryCodes holds freshly generated recovery-code plaintexts. The
// type exists only as a return value of enrollment and regeneration; nothing
// else in the codebase produces or stores plaintext codes.
type IssuedRecoveryCodes []string

// MfaService owns TOTP enrollment and the recovery-code lifecycle.
type MfaService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
	hasher PasswordHasher
	issuer string
}

// NewMfaService constructs an MfaService.
func NewMfaService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config,
	hasher PasswordHasher, logger logging.Logger) *MfaService {
	return &MfaService{db: db, repos: repos, logger: logger, hasher: hasher, issuer: cfg.TOTPIssuer}
}

// BeginEnrollment generates a fresh TOTP secret for the account and stores
// it unconfirmed. Re-running enrollment before confirmation simply replaces
// the pending secret.
func (s *MfaService) BeginEnrollment(ctx context.Context, accountID string) (*EnrollmentInfo, error) {
	repo := s.repos.Accounts(s.db)
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if account.MfaEnabled {
		return nil, apperr.New(apperr.CodeInvalidMfa, "multi-factor authentication already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: account.Email,
		SecretSize:  totpSecretSize,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := repo.SetTotpSecret(ctx, accountID, key.Secret()); err != nil {
		return nil, apperr.Internal(err)
	}

	return &EnrollmentInfo{Secret: key.Secret(), OtpauthURL: key.URL()}, nil
}

// ConfirmEnrollment checks the first code against the pending secret,
// flips MFA on, and issues a fresh batch of recovery codes. Enabling and
// code issuance commit together or not at all.
func (s *MfaService) ConfirmEnrollment(ctx context.Context, accountID, code string) (IssuedRecoveryCodes, error) {
	account, err := s.repos.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if account.TotpSecret == "" {
		return nil, apperr.New(apperr.CodeMfaSetupIncomplete, "enrollment has not been started")
	}

	if err := s.checkTotp(code, account.TotpSecret); err != nil {
		return nil, err
	}

	plaintexts, hashes, err := s.mintRecoveryCodes()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Accounts(tx).EnableMfa(ctx, accountID); err != nil {
			return err
		}
		codeRepo := s.repos.RecoveryCodes(tx)
		if err := codeRepo.DeleteAll(ctx, accountID); err != nil {
			return err
		}
		return codeRepo.CreateBatch(ctx, accountID, hashes)
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info(ctx, "mfa enabled", "account_id", accountID)
	return plaintexts, nil
}

// VerifyLogin answers the second factor of a login attempt. The submitted
// code is tried against the TOTP window first; when that fails and the value
// is recovery-code sized, it is tried against the unused recovery codes. A
// spent recovery code never matches again.
func (s *MfaService) VerifyLogin(ctx context.Context, account *models.Account, totpCode, recoveryCode string) error {
	if account.TotpSecret == "" {
		return apperr.New(apperr.CodeMfaSetupIncomplete, "multi-factor setup is incomplete")
	}

	if totpCode == "" {
		return s.spendRecoveryCode(ctx, account.ID, recoveryCode)
	}
	if err := s.checkTotp(totpCode, account.TotpSecret); err != nil {
		if trimmed := strings.TrimSpace(totpCode); len(trimmed) == recoveryCodeLength {
			return s.spendRecoveryCode(ctx, account.ID, trimmed)
		}
		return err
	}
	return nil
}

// RegenerateRecoveryCodes replaces the account's recovery codes after
// re-authentication with password and a current TOTP code. Previously
// issued codes stop working the moment the new batch commits.
func (s *MfaService) RegenerateRecoveryCodes(ctx context.Context, accountID, password, totpCode string) (IssuedRecoveryCodes, error) {
	account, err := s.reauthenticate(ctx, accountID, password, totpCode)
	if err != nil {
		return nil, err
	}
	if !account.MfaEnabled {
		return nil, apperr.New(apperr.CodeMfaSetupIncomplete, "multi-factor authentication is not enabled")
	}

	plaintexts, hashes, err := s.mintRecoveryCodes()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		codeRepo := s.repos.RecoveryCodes(tx)
		if err := codeRepo.DeleteAll(ctx, accountID); err != nil {
			return err
		}
		return codeRepo.CreateBatch(ctx, accountID, hashes)
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info(ctx, "recovery codes regenerated", "account_id", accountID)
	return plaintexts, nil
}

// Disable turns MFA off after re-authentication with password and a current
// TOTP code, wiping the secret and all recovery codes.
func (s *MfaService) Disable(ctx context.Context, accountID, password, totpCode string) error {
	account, err := s.reauthenticate(ctx, accountID, password, totpCode)
	if err != nil {
		return err
	}
	if !account.MfaEnabled {
		return apperr.New(apperr.CodeMfaSetupIncomplete, "multi-factor authentication is not enabled")
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Accounts(tx).ClearMfa(ctx, accountID); err != nil {
			return err
		}
		return s.repos.RecoveryCodes(tx).DeleteAll(ctx, accountID)
	})
	if err != nil {
		return apperr.Internal(err)
	}

	s.logger.Info(ctx, "mfa disabled", "account_id", accountID)
	return nil
}

func (s *MfaService) checkTotp(code, secret string) error {
	// The validator rejects non-6-digit input with an error; that is a
	// mismatch from the caller's point of view, not a server fault.
	ok, err := validateTotp(strings.TrimSpace(code), secret, time.Now())
	if err != nil || !ok {
		return apperr.New(apperr.CodeInvalidMfa, "invalid multi-factor code")
	}
	return nil
}

func (s *MfaService) spendRecoveryCode(ctx context.Context, accountID, code string) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != recoveryCodeLength {
		return apperr.New(apperr.CodeInvalidMfa, "invalid multi-factor code")
	}

	codeRepo := s.repos.RecoveryCodes(s.db)
	candidates, err := codeRepo.ListUnused(ctx, accountID)
	if err != nil {
		return apperr.Internal(err)
	}

	for _, c := range candidates {
		ok, err := s.hasher.Verify(c.CodeHash, normalized)
		if err != nil {
			return apperr.Internal(err)
		}
		if !ok {
			continue
		}
		if err := codeRepo.MarkUsed(ctx, c.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// Lost a race against a concurrent login spending the same code.
				return apperr.New(apperr.CodeInvalidMfa, "invalid multi-factor code")
			}
			return apperr.Internal(err)
		}
		s.logger.Warn(ctx, "recovery code spent", "account_id", accountID)
		return nil
	}
	return apperr.New(apperr.CodeInvalidMfa, "invalid multi-factor code")
}

func (s *MfaService) reauthenticate(ctx context.Context, accountID, password, totpCode string) (*models.Account, error) {
	account, err := s.repos.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ok, err := s.hasher.Verify(account.PasswordHash, password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeInvalidCredentials, "invalid password")
	}

	if account.TotpSecret != "" {
		if err := s.checkTotp(totpCode, account.TotpSecret); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *MfaService) mintRecoveryCodes() (IssuedRecoveryCodes, []string, error) {
	plaintexts := make(IssuedRecoveryCodes, 0, recoveryCodeCount)
	hashes := make([]string, 0, recoveryCodeCount)
	for i := 0; i < recoveryCodeCount; i++ {
		code, err := common.MakeRecoveryCode(recoveryCodeLength)
		if err != nil {
			return nil, nil, err
		}
		hash, err := s.hasher.Hash(code)
		if err != nil {
			return nil, nil, err
		}
		plaintexts = append(plaintexts, code)
		hashes = append(hashes, hash)
	}
	return plaintexts, hashes, nil
}
