package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvault/openvault/internal/apperr"
)

func newTxMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newMfaService(db *sql.DB, rm *fakeRepoManager) *MfaService {
	return NewMfaService(db, rm, testConfig(), plainHasher{}, nopLogger{})
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestBeginEnrollment(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", false)
	account.TotpSecret = ""
	svc := newMfaService(nil, rm)

	info, err := svc.BeginEnrollment(context.Background(), account.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, info.Secret)
	assert.Contains(t, info.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, info.OtpauthURL, "OpenVault")
	assert.Equal(t, info.Secret, rm.accounts.byID[account.ID].TotpSecret)
}

func TestBeginEnrollment_AlreadyEnabled(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	svc := newMfaService(nil, rm)

	_, err := svc.BeginEnrollment(context.Background(), account.ID)
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
}

func TestConfirmEnrollment(t *testing.T) {
	db, mock := newTxMockDB(t)
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", false)
	svc := newMfaService(db, rm)

	info, err := svc.BeginEnrollment(context.Background(), account.ID)
	require.NoError(t, err)

	t.Run("wrong code keeps mfa off", func(t *testing.T) {
		_, err := svc.ConfirmEnrollment(context.Background(), account.ID, "000000")
		assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
		assert.False(t, rm.accounts.byID[account.ID].MfaEnabled)
	})

	t.Run("valid code enables mfa and issues recovery codes", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		codes, err := svc.ConfirmEnrollment(context.Background(), account.ID, currentCode(t, info.Secret))
		require.NoError(t, err)
		require.Len(t, codes, 10)
		for _, code := range codes {
			assert.Len(t, code, 8)
			for _, r := range code {
				assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(r))
			}
		}
		assert.True(t, rm.accounts.byID[account.ID].MfaEnabled)
		assert.Len(t, rm.recovery.codes, 10)
	})
}

func TestConfirmEnrollment_NotStarted(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", false)
	account.TotpSecret = ""
	svc := newMfaService(nil, rm)

	_, err := svc.ConfirmEnrollment(context.Background(), account.ID, "123456")
	assert.Equal(t, apperr.CodeMfaSetupIncomplete, apperr.CodeOf(err))
}

func TestVerifyLogin_Totp(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	secret := strings.Repeat("A", 32)
	account.TotpSecret = secret
	svc := newMfaService(nil, rm)

	err := svc.VerifyLogin(context.Background(), account, currentCode(t, secret), "")
	assert.NoError(t, err)

	err = svc.VerifyLogin(context.Background(), account, "000000", "")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
}

func TestVerifyLogin_TotpSkewWindow(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	secret := strings.Repeat("D", 32)
	account.TotpSecret = secret
	svc := newMfaService(nil, rm)

	// codes from the adjacent 30-second steps stay valid
	for _, offset := range []time.Duration{-30 * time.Second, 30 * time.Second} {
		code, err := totp.GenerateCode(secret, time.Now().Add(offset))
		require.NoError(t, err)
		assert.NoError(t, svc.VerifyLogin(context.Background(), account, code, ""))
	}

	// two steps out is past the tolerance window
	stale, err := totp.GenerateCode(secret, time.Now().Add(-60*time.Second))
	require.NoError(t, err)
	err = svc.VerifyLogin(context.Background(), account, stale, "")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
}

func TestVerifyLogin_RecoveryCodeInCodeField(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	account.TotpSecret = strings.Repeat("E", 32)
	svc := newMfaService(nil, rm)

	require.NoError(t, rm.recovery.CreateBatch(context.Background(), account.ID, []string{"h:AAAA2222"}))

	// an 8-character value that misses the TOTP window falls back to the
	// recovery codes, lowercase included
	require.NoError(t, svc.VerifyLogin(context.Background(), account, "aaaa2222", ""))

	// consumed by the fallback, so the same code is now refused
	err := svc.VerifyLogin(context.Background(), account, "AAAA2222", "")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))

	// malformed input is a mismatch, never an internal failure
	err = svc.VerifyLogin(context.Background(), account, "12345", "")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
	err = svc.VerifyLogin(context.Background(), account, "not-a-code!", "")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
}

func TestVerifyLogin_RecoveryCodeIsSingleUse(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	svc := newMfaService(nil, rm)

	require.NoError(t, rm.recovery.CreateBatch(context.Background(), account.ID, []string{"h:AAAA2222", "h:BBBB3333"}))

	// lowercase input is normalized before matching
	require.NoError(t, svc.VerifyLogin(context.Background(), account, "", "aaaa2222"))

	err := svc.VerifyLogin(context.Background(), account, "", "AAAA2222")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))

	require.NoError(t, svc.VerifyLogin(context.Background(), account, "", "BBBB3333"))
}

func TestVerifyLogin_RecoveryCodeRejects(t *testing.T) {
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	svc := newMfaService(nil, rm)

	require.NoError(t, rm.recovery.CreateBatch(context.Background(), account.ID, []string{"h:AAAA2222"}))

	// wrong length short-circuits before any hashing
	err := svc.VerifyLogin(context.Background(), account, "", "AAA")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))

	err = svc.VerifyLogin(context.Background(), account, "", "XXXX9999")
	assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
}

func TestRegenerateRecoveryCodes(t *testing.T) {
	db, mock := newTxMockDB(t)
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	secret := strings.Repeat("B", 32)
	account.TotpSecret = secret
	svc := newMfaService(db, rm)

	require.NoError(t, rm.recovery.CreateBatch(context.Background(), account.ID, []string{"h:OLDCODE1"}))

	t.Run("wrong password refuses", func(t *testing.T) {
		_, err := svc.RegenerateRecoveryCodes(context.Background(), account.ID, "nope", currentCode(t, secret))
		assert.Equal(t, apperr.CodeInvalidCredentials, apperr.CodeOf(err))
	})

	t.Run("old codes die with the new batch", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		codes, err := svc.RegenerateRecoveryCodes(context.Background(), account.ID, "pw", currentCode(t, secret))
		require.NoError(t, err)
		assert.Len(t, codes, 10)

		err = svc.VerifyLogin(context.Background(), account, "", "OLDCODE1")
		assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))

		require.NoError(t, svc.VerifyLogin(context.Background(), account, "", codes[0]))
	})
}

func TestDisable(t *testing.T) {
	db, mock := newTxMockDB(t)
	rm := newFakeRepoManager()
	account := seedAccount(rm, "a@b.c", "pw", true)
	secret := strings.Repeat("C", 32)
	account.TotpSecret = secret
	svc := newMfaService(db, rm)

	require.NoError(t, rm.recovery.CreateBatch(context.Background(), account.ID, []string{"h:SOMECODE"}))

	t.Run("wrong totp refuses", func(t *testing.T) {
		err := svc.Disable(context.Background(), account.ID, "pw", "000000")
		assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
		assert.True(t, rm.accounts.byID[account.ID].MfaEnabled)
	})

	t.Run("clears secret and recovery codes", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, svc.Disable(context.Background(), account.ID, "pw", currentCode(t, secret)))
		assert.False(t, rm.accounts.byID[account.ID].MfaEnabled)
		assert.Empty(t, rm.accounts.byID[account.ID].TotpSecret)
		assert.Empty(t, rm.recovery.codes)
	})
}
