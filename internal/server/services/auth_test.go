package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/server/auth"
	"github.com/openvault/openvault/internal/server/config"
	"github.com/openvault/openvault/internal/server/models"
)

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) VerifyLogin(ctx context.Context, account *models.Account, totpCode, recoveryCode string) error {
	f.calls++
	return f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JWTSecret = "test-secret"
	return cfg
}

func newAuthService(rm *fakeRepoManager, verifier LoginVerifier) *AuthService {
	return NewAuthService(nil, rm, testConfig(), plainHasher{}, verifier, nopLogger{})
}

func seedAccount(rm *fakeRepoManager, email, password string, mfa bool) *models.Account {
	a := &models.Account{
		ID: "acc-" + email, Email: email, Name: "Test", Role: "user",
		PasswordHash: "h:" + password, MfaEnabled: mfa,
	}
	if mfa {
		a.TotpSecret = "SECRET"
	}
	rm.accounts.add(a)
	return a
}

func TestRegister(t *testing.T) {
	rm := newFakeRepoManager()
	svc := newAuthService(rm, &fakeVerifier{})

	result, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.c", Name: "Alice", Password: "pw123456"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Account.ID)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Equal(t, "h:pw123456", rm.accounts.byEmail["a@b.c"].PasswordHash)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@b.c", Name: "Other", Password: "different1"})
	assert.Equal(t, apperr.CodeEmailExists, apperr.CodeOf(err))
}

func TestLogin_UnknownAndWrongPasswordLookAlike(t *testing.T) {
	rm := newFakeRepoManager()
	seedAccount(rm, "a@b.c", "right", false)
	svc := newAuthService(rm, &fakeVerifier{})

	_, errUnknown := svc.Login(context.Background(), LoginInput{Email: "nobody@b.c", Password: "right"})
	_, errWrong := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "wrong"})

	assert.Equal(t, apperr.CodeInvalidCredentials, apperr.CodeOf(errUnknown))
	assert.Equal(t, apperr.CodeInvalidCredentials, apperr.CodeOf(errWrong))
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_Success(t *testing.T) {
	rm := newFakeRepoManager()
	seedAccount(rm, "a@b.c", "right", false)
	svc := newAuthService(rm, &fakeVerifier{})

	result, err := svc.Login(context.Background(), LoginInput{
		Email: "a@b.c", Password: "right", IPAddress: "1.2.3.4", UserAgent: "curl/8",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.Len(t, result.Tokens.RefreshToken, 64)
	assert.Equal(t, "a@b.c", result.Account.Email)

	claims, err := auth.ParseToken(result.Tokens.AccessToken, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "acc-a@b.c", claims.Subject)
	assert.Equal(t, "a@b.c", claims.Email)

	session := rm.sessions.byToken[result.Tokens.RefreshToken]
	require.NotNil(t, session)
	assert.Equal(t, "1.2.3.4", session.IPAddress)
	assert.Equal(t, "curl/8", session.UserAgent)
}

func TestLogin_MfaGate(t *testing.T) {
	rm := newFakeRepoManager()
	seedAccount(rm, "a@b.c", "right", true)

	t.Run("no code yields the challenge, not a session", func(t *testing.T) {
		verifier := &fakeVerifier{}
		svc := newAuthService(rm, verifier)

		_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "right"})
		assert.Equal(t, apperr.CodeMfaRequired, apperr.CodeOf(err))
		assert.Zero(t, verifier.calls)
		assert.Empty(t, rm.sessions.byToken)
	})

	t.Run("wrong password wins over the mfa challenge", func(t *testing.T) {
		verifier := &fakeVerifier{}
		svc := newAuthService(rm, verifier)

		_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "wrong"})
		assert.Equal(t, apperr.CodeInvalidCredentials, apperr.CodeOf(err))
		assert.Zero(t, verifier.calls)
	})

	t.Run("verifier failure blocks the session", func(t *testing.T) {
		verifier := &fakeVerifier{err: apperr.New(apperr.CodeInvalidMfa, "invalid multi-factor code")}
		svc := newAuthService(rm, verifier)

		_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "right", TotpCode: "000000"})
		assert.Equal(t, apperr.CodeInvalidMfa, apperr.CodeOf(err))
		assert.Empty(t, rm.sessions.byToken)
	})

	t.Run("verifier success issues the session", func(t *testing.T) {
		verifier := &fakeVerifier{}
		svc := newAuthService(rm, verifier)

		result, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "right", TotpCode: "123456"})
		require.NoError(t, err)
		assert.Equal(t, 1, verifier.calls)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
	})
}

func TestRefresh_RotatesAndSpendsToken(t *testing.T) {
	rm := newFakeRepoManager()
	seedAccount(rm, "a@b.c", "right", false)
	svc := newAuthService(rm, &fakeVerifier{})

	result, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "right"})
	require.NoError(t, err)
	old := result.Tokens.RefreshToken

	pair, err := svc.Refresh(context.Background(), old)
	require.NoError(t, err)
	assert.NotEqual(t, old, pair.RefreshToken)

	// The spent token is dead; only the replacement works.
	_, err = svc.Refresh(context.Background(), old)
	assert.Equal(t, apperr.CodeInvalidRefresh, apperr.CodeOf(err))

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Rejects(t *testing.T) {
	rm := newFakeRepoManager()
	svc := newAuthService(rm, &fakeVerifier{})

	_, err := svc.Refresh(context.Background(), "")
	assert.Equal(t, apperr.CodeInvalidRefresh, apperr.CodeOf(err))

	_, err = svc.Refresh(context.Background(), "unknown-token")
	assert.Equal(t, apperr.CodeInvalidRefresh, apperr.CodeOf(err))
}

func TestRefresh_ExpiredSession(t *testing.T) {
	rm := newFakeRepoManager()
	seedAccount(rm, "a@b.c", "right", false)
	rm.sessions.byToken["stale"] = &models.Session{
		AccountID: "acc-a@b.c", RefreshToken: "stale", ExpiresAt: time.Now().Add(-time.Minute),
	}
	svc := newAuthService(rm, &fakeVerifier{})

	_, err := svc.Refresh(context.Background(), "stale")
	assert.Equal(t, apperr.CodeInvalidRefresh, apperr.CodeOf(err))
}

func TestLogout_Idempotent(t *testing.T) {
	rm := newFakeRepoManager()
	seedAccount(rm, "a@b.c", "right", false)
	svc := newAuthService(rm, &fakeVerifier{})

	result, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "right"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), result.Tokens.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), result.Tokens.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), ""))

	_, err = svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	assert.Equal(t, apperr.CodeInvalidRefresh, apperr.CodeOf(err))
}
