package auth_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matt-steen/todostream/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	clientID = "test-client.apps.googleusercontent.com"
	secret   = "test-secret"
)

func getService(t *testing.T) *auth.Service {
	t.Helper()

	repo, err := auth.OpenAccounts(filepath.Join(t.TempDir(), "accounts.sqlite"))
	require.NoError(t, err)

	t.Cleanup(func() { repo.Close() })

	verifier := auth.NewHMACTokenVerifier([]byte(secret), clientID, auth.GoogleIssuers)

	return auth.NewService(repo, auth.NewPasswordHasher(bcrypt.MinCost), verifier)
}

func idToken(t *testing.T, subject, audience string, expires time.Time) string {
	t.Helper()

	claims := auth.IDTokenClaims{
		Email: "Ada@Example.com",
		Name:  "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

// recorder collects every identity an observer is told about.
type recorder struct {
	seen []*auth.Identity
}

func (r *recorder) observe(identity *auth.Identity) {
	r.seen = append(r.seen, identity)
}

func (r *recorder) last() *auth.Identity {
	return r.seen[len(r.seen)-1]
}

func TestObserveIdentityFiresImmediately(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	service := getService(t)
	rec := &recorder{}

	unsubscribe := service.ObserveIdentity(rec.observe)
	defer unsubscribe()

	assert.Len(rec.seen, 1)
	assert.Nil(rec.seen[0])
}

func TestSignUpSignsIn(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	service := getService(t)
	rec := &recorder{}
	defer service.ObserveIdentity(rec.observe)()

	err := service.SignUp(context.Background(), " Ada@Example.com ", "hunter22")
	assert.Nil(err)

	assert.Len(rec.seen, 2)
	assert.NotNil(rec.last())
	assert.Equal("ada@example.com", rec.last().Email)
	assert.Equal(auth.ProviderPassword, rec.last().Provider)
	assert.NotEmpty(rec.last().UID)
	assert.Equal(rec.last(), service.CurrentIdentity())
}

func TestSignUpValidation(t *testing.T) {
	t.Parallel()

	service := getService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "missing @", email: "adaexample.com", password: "hunter22", want: auth.ErrInvalidEmail},
		{name: "empty email", email: "", password: "hunter22", want: auth.ErrInvalidEmail},
		{name: "short password", email: "ada@example.com", password: "12345", want: auth.ErrWeakPassword},
		{name: "long password", email: "ada@example.com", password: string(make([]byte, 73)), want: auth.ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.SignUp(ctx, tt.email, tt.password)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	assert.Nil(t, service.CurrentIdentity())
}

func TestSignUpDuplicate(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	service := getService(t)
	ctx := context.Background()

	assert.Nil(service.SignUp(ctx, "ada@example.com", "hunter22"))

	err := service.SignUp(ctx, "ADA@example.com", "hunter23")
	assert.True(errors.Is(err, auth.ErrAccountExists))
	assert.Equal("an account with this email already exists", err.Error())
}

func TestSignInAndOut(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	service := getService(t)
	ctx := context.Background()

	assert.Nil(service.SignUp(ctx, "ada@example.com", "hunter22"))
	uid := service.CurrentIdentity().UID

	rec := &recorder{}
	defer service.ObserveIdentity(rec.observe)()

	assert.Nil(service.SignOut(ctx))
	assert.Nil(rec.last())

	err := service.SignIn(ctx, "ada@example.com", "wrong-password")
	assert.True(errors.Is(err, auth.ErrInvalidCredentials))
	assert.Nil(service.CurrentIdentity())

	err = service.SignIn(ctx, "nobody@example.com", "hunter22")
	assert.True(errors.Is(err, auth.ErrInvalidCredentials))

	assert.Nil(service.SignIn(ctx, "Ada@Example.com", "hunter22"))
	assert.Equal(uid, rec.last().UID)
	assert.Len(rec.seen, 3)
}

func TestUnsubscribedObserverIsNotCalled(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	service := getService(t)
	rec := &recorder{}

	unsubscribe := service.ObserveIdentity(rec.observe)
	unsubscribe()

	assert.Nil(service.SignUp(context.Background(), "ada@example.com", "hunter22"))
	assert.Len(rec.seen, 1)
}

func TestExchangeOAuthCredential(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	service := getService(t)
	ctx := context.Background()

	token := idToken(t, "google-subject-1", clientID, time.Now().Add(time.Hour))

	assert.Nil(service.ExchangeOAuthCredential(ctx, token))

	identity := service.CurrentIdentity()
	assert.NotNil(identity)
	assert.Equal("ada@example.com", identity.Email)
	assert.Equal("Ada", identity.DisplayName)
	assert.Equal(auth.ProviderGoogle, identity.Provider)

	// the same subject signs in to the same account
	assert.Nil(service.SignOut(ctx))
	assert.Nil(service.ExchangeOAuthCredential(ctx, token))
	assert.Equal(identity.UID, service.CurrentIdentity().UID)
}

func TestExchangeOAuthCredentialRejectsBadTokens(t *testing.T) {
	t.Parallel()

	service := getService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong audience", token: idToken(t, "sub", "someone-else", time.Now().Add(time.Hour))},
		{name: "expired", token: idToken(t, "sub", clientID, time.Now().Add(-time.Hour))},
		{name: "missing subject", token: idToken(t, "", clientID, time.Now().Add(time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ExchangeOAuthCredential(ctx, tt.token)
			assert.True(t, errors.Is(err, auth.ErrInvalidIDToken), "got %v", err)
		})
	}

	assert.Nil(t, service.CurrentIdentity())
}

func TestExchangeOAuthCredentialNotConfigured(t *testing.T) {
	t.Parallel()

	repo, err := auth.OpenAccounts(filepath.Join(t.TempDir(), "accounts.sqlite"))
	require.NoError(t, err)

	defer repo.Close()

	service := auth.NewService(repo, auth.NewPasswordHasher(bcrypt.MinCost), nil)

	err = service.ExchangeOAuthCredential(context.Background(), "anything")
	assert.True(t, errors.Is(err, auth.ErrNotConfigured))
}

func TestPasswordHasher(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter22")
	assert.Nil(err)
	assert.NotEqual("hunter22", hash)
	assert.True(hasher.Verify("hunter22", hash))
	assert.False(hasher.Verify("hunter23", hash))
}
