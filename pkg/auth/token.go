package auth

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidIDToken is returned when an OAuth id token fails verification.
	ErrInvalidIDToken = errors.New("invalid id token")
	// ErrNotConfigured is returned for OAuth sign-in when no verification key is configured.
	ErrNotConfigured = errors.New("oauth sign-in is not configured")
)

// GoogleIssuers are the issuer values Google puts in its id tokens.
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// IDTokenClaims are the claims read from an OAuth id token.
type IDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier checks id tokens issued to this app's OAuth client.
type TokenVerifier struct {
	key      any
	methods  []string
	audience string
	issuers  []string
}

// NewRSATokenVerifier verifies RS256 tokens against a PEM encoded public key.
func NewRSATokenVerifier(publicKeyPEM []byte, audience string, issuers []string) (*TokenVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("error parsing oauth public key: %w", err)
	}

	return &TokenVerifier{
		key:      key,
		methods:  []string{jwt.SigningMethodRS256.Alg()},
		audience: audience,
		issuers:  issuers,
	}, nil
}

// NewHMACTokenVerifier verifies HS256 tokens with a shared secret.
func NewHMACTokenVerifier(secret []byte, audience string, issuers []string) *TokenVerifier {
	return &TokenVerifier{
		key:      secret,
		methods:  []string{jwt.SigningMethodHS256.Alg()},
		audience: audience,
		issuers:  issuers,
	}
}

// Verify checks the token signature, audience, issuer and expiry and returns its claims.
func (v *TokenVerifier) Verify(idToken string) (*IDTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &IDTokenClaims{}

	token, err := jwt.ParseWithClaims(idToken, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token has expired", ErrInvalidIDToken)
		}

		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidIDToken
	}

	if len(v.issuers) > 0 && !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidIDToken, claims.Issuer)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidIDToken)
	}

	return claims, nil
}
