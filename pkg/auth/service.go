package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// These constants name the supported sign-in providers.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

const (
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
)

var (
	// ErrInvalidCredentials is returned when an email and password don't match an account.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword is returned when a new password is too short.
	ErrWeakPassword = fmt.Errorf("password should be at least %d characters", minPasswordLength)
	// ErrPasswordTooLong is returned when a new password exceeds bcrypt's limit.
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d characters", maxPasswordLength)
)

// Identity is the signed-in account as seen by the rest of the app.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	Provider    string
}

// Name returns the best label for the identity: its email, else its display name.
func (i *Identity) Name() string {
	if i.Email != "" {
		return i.Email
	}

	return i.DisplayName
}

// Service signs accounts in and out and tells observers about identity changes.
type Service struct {
	repo     *AccountRepository
	hasher   *PasswordHasher
	verifier *TokenVerifier

	mu           sync.Mutex
	current      *Identity
	observers    map[int]func(*Identity)
	nextObserver int

	// deliverMu keeps notifications in the order the identity changed.
	deliverMu sync.Mutex
}

// NewService creates a Service. verifier may be nil, which disables OAuth sign-in.
func NewService(repo *AccountRepository, hasher *PasswordHasher, verifier *TokenVerifier) *Service {
	return &Service{
		repo:      repo,
		hasher:    hasher,
		verifier:  verifier,
		observers: map[int]func(*Identity){},
	}
}

// ObserveIdentity calls fn with the current identity (nil when signed out) right away and
// again on every change, until the returned function is called.
func (s *Service) ObserveIdentity(fn func(*Identity)) func() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// CurrentIdentity returns the signed-in identity, or nil.
func (s *Service) CurrentIdentity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

func (s *Service) setIdentity(identity *Identity) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.current = identity
	observers := make([]func(*Identity), 0, len(s.observers))

	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(identity)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	return nil
}

// SignUp creates a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}

	_, err := s.repo.FindBySubject(ctx, ProviderPassword, email)
	if err == nil {
		return ErrAccountExists
	}

	if !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	account := &Account{
		UID:          uuid.New().String(),
		Provider:     ProviderPassword,
		Subject:      email,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return err
	}

	log.Info().Str("uid", account.UID).Msg("created password account")

	s.setIdentity(account.Identity())

	return nil
}

// SignIn signs in the password account for email.
func (s *Service) SignIn(ctx context.Context, email, password string) error {
	account, err := s.repo.FindBySubject(ctx, ProviderPassword, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInvalidCredentials
		}

		return err
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	log.Info().Str("uid", account.UID).Msg("signed in")

	s.setIdentity(account.Identity())

	return nil
}

// SignOut clears the current identity.
func (s *Service) SignOut(_ context.Context) error {
	log.Info().Msg("signed out")

	s.setIdentity(nil)

	return nil
}

// ExchangeOAuthCredential verifies a Google id token and signs in its account, creating the
// account on first use.
func (s *Service) ExchangeOAuthCredential(ctx context.Context, idToken string) error {
	if s.verifier == nil {
		return ErrNotConfigured
	}

	claims, err := s.verifier.Verify(idToken)
	if err != nil {
		return err
	}

	email := normalizeEmail(claims.Email)

	account, err := s.repo.FindBySubject(ctx, ProviderGoogle, claims.Subject)

	switch {
	case errors.Is(err, ErrAccountNotFound):
		account = &Account{
			UID:         uuid.New().String(),
			Provider:    ProviderGoogle,
			Subject:     claims.Subject,
			Email:       email,
			DisplayName: claims.Name,
		}

		if err := s.repo.Create(ctx, account); err != nil {
			return err
		}

		log.Info().Str("uid", account.UID).Msg("created google account")
	case err != nil:
		return err
	case account.Email != email || account.DisplayName != claims.Name:
		if err := s.repo.UpdateProfile(ctx, account.UID, email, claims.Name); err != nil {
			log.Warn().Err(err).Str("uid", account.UID).Msg("couldn't refresh account profile")
		} else {
			account.Email = email
			account.DisplayName = claims.Name
		}
	}

	log.Info().Str("uid", account.UID).Msg("signed in with google")

	s.setIdentity(account.Identity())

	return nil
}
