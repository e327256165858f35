package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrAccountNotFound is returned when no account matches a lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when signing up with an email that is already registered.
	ErrAccountExists = errors.New("an account with this email already exists")
)

// Account is a stored sign-in method. Password accounts use the normalized email as
// their subject; OAuth accounts use the provider's subject claim.
type Account struct {
	UID          string `gorm:"primaryKey;type:text"`
	Provider     string `gorm:"not null;type:text;uniqueIndex:idx_account_provider_subject"`
	Subject      string `gorm:"not null;type:text;uniqueIndex:idx_account_provider_subject"`
	Email        string `gorm:"index;type:text"`
	DisplayName  string `gorm:"type:text"`
	PasswordHash string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the Account entity.
func (Account) TableName() string {
	return "account"
}

// Identity returns the identity this account signs in as.
func (a *Account) Identity() *Identity {
	return &Identity{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Provider:    a.Provider,
	}
}

// AccountRepository handles account persistence using GORM.
type AccountRepository struct {
	db *gorm.DB
}

// OpenAccounts opens the sqlite database at filename and migrates the account table.
func OpenAccounts(filename string) (*AccountRepository, error) {
	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening account db at %s: %w", filename, err)
	}

	return NewAccountRepository(db)
}

// NewAccountRepository wraps an open GORM handle and migrates the account table.
func NewAccountRepository(db *gorm.DB) (*AccountRepository, error) {
	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("error migrating account table: %w", err)
	}

	return &AccountRepository{db: db}, nil
}

// Close closes the underlying connection.
func (r *AccountRepository) Close() error {
	conn, err := r.db.DB()
	if err != nil {
		return err
	}

	return conn.Close()
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *Account) error {
	result := r.db.WithContext(ctx).Create(account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrAccountExists
		}

		return fmt.Errorf("error creating account: %w", result.Error)
	}

	return nil
}

// FindBySubject finds the account for a provider and subject.
func (r *AccountRepository) FindBySubject(ctx context.Context, provider, subject string) (*Account, error) {
	var account Account

	result := r.db.WithContext(ctx).First(&account, "provider = ? AND subject = ?", provider, subject)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}

		return nil, fmt.Errorf("error finding account: %w", result.Error)
	}

	return &account, nil
}

// UpdateProfile refreshes the email and display name stored for an account.
func (r *AccountRepository) UpdateProfile(ctx context.Context, uid, email, displayName string) error {
	result := r.db.WithContext(ctx).Model(&Account{}).Where("uid = ?", uid).
		Updates(map[string]any{"email": email, "display_name": displayName})
	if result.Error != nil {
		return fmt.Errorf("error updating account %s: %w", uid, result.Error)
	}

	return nil
}
