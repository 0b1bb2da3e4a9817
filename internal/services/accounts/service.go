package accounts

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rehbersync/internal/crypto"
	"rehbersync/internal/models"
)

// ErrNotConfigured is returned when no portal account has been saved yet.
var ErrNotConfigured = errors.New("portal account not configured")

// Info is the redacted view of the stored account.
type Info struct {
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service stores the counselor's portal login. A single account is kept;
// saving a new one replaces it.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Upsert encrypts and stores the portal credentials.
func (s *Service) Upsert(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	enc, err := crypto.EncryptPassword(password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	var existing models.PortalAccount
	err = s.db.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account := models.PortalAccount{Username: username, PasswordEnc: enc}
		if err := s.db.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to save portal account: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query portal account: %w", err)
	}

	existing.Username = username
	existing.PasswordEnc = enc
	if err := s.db.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update portal account: %w", err)
	}
	return nil
}

// Info returns the stored username without the secret.
func (s *Service) Info() (Info, error) {
	var account models.PortalAccount
	if err := s.db.First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Info{}, ErrNotConfigured
		}
		return Info{}, fmt.Errorf("failed to query portal account: %w", err)
	}
	return Info{Username: account.Username, UpdatedAt: account.UpdatedAt}, nil
}

// Credentials returns the decrypted login for the automation driver.
func (s *Service) Credentials() (username, password string, err error) {
	var account models.PortalAccount
	if err := s.db.First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrNotConfigured
		}
		return "", "", fmt.Errorf("failed to query portal account: %w", err)
	}

	plain, err := crypto.DecryptPassword(account.PasswordEnc)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt portal password: %w", err)
	}
	return account.Username, plain, nil
}
