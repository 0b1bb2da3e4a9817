package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PortalAccount holds the counselor's MEBBIS login. The password is stored
// AES-GCM encrypted; the portal's second factor (SMS/e-Devlet) is always
// performed by the human during the transfer's login wait.
type PortalAccount struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"unique;not null" json:"username"`
	PasswordEnc string    `gorm:"not null;column:password_enc" json:"-"` // Encrypted, never expose in JSON
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (pa *PortalAccount) BeforeCreate(tx *gorm.DB) error {
	if pa.ID == "" {
		pa.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (PortalAccount) TableName() string {
	return "portal_accounts"
}
