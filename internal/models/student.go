package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student represents a student known to the counseling service
type Student struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	NationalID string    `gorm:"unique;not null;column:national_id" json:"national_id"` // TC kimlik no, the portal's record key
	FirstName  string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName   string    `gorm:"not null;column:last_name" json:"last_name"`
	ClassName  string    `gorm:"column:class_name" json:"class_name"` // e.g. "9-A"
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Student) TableName() string {
	return "students"
}
