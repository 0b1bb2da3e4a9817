package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CounselingSession represents one recorded counseling interview.
// TransferredAt/MebbisRef are stamped after a confirmed portal submission;
// a null TransferredAt marks the session as pending for scheduled batches.
type CounselingSession struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	StudentID     string     `gorm:"not null;index;column:student_id" json:"student_id"`
	Student       Student    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	SessionDate   time.Time  `gorm:"not null;column:session_date" json:"session_date"`
	WorkArea      string     `gorm:"not null;column:work_area" json:"work_area"`   // e.g. "Bireysel Görüşme"
	Topic         string     `gorm:"not null" json:"topic"`                        // e.g. "Akademik Gelişim"
	Method        string     `json:"method"`                                       // e.g. "Yüz yüze"
	Summary       string     `gorm:"type:text" json:"summary"`
	MebbisRef     string     `gorm:"column:mebbis_ref" json:"mebbis_ref,omitempty"`
	TransferredAt *time.Time `gorm:"column:transferred_at" json:"transferred_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (cs *CounselingSession) BeforeCreate(tx *gorm.DB) error {
	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (CounselingSession) TableName() string {
	return "counseling_sessions"
}
