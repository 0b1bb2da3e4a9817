package transfer

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"rehbersync/internal/models"
	"rehbersync/internal/portal"
)

// SessionStore resolves session IDs against the database. It implements
// FieldSource for the manager and feeds the scheduler its pending batches.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Fields loads a session with its student and maps it to portal fields.
func (s *SessionStore) Fields(sessionID string) (portal.SessionFields, error) {
	var sess models.CounselingSession
	if err := s.db.Preload("Student").First(&sess, "id = ?", sessionID).Error; err != nil {
		return portal.SessionFields{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return MapSession(sess, sess.Student)
}

// MarkTransferred stamps a session with the portal confirmation. Called after
// the portal has accepted the record, so a failure here leaves the portal and
// the local database out of sync; the caller logs it and moves on.
func (s *SessionStore) MarkTransferred(sessionID, confirmation string) error {
	now := time.Now()
	result := s.db.Model(&models.CounselingSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"transferred_at": &now,
			"mebbis_ref":     confirmation,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark session %s transferred: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// PendingIDs returns sessions never confirmed by the portal, oldest first.
// Used by scheduled transfers to build their batch.
func (s *SessionStore) PendingIDs(limit int) ([]string, error) {
	q := s.db.Model(&models.CounselingSession{}).
		Where("transferred_at IS NULL").
		Order("session_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending sessions: %w", err)
	}
	return ids, nil
}
