package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehbersync/internal/models"
)

func TestMapSession(t *testing.T) {
	student := models.Student{
		ID:         "stu-1",
		NationalID: "12345678901",
		FirstName:  "Ayşe",
		LastName:   "Yılmaz",
		ClassName:  "9-A",
	}
	sess := models.CounselingSession{
		ID:          "sess-1",
		StudentID:   "stu-1",
		SessionDate: time.Date(2026, time.January, 15, 0, 0, 0, 0, time.Local),
		WorkArea:    "Bireysel Görüşme",
		Topic:       "Akademik Gelişim",
		Method:      "Yüz yüze",
		Summary:     "Ders çalışma planı gözden geçirildi.",
	}

	t.Run("maps full record", func(t *testing.T) {
		fields, err := MapSession(sess, student)
		require.NoError(t, err)
		assert.Equal(t, "sess-1", fields.SessionRef)
		assert.Equal(t, "12345678901", fields.StudentNationalID)
		assert.Equal(t, "Ayşe Yılmaz", fields.StudentName)
		assert.Equal(t, "9-A", fields.ClassName)
		assert.Equal(t, "15.01.2026", fields.SessionDate)
		assert.Equal(t, "Bireysel Görüşme", fields.WorkArea)
	})

	t.Run("rejects student without national ID", func(t *testing.T) {
		bad := student
		bad.NationalID = "  "
		_, err := MapSession(sess, bad)
		assert.ErrorContains(t, err, "national ID")
	})

	t.Run("rejects session without date", func(t *testing.T) {
		bad := sess
		bad.SessionDate = time.Time{}
		_, err := MapSession(bad, student)
		assert.ErrorContains(t, err, "no date")
	})

	t.Run("rejects session without topic", func(t *testing.T) {
		bad := sess
		bad.Topic = ""
		_, err := MapSession(bad, student)
		assert.ErrorContains(t, err, "work area or topic")
	})
}
