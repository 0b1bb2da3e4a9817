package transfer

import (
	"fmt"
	"strings"

	"rehbersync/internal/models"
	"rehbersync/internal/portal"
)

// portalDateLayout is the DD.MM.YYYY format the portal's date inputs expect.
const portalDateLayout = "02.01.2006"

// MapSession flattens a counseling session and its student into the field
// set the portal form consumes. Validation happens here so a bad record is
// rejected before the browser touches the form.
func MapSession(sess models.CounselingSession, student models.Student) (portal.SessionFields, error) {
	if strings.TrimSpace(student.NationalID) == "" {
		return portal.SessionFields{}, fmt.Errorf("student %s has no national ID", student.ID)
	}
	if sess.SessionDate.IsZero() {
		return portal.SessionFields{}, fmt.Errorf("session %s has no date", sess.ID)
	}
	if strings.TrimSpace(sess.WorkArea) == "" || strings.TrimSpace(sess.Topic) == "" {
		return portal.SessionFields{}, fmt.Errorf("session %s is missing work area or topic", sess.ID)
	}

	return portal.SessionFields{
		SessionRef:        sess.ID,
		StudentNationalID: student.NationalID,
		StudentName:       strings.TrimSpace(student.FirstName + " " + student.LastName),
		ClassName:         student.ClassName,
		SessionDate:       sess.SessionDate.Format(portalDateLayout),
		WorkArea:          sess.WorkArea,
		Topic:             sess.Topic,
		Method:            sess.Method,
		Summary:           sess.Summary,
	}, nil
}
