package transfer

import (
	"context"
	"time"

	"rehbersync/internal/portal"
	"rehbersync/internal/progress"
)

// TransferRequest represents a request to submit a batch of counseling
// sessions to the portal, in the order given.
type TransferRequest struct {
	SessionIDs      []string `json:"sessionIds"`
	InstitutionCode string   `json:"institutionCode,omitempty"`
	SchoolYear      string   `json:"schoolYear,omitempty"`
}

// NavigationParams carries the portal-navigation parameters of a request to
// the driver factory.
type NavigationParams struct {
	InstitutionCode string
	SchoolYear      string
}

// StartResult is returned when a transfer has been accepted. Processing is
// asynchronous; the caller observes it via status polling or the event stream.
type StartResult struct {
	TransferID    string `json:"transferId"`
	TotalSessions int    `json:"totalSessions"`
}

// StatusSnapshot is a point-in-time copy of a job's observable state.
type StatusSnapshot struct {
	TransferID string            `json:"transferId"`
	Status     Status            `json:"status"`
	Progress   progress.Snapshot `json:"progress"`
	Errors     []ItemError       `json:"errors"`
	StartedAt  time.Time         `json:"startedAt"`
	EndedAt    *time.Time        `json:"endedAt,omitempty"`
}

// Driver is the narrow, sequential API the manager drives the browser
// through. Exactly one driver instance exists per job and its methods are
// never called concurrently.
//
// SubmitItem returns an error only when the browser session itself is broken;
// ordinary per-item problems come back inside the outcome.
type Driver interface {
	Initialize(ctx context.Context) error
	WaitForLogin(ctx context.Context) error
	NavigateToDataEntry(ctx context.Context) error
	SubmitItem(ctx context.Context, fields portal.SessionFields) (portal.SessionOutcome, error)
	Close() error
}

// DriverFactory builds the driver for one job. Injected so the orchestrator
// is testable without a real browser.
type DriverFactory func(params NavigationParams) (Driver, error)

// FieldSource resolves a session reference into the portal's flat field set
// and records confirmed submissions. The manager treats it as an opaque
// input producer.
type FieldSource interface {
	Fields(sessionID string) (portal.SessionFields, error)
	MarkTransferred(sessionID, confirmation string) error
}
