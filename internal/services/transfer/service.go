package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"rehbersync/internal/portal"
	"rehbersync/internal/progress"
)

var (
	// ErrEmptyBatch is returned when a request names no sessions.
	ErrEmptyBatch = errors.New("transfer request contains no sessions")
	// ErrJobNotFound is returned for unknown (or evicted) transfer IDs.
	ErrJobNotFound = errors.New("transfer job not found")
	// ErrTransferBusy is returned while another transfer holds the browser.
	// The portal permits a single authenticated session at a time.
	ErrTransferBusy = errors.New("another transfer is already in progress")
)

// Manager orchestrates transfer jobs: it owns the registry, sequences calls
// into the driver, applies cancellation and publishes lifecycle/progress
// events. Job state is mutated only here, never by the driver.
type Manager struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	active string // ID of the non-terminal job holding the browser, if any

	source    FieldSource
	channel   progress.Channel
	newDriver DriverFactory
}

// NewManager creates a Manager. The driver factory and event channel are
// injected so the orchestrator runs against fakes in tests.
func NewManager(source FieldSource, channel progress.Channel, newDriver DriverFactory) *Manager {
	return &Manager{
		jobs:      make(map[string]*Job),
		source:    source,
		channel:   channel,
		newDriver: newDriver,
	}
}

// StartTransfer registers a new job and begins the driver lifecycle in the
// background. It returns as soon as the job is registered; it never blocks
// on the browser launch.
func (m *Manager) StartTransfer(req TransferRequest) (*StartResult, error) {
	if len(req.SessionIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := newJob(uuid.New().String(), req.SessionIDs, cancel)

	m.mu.Lock()
	if m.active != "" {
		if current, ok := m.jobs[m.active]; ok && !current.Status.Terminal() {
			m.mu.Unlock()
			cancel()
			return nil, ErrTransferBusy
		}
	}
	m.jobs[job.ID] = job
	m.active = job.ID
	job.Status = StatusConnecting
	job.StartedAt = time.Now()
	m.mu.Unlock()

	m.publishStatus(job.ID, StatusConnecting, "launching browser")

	go m.run(ctx, job, req)

	log.Printf("[%s] Transfer accepted: %d sessions", job.ID, len(req.SessionIDs))
	return &StartResult{TransferID: job.ID, TotalSessions: len(req.SessionIDs)}, nil
}

// CancelTransfer marks a job for cancellation. Cooperative: it takes effect
// before the next item is dispatched, or immediately if the job is blocked
// waiting on the portal login (the wait is interrupted by tearing down the
// browser context). Cancelling a terminal job is a no-op.
func (m *Manager) CancelTransfer(transferID string) error {
	m.mu.Lock()
	job, ok := m.jobs[transferID]
	if !ok {
		m.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status.Terminal() || job.cancelRequested {
		m.mu.Unlock()
		return nil
	}
	job.cancelRequested = true
	cancel := job.cancel
	m.mu.Unlock()

	log.Printf("[%s] Cancellation requested", transferID)
	cancel()
	return nil
}

// GetStatus returns a snapshot of a job's status, progress and errors.
func (m *Manager) GetStatus(transferID string) (StatusSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[transferID]
	if !ok {
		return StatusSnapshot{}, ErrJobNotFound
	}
	return job.snapshot(), nil
}

// CleanupJobs evicts terminal jobs that ended before the retention window.
// Returns the evicted IDs so the caller can drop their event rooms. Nothing
// is persisted; eviction is the only way a job leaves the registry.
func (m *Manager) CleanupJobs(retention time.Duration) []string {
	cutoff := time.Now().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for id, job := range m.jobs {
		if job.Status.Terminal() && job.EndedAt != nil && job.EndedAt.Before(cutoff) {
			delete(m.jobs, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		log.Printf("Evicted %d finished transfer jobs", len(evicted))
	}
	return evicted
}

// run executes the whole driver lifecycle for one job. It is the only
// goroutine that touches the driver; items are processed strictly one at a
// time, in request order.
func (m *Manager) run(ctx context.Context, job *Job, req TransferRequest) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] Panic during transfer: %v", job.ID, r)
			m.finishError(job, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	driver, err := m.newDriver(NavigationParams{
		InstitutionCode: req.InstitutionCode,
		SchoolYear:      req.SchoolYear,
	})
	if err != nil {
		m.finishError(job, fmt.Errorf("failed to prepare automation driver: %w", err))
		return
	}
	defer driver.Close()

	if err := driver.Initialize(ctx); err != nil {
		m.abort(job, "browser launch", err)
		return
	}

	m.setStatus(job, StatusWaitingLogin, "waiting for portal login confirmation")
	if err := driver.WaitForLogin(ctx); err != nil {
		m.abort(job, "portal login", err)
		return
	}

	if err := driver.NavigateToDataEntry(ctx); err != nil {
		m.abort(job, "portal navigation", err)
		return
	}

	m.setStatus(job, StatusRunning, fmt.Sprintf("submitting %d sessions", len(job.Items)))

	for _, ref := range job.Items {
		// Cancellation checkpoint: honored before each dispatch, so no
		// session-start is ever emitted after a cancel has been observed.
		if m.isCancelRequested(job) || ctx.Err() != nil {
			m.finishCancelled(job, "cancelled before next session")
			return
		}

		m.beginItem(job, ref)

		outcome, fatal := m.submitOne(ctx, driver, ref)
		if fatal != nil {
			m.abort(job, fmt.Sprintf("session %s", ref), fatal)
			return
		}
		m.recordOutcome(job, ref, outcome)
	}

	m.finishCompleted(job)
}

// submitOne resolves one session's fields and drives the form-fill cycle.
// Resolution failures are per-item failures, same as portal rejections.
func (m *Manager) submitOne(ctx context.Context, driver Driver, ref string) (portal.SessionOutcome, error) {
	fields, err := m.source.Fields(ref)
	if err != nil {
		return portal.SessionOutcome{
			SessionRef: ref,
			Error:      fmt.Sprintf("failed to resolve session: %v", err),
		}, nil
	}

	outcome, fatal := driver.SubmitItem(ctx, fields)
	if fatal != nil {
		return portal.SessionOutcome{}, fatal
	}
	outcome.SessionRef = ref
	return outcome, nil
}

// beginItem marks ref as in flight and emits session-start plus a progress
// snapshot.
func (m *Manager) beginItem(job *Job, ref string) {
	m.mu.Lock()
	job.Progress.Current = ref
	snap := job.Progress
	m.mu.Unlock()

	m.channel.Publish(job.ID, progress.Event{Type: progress.EventSessionStart, SessionRef: ref})
	m.channel.Publish(job.ID, progress.Event{Type: progress.EventProgress, Progress: &snap})
}

// recordOutcome applies a per-item result to the job's counters. A failure
// is recorded and the batch continues; it is never escalated.
func (m *Manager) recordOutcome(job *Job, ref string, outcome portal.SessionOutcome) {
	m.mu.Lock()
	job.Progress.Current = ""
	if outcome.Success {
		job.Progress.Completed++
	} else {
		job.Progress.Failed++
		job.Errors = append(job.Errors, ItemError{
			ItemRef:   ref,
			Message:   outcome.Error,
			Timestamp: time.Now(),
		})
	}
	snap := job.Progress
	m.mu.Unlock()

	if outcome.Success {
		m.channel.Publish(job.ID, progress.Event{
			Type:       progress.EventSessionCompleted,
			SessionRef: ref,
			Message:    outcome.Confirmation,
		})
		if err := m.source.MarkTransferred(ref, outcome.Confirmation); err != nil {
			log.Printf("[%s] WARNING: failed to mark session %s as transferred: %v", job.ID, ref, err)
		}
	} else {
		log.Printf("[%s] Session %s failed: %s", job.ID, ref, outcome.Error)
		m.channel.Publish(job.ID, progress.Event{
			Type:       progress.EventSessionFailed,
			SessionRef: ref,
			Error:      outcome.Error,
		})
	}
	m.channel.Publish(job.ID, progress.Event{Type: progress.EventProgress, Progress: &snap})
}

// abort ends the job after a driver failure. A failure caused by a user
// cancel terminates as cancelled, never as error, regardless of how many
// items had already failed.
func (m *Manager) abort(job *Job, stage string, err error) {
	if m.isCancelRequested(job) || errors.Is(err, context.Canceled) {
		m.finishCancelled(job, fmt.Sprintf("cancelled while waiting at %s", stage))
		return
	}
	m.finishError(job, fmt.Errorf("%s failed: %w", stage, err))
}

func (m *Manager) finishCompleted(job *Job) {
	m.mu.Lock()
	job.Status = StatusCompleted
	job.Progress.Current = ""
	now := time.Now()
	job.EndedAt = &now
	summary := progress.Summary{Successful: job.Progress.Completed, Failed: job.Progress.Failed}
	if m.active == job.ID {
		m.active = ""
	}
	m.mu.Unlock()

	log.Printf("[%s] Transfer completed: %d successful, %d failed", job.ID, summary.Successful, summary.Failed)
	m.channel.Publish(job.ID, progress.Event{
		Type:    progress.EventTransferCompleted,
		Status:  string(StatusCompleted),
		Summary: &summary,
	})
}

func (m *Manager) finishError(job *Job, err error) {
	m.mu.Lock()
	if job.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	job.Status = StatusError
	job.Progress.Current = ""
	now := time.Now()
	job.EndedAt = &now
	if m.active == job.ID {
		m.active = ""
	}
	m.mu.Unlock()

	log.Printf("[%s] Transfer failed: %v", job.ID, err)
	m.channel.Publish(job.ID, progress.Event{
		Type:   progress.EventTransferError,
		Status: string(StatusError),
		Error:  err.Error(),
	})
}

func (m *Manager) finishCancelled(job *Job, message string) {
	m.mu.Lock()
	if job.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	job.Status = StatusCancelled
	job.Progress.Current = ""
	now := time.Now()
	job.EndedAt = &now
	if m.active == job.ID {
		m.active = ""
	}
	m.mu.Unlock()

	log.Printf("[%s] Transfer cancelled: %s", job.ID, message)
	m.channel.Publish(job.ID, progress.Event{
		Type:    progress.EventStatus,
		Status:  string(StatusCancelled),
		Message: message,
	})
}

// setStatus applies a non-terminal transition and emits a status event.
func (m *Manager) setStatus(job *Job, status Status, message string) {
	m.mu.Lock()
	job.Status = status
	m.mu.Unlock()

	log.Printf("[%s] %s: %s", job.ID, status, message)
	m.publishStatus(job.ID, status, message)
}

func (m *Manager) publishStatus(transferID string, status Status, message string) {
	m.channel.Publish(transferID, progress.Event{
		Type:    progress.EventStatus,
		Status:  string(status),
		Message: message,
	})
}

func (m *Manager) isCancelRequested(job *Job) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return job.cancelRequested
}
