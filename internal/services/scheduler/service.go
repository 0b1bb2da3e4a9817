package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"rehbersync/internal/models"
	"rehbersync/internal/services/transfer"
)

// TransferService is the slice of the transfer manager the scheduler needs.
type TransferService interface {
	StartTransfer(req transfer.TransferRequest) (*transfer.StartResult, error)
	GetStatus(transferID string) (transfer.StatusSnapshot, error)
}

// SessionSource lists sessions that still need a portal submission.
type SessionSource interface {
	PendingIDs(limit int) ([]string, error)
}

// Service handles scheduled job management and execution
type Service struct {
	db       *gorm.DB
	cron     *cron.Cron
	jobs     map[string]cron.EntryID // jobID -> cron entry ID
	jobsMu   sync.RWMutex
	transfer TransferService
	sessions SessionSource
}

// NewService creates a new scheduler service
func NewService(db *gorm.DB, transferService TransferService, sessions SessionSource) *Service {
	// cron scheduler with seconds support
	c := cron.New(cron.WithSeconds())

	return &Service{
		db:       db,
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		transfer: transferService,
		sessions: sessions,
	}
}

// Start initializes the scheduler and loads enabled jobs from database
func (s *Service) Start() error {
	log.Println("Starting scheduler...")

	s.cron.Start()

	var jobs []models.ScheduledJob
	if err := s.db.Where("enabled = ?", true).Find(&jobs).Error; err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	for i := range jobs {
		if err := s.scheduleJob(&jobs[i]); err != nil {
			log.Printf("WARNING: Failed to schedule job %s (%s): %v", jobs[i].Name, jobs[i].ID, err)
		} else {
			log.Printf("Scheduled job: %s (%s) with cron: %s", jobs[i].Name, jobs[i].ID, jobs[i].Cron)
		}
	}

	log.Printf("Scheduler started with %d enabled jobs", len(jobs))
	return nil
}

// Stop gracefully stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		log.Println("Scheduler stopped")
	}
}

// ListJobs retrieves all scheduled jobs
func (s *Service) ListJobs() ([]JobListResponse, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	responses := make([]JobListResponse, len(jobs))
	for i := range jobs {
		responses[i] = toJobListResponse(&jobs[i])
	}

	return responses, nil
}

// UpsertJob creates or updates a scheduled job, keyed by name
func (s *Service) UpsertJob(req UpsertJobRequest) (string, error) {
	if req.Name == "" || req.JobType == "" || req.Cron == "" {
		return "", fmt.Errorf("name, job_type, and cron are required")
	}
	if req.JobType != "transfer" {
		return "", fmt.Errorf("unknown job type: %s", req.JobType)
	}

	// normalize 5-field cron to the stored 6-field format
	normalizedCron, err := normalizeCron(req.Cron)
	if err != nil {
		return "", err
	}
	req.Cron = normalizedCron

	var job models.ScheduledJob
	result := s.db.Where("name = ?", req.Name).First(&job)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			job = models.ScheduledJob{
				ID:   uuid.New().String(),
				Name: req.Name,
			}
		} else {
			return "", fmt.Errorf("failed to query job: %w", result.Error)
		}
	}

	job.JobType = req.JobType
	job.Cron = req.Cron
	job.Timezone = req.Timezone
	if job.Timezone == "" {
		job.Timezone = "UTC"
	}
	job.Enabled = req.Enabled

	payloadStr := ""
	if req.Payload != nil {
		switch p := req.Payload.(type) {
		case string:
			payloadStr = p
		default:
			data, err := json.Marshal(p)
			if err != nil {
				return "", fmt.Errorf("failed to marshal payload: %w", err)
			}
			payloadStr = string(data)
		}
	}
	job.Payload = payloadStr

	schedule, err := cronParser().Parse(job.Cron)
	if err != nil {
		return "", fmt.Errorf("failed to parse cron for next run: %w", err)
	}
	nextRun := schedule.Next(time.Now())
	job.NextRunAt = &nextRun

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if err := s.db.Create(&job).Error; err != nil {
			return "", fmt.Errorf("failed to create job: %w", err)
		}
	} else {
		if err := s.db.Save(&job).Error; err != nil {
			return "", fmt.Errorf("failed to update job: %w", err)
		}
	}

	if err := s.rescheduleJob(job.ID); err != nil {
		return "", fmt.Errorf("failed to reschedule job: %w", err)
	}

	return job.ID, nil
}

// DeleteJob removes a scheduled job
func (s *Service) DeleteJob(jobID string) error {
	s.jobsMu.Lock()
	if entryID, exists := s.jobs[jobID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, jobID)
	}
	s.jobsMu.Unlock()

	if err := s.db.Delete(&models.ScheduledJob{}, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return nil
}

// scheduleJob adds a job to the cron scheduler
func (s *Service) scheduleJob(job *models.ScheduledJob) error {
	if !job.Enabled {
		return nil
	}

	s.jobsMu.Lock()
	if entryID, exists := s.jobs[job.ID]; exists {
		s.cron.Remove(entryID)
	}
	s.jobsMu.Unlock()

	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Cron, func() {
		s.executeJob(jobID)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = entryID
	s.jobsMu.Unlock()

	return nil
}

// rescheduleJob reloads a job from database and reschedules it
func (s *Service) rescheduleJob(jobID string) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.jobsMu.Lock()
			if entryID, exists := s.jobs[jobID]; exists {
				s.cron.Remove(entryID)
				delete(s.jobs, jobID)
			}
			s.jobsMu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}

	return s.scheduleJob(&job)
}

// executeJob runs a scheduled job
func (s *Service) executeJob(jobID string) {
	log.Printf("Executing scheduled job: %s", jobID)

	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		log.Printf("ERROR: Failed to load job %s: %v", jobID, err)
		return
	}

	now := time.Now()
	job.LastRunAt = &now

	schedule, err := cronParser().Parse(job.Cron)
	if err != nil {
		log.Printf("WARNING: Failed to parse cron for next run: %v", err)
	} else {
		nextRun := schedule.Next(now)
		job.NextRunAt = &nextRun
	}

	if err := s.db.Save(&job).Error; err != nil {
		log.Printf("WARNING: Failed to update job run times: %v", err)
	}

	var payload TransferJobPayload
	if job.Payload != "" {
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			log.Printf("ERROR: Failed to parse job payload: %v", err)
			return
		}
	}

	switch job.JobType {
	case "transfer":
		s.runTransferJob(payload)
	default:
		log.Printf("WARNING: Unknown job type: %s", job.JobType)
	}
}

// runTransferJob collects the pending sessions and starts a transfer for
// them. The transfer still opens the portal and waits for a human login;
// scheduled runs are meant for times a counselor is at the machine. If a
// transfer is already in progress the run is skipped, not queued.
func (s *Service) runTransferJob(payload TransferJobPayload) {
	ids, err := s.sessions.PendingIDs(payload.Limit)
	if err != nil {
		log.Printf("ERROR: Failed to list pending sessions: %v", err)
		return
	}
	if len(ids) == 0 {
		log.Println("Scheduled transfer: no pending sessions, nothing to do")
		return
	}

	res, err := s.transfer.StartTransfer(transfer.TransferRequest{
		SessionIDs:      ids,
		InstitutionCode: payload.InstitutionCode,
		SchoolYear:      payload.SchoolYear,
	})
	if err != nil {
		if errors.Is(err, transfer.ErrTransferBusy) {
			log.Println("Scheduled transfer skipped: another transfer is in progress")
			return
		}
		log.Printf("ERROR: Failed to start scheduled transfer: %v", err)
		return
	}

	log.Printf("Scheduled transfer started: %s (%d sessions)", res.TransferID, res.TotalSessions)

	// monitor in the background so the scheduler loop is not blocked
	go s.monitorTransfer(res.TransferID)
}

func (s *Service) monitorTransfer(transferID string) {
	timeout := time.After(transferMonitorTimeout)
	ticker := time.NewTicker(transferPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			log.Printf("WARNING: Scheduled transfer %s still running after %s, stopping monitoring", transferID, transferMonitorTimeout)
			return
		case <-ticker.C:
			snap, err := s.transfer.GetStatus(transferID)
			if err != nil {
				log.Printf("ERROR: Failed to get status for transfer %s: %v", transferID, err)
				return
			}
			if snap.Status.Terminal() {
				log.Printf("Scheduled transfer %s finished: %s (%d ok, %d failed)",
					transferID, snap.Status, snap.Progress.Completed, snap.Progress.Failed)
				return
			}
		}
	}
}

// normalizeCron converts 5-field cron to 6-field format by prepending seconds
// 5-field: "minute hour day month dow" (standard cron)
// 6-field: "second minute hour day month dow" (robfig/cron with WithSeconds)
func normalizeCron(cronExpr string) (string, error) {
	cronExpr = strings.TrimSpace(cronExpr)

	fields := strings.Fields(cronExpr)
	if len(fields) == 6 {
		if _, err := cronParser().Parse(cronExpr); err == nil {
			return cronExpr, nil
		}
	}

	if len(fields) == 5 {
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		// prepend seconds (run at second 0 of the minute)
		return "0 " + cronExpr, nil
	}

	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}

func cronParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

func toJobListResponse(job *models.ScheduledJob) JobListResponse {
	resp := JobListResponse{
		ID:        job.ID,
		Name:      job.Name,
		JobType:   job.JobType,
		Cron:      job.Cron,
		Timezone:  job.Timezone,
		Enabled:   job.Enabled,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}

	if job.LastRunAt != nil {
		lastRun := job.LastRunAt.Format(time.RFC3339)
		resp.LastRunAt = &lastRun
	}

	if job.NextRunAt != nil {
		nextRun := job.NextRunAt.Format(time.RFC3339)
		resp.NextRun = &nextRun
	}

	return resp
}
