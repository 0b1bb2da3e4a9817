package scheduler

import "time"

// JobListResponse represents a scheduled job in list responses
type JobListResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	JobType   string  `json:"job_type"`
	Cron      string  `json:"cron"`
	Timezone  string  `json:"timezone"`
	Enabled   bool    `json:"enabled"`
	LastRunAt *string `json:"last_run_at"` // ISO 8601 format
	NextRun   *string `json:"next_run"`    // ISO 8601 format
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// UpsertJobRequest represents a request to create or update a scheduled job
type UpsertJobRequest struct {
	Name     string      `json:"name"`
	JobType  string      `json:"job_type"` // currently only "transfer"
	Cron     string      `json:"cron"`
	Timezone string      `json:"timezone"`
	Enabled  bool        `json:"enabled"`
	Payload  interface{} `json:"payload"` // map or pre-encoded JSON string
}

// TransferJobPayload represents the payload for a scheduled transfer job.
// A zero Limit means all pending sessions.
type TransferJobPayload struct {
	Limit           int    `json:"limit"`
	InstitutionCode string `json:"institution_code"`
	SchoolYear      string `json:"school_year"`
}

// monitor parameters for a started transfer
const (
	transferMonitorTimeout = 30 * time.Minute
	transferPollInterval   = 5 * time.Second
)
