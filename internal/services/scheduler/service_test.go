package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rehbersync/internal/models"
	"rehbersync/internal/services/transfer"
)

func TestNormalizeCron(t *testing.T) {
	t.Run("Should convert 5-field to 6-field cron", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected string
		}{
			{
				name:     "Daily at 2 AM",
				input:    "0 2 * * *",
				expected: "0 0 2 * * *",
			},
			{
				name:     "Every 15 minutes",
				input:    "*/15 * * * *",
				expected: "0 */15 * * * *",
			},
			{
				name:     "Every weekday at 16:30",
				input:    "30 16 * * 1-5",
				expected: "0 30 16 * * 1-5",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, err := normalizeCron(tt.input)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			})
		}
	})

	t.Run("Should keep 6-field cron unchanged", func(t *testing.T) {
		result, err := normalizeCron("30 0 2 * * 1")
		require.NoError(t, err)
		assert.Equal(t, "30 0 2 * * 1", result)
	})

	t.Run("Should reject invalid expressions", func(t *testing.T) {
		_, err := normalizeCron("not a cron")
		assert.Error(t, err)
		_, err = normalizeCron("61 * * * *")
		assert.Error(t, err)
		_, err = normalizeCron("* * *")
		assert.Error(t, err)
	})
}

// mockTransferService records calls from scheduled jobs
type mockTransferService struct {
	startCalled bool
	startReq    transfer.TransferRequest
	startErr    error
	status      transfer.StatusSnapshot
}

func (m *mockTransferService) StartTransfer(req transfer.TransferRequest) (*transfer.StartResult, error) {
	m.startCalled = true
	m.startReq = req
	if m.startErr != nil {
		return nil, m.startErr
	}
	return &transfer.StartResult{TransferID: "t-1", TotalSessions: len(req.SessionIDs)}, nil
}

func (m *mockTransferService) GetStatus(transferID string) (transfer.StatusSnapshot, error) {
	return m.status, nil
}

type mockSessionSource struct {
	ids   []string
	limit int
	err   error
}

func (m *mockSessionSource) PendingIDs(limit int) ([]string, error) {
	m.limit = limit
	return m.ids, m.err
}

func newTestService(t *testing.T, ts TransferService, src SessionSource) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ScheduledJob{}))
	return NewService(db, ts, src)
}

func TestUpsertJob(t *testing.T) {
	t.Run("Should create and update a job keyed by name", func(t *testing.T) {
		svc := newTestService(t, &mockTransferService{}, &mockSessionSource{})

		id, err := svc.UpsertJob(UpsertJobRequest{
			Name:    "nightly-transfer",
			JobType: "transfer",
			Cron:    "0 2 * * *",
			Enabled: true,
			Payload: TransferJobPayload{Limit: 50},
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		jobs, err := svc.ListJobs()
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "nightly-transfer", jobs[0].Name)
		assert.Equal(t, "0 0 2 * * *", jobs[0].Cron, "cron should be stored normalized")
		assert.Equal(t, "UTC", jobs[0].Timezone)
		require.NotNil(t, jobs[0].NextRun)

		// same name updates in place
		id2, err := svc.UpsertJob(UpsertJobRequest{
			Name:    "nightly-transfer",
			JobType: "transfer",
			Cron:    "0 3 * * *",
			Enabled: false,
		})
		require.NoError(t, err)
		assert.Equal(t, id, id2)

		jobs, err = svc.ListJobs()
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "0 0 3 * * *", jobs[0].Cron)
		assert.False(t, jobs[0].Enabled)
	})

	t.Run("Should reject missing fields", func(t *testing.T) {
		svc := newTestService(t, &mockTransferService{}, &mockSessionSource{})
		_, err := svc.UpsertJob(UpsertJobRequest{Name: "x", JobType: "transfer"})
		assert.Error(t, err)
	})

	t.Run("Should reject unknown job type", func(t *testing.T) {
		svc := newTestService(t, &mockTransferService{}, &mockSessionSource{})
		_, err := svc.UpsertJob(UpsertJobRequest{Name: "x", JobType: "reporting", Cron: "0 2 * * *"})
		assert.ErrorContains(t, err, "unknown job type")
	})

	t.Run("Should reject invalid cron", func(t *testing.T) {
		svc := newTestService(t, &mockTransferService{}, &mockSessionSource{})
		_, err := svc.UpsertJob(UpsertJobRequest{Name: "x", JobType: "transfer", Cron: "banana"})
		assert.Error(t, err)
	})
}

func TestDeleteJob(t *testing.T) {
	svc := newTestService(t, &mockTransferService{}, &mockSessionSource{})

	id, err := svc.UpsertJob(UpsertJobRequest{
		Name:    "to-delete",
		JobType: "transfer",
		Cron:    "0 2 * * *",
		Enabled: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteJob(id))

	jobs, err := svc.ListJobs()
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestRunTransferJob(t *testing.T) {
	t.Run("Should start a transfer for pending sessions", func(t *testing.T) {
		ts := &mockTransferService{status: transfer.StatusSnapshot{Status: transfer.StatusCompleted}}
		src := &mockSessionSource{ids: []string{"s1", "s2"}}
		svc := newTestService(t, ts, src)

		svc.runTransferJob(TransferJobPayload{Limit: 25, InstitutionCode: "967012"})

		require.True(t, ts.startCalled)
		assert.Equal(t, []string{"s1", "s2"}, ts.startReq.SessionIDs)
		assert.Equal(t, "967012", ts.startReq.InstitutionCode)
		assert.Equal(t, 25, src.limit)
	})

	t.Run("Should do nothing when no sessions are pending", func(t *testing.T) {
		ts := &mockTransferService{}
		svc := newTestService(t, ts, &mockSessionSource{})

		svc.runTransferJob(TransferJobPayload{})
		assert.False(t, ts.startCalled)
	})

	t.Run("Should skip quietly when a transfer is already running", func(t *testing.T) {
		ts := &mockTransferService{startErr: transfer.ErrTransferBusy}
		svc := newTestService(t, ts, &mockSessionSource{ids: []string{"s1"}})

		svc.runTransferJob(TransferJobPayload{})
		assert.True(t, ts.startCalled)
	})
}

func TestExecuteJobUpdatesRunTimes(t *testing.T) {
	ts := &mockTransferService{status: transfer.StatusSnapshot{Status: transfer.StatusCompleted}}
	src := &mockSessionSource{ids: []string{"s1"}}
	svc := newTestService(t, ts, src)

	id, err := svc.UpsertJob(UpsertJobRequest{
		Name:    "run-times",
		JobType: "transfer",
		Cron:    "0 2 * * *",
		Enabled: true,
		Payload: TransferJobPayload{},
	})
	require.NoError(t, err)

	before := time.Now()
	svc.executeJob(id)

	var job models.ScheduledJob
	require.NoError(t, svc.db.First(&job, "id = ?", id).Error)
	require.NotNil(t, job.LastRunAt)
	assert.False(t, job.LastRunAt.Before(before.Add(-time.Second)))
	require.NotNil(t, job.NextRunAt)
	assert.True(t, job.NextRunAt.After(*job.LastRunAt))
	assert.True(t, ts.startCalled)
}
