package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"rehbersync/internal/progress"
	"rehbersync/internal/services/accounts"
	"rehbersync/internal/services/scheduler"
	"rehbersync/internal/services/transfer"
)

// TransferAPI is the slice of the transfer manager the handlers need.
type TransferAPI interface {
	StartTransfer(req transfer.TransferRequest) (*transfer.StartResult, error)
	CancelTransfer(transferID string) error
	GetStatus(transferID string) (transfer.StatusSnapshot, error)
}

// SchedulerAPI manages scheduled transfer jobs.
type SchedulerAPI interface {
	ListJobs() ([]scheduler.JobListResponse, error)
	UpsertJob(req scheduler.UpsertJobRequest) (string, error)
	DeleteJob(jobID string) error
}

// AccountAPI manages the stored portal login.
type AccountAPI interface {
	Upsert(username, password string) error
	Info() (accounts.Info, error)
}

// Server exposes the REST and WebSocket surface of the transfer service.
type Server struct {
	echo      *echo.Echo
	transfers TransferAPI
	schedule  SchedulerAPI
	accounts  AccountAPI
	hub       *progress.Hub
}

// New builds the server and registers all routes.
func New(transfers TransferAPI, schedule SchedulerAPI, accountSvc AccountAPI, hub *progress.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:      e,
		transfers: transfers,
		schedule:  schedule,
		accounts:  accountSvc,
		hub:       hub,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/start-transfer", s.handleStartTransfer)
	api.POST("/cancel-transfer", s.handleCancelTransfer)
	api.GET("/status/:transferId", s.handleStatus)

	api.PUT("/portal-account", s.handleUpsertAccount)
	api.GET("/portal-account", s.handleAccountInfo)

	api.GET("/scheduled-jobs", s.handleListJobs)
	api.POST("/scheduled-jobs", s.handleUpsertJob)
	api.DELETE("/scheduled-jobs/:id", s.handleDeleteJob)

	s.echo.GET("/ws/transfer/:transferId", s.handleTransferSocket)
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
