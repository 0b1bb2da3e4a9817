package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"rehbersync/internal/services/accounts"
	"rehbersync/internal/services/scheduler"
	"rehbersync/internal/services/transfer"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStartTransfer(c echo.Context) error {
	var req transfer.TransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	res, err := s.transfers.StartTransfer(req)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrEmptyBatch):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, transfer.ErrTransferBusy):
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, res)
}

type cancelRequest struct {
	TransferID string `json:"transferId"`
}

func (s *Server) handleCancelTransfer(c echo.Context) error {
	var req cancelRequest
	if err := c.Bind(&req); err != nil || req.TransferID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "transferId is required"})
	}

	if err := s.transfers.CancelTransfer(req.TransferID); err != nil {
		if errors.Is(err, transfer.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"transferId": req.TransferID,
		"status":     "cancel_requested",
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	snap, err := s.transfers.GetStatus(c.Param("transferId"))
	if err != nil {
		if errors.Is(err, transfer.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, snap)
}

type accountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleUpsertAccount(c echo.Context) error {
	var req accountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "username and password are required"})
	}

	if err := s.accounts.Upsert(req.Username, req.Password); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleAccountInfo(c echo.Context) error {
	info, err := s.accounts.Info()
	if err != nil {
		if errors.Is(err, accounts.ErrNotConfigured) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleListJobs(c echo.Context) error {
	jobs, err := s.schedule.ListJobs()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) handleUpsertJob(c echo.Context) error {
	var req scheduler.UpsertJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	id, err := s.schedule.UpsertJob(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteJob(c echo.Context) error {
	if err := s.schedule.DeleteJob(c.Param("id")); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
