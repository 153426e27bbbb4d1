package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/api/dto"
	"github.com/hugh/go-warden/internal/api/middleware"
	"github.com/hugh/go-warden/internal/auth"
	"github.com/hugh/go-warden/internal/cleanup"
	"github.com/hugh/go-warden/internal/tasks"
)

type AdminHandler struct {
	authService *auth.Service
	sweeper     *cleanup.Sweeper
	scheduler   *cleanup.Scheduler
	queue       *asynq.Client // nil disables async sweeps
}

func NewAdminHandler(authService *auth.Service, sweeper *cleanup.Sweeper, scheduler *cleanup.Scheduler, queue *asynq.Client) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		sweeper:     sweeper,
		scheduler:   scheduler,
		queue:       queue,
	}
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	params := dto.PaginationParams{}
	params.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	params.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	params.Normalize()

	accounts, total, err := h.authService.ListAccounts(r.Context(), auth.ListAccountsInput{
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list accounts"})
		return
	}

	data := make([]dto.AccountDTO, 0, len(accounts))
	for i := range accounts {
		data = append(data, toAccountDTO(&accounts[i]))
	}

	totalPages := int((total + int64(params.PerPage) - 1) / int64(params.PerPage))
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
	})
}

func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid account id"})
		return
	}

	account, err := h.authService.GetAccountByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

func (h *AdminHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid account id"})
		return
	}

	var req dto.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	actorRole := middleware.GetUserRole(r.Context())
	account, err := h.authService.UpdateAccount(r.Context(), actorRole, id, auth.UpdateAccountInput{
		Name:     req.Name,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		switch err {
		case auth.ErrAccountNotFound:
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		case auth.ErrForbiddenRoleChange:
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient privilege"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Update failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid account id"})
		return
	}

	if err := h.authService.DeleteAccount(r.Context(), middleware.GetUserRole(r.Context()), id); err != nil {
		switch err {
		case auth.ErrAccountNotFound:
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		case auth.ErrForbiddenRoleChange:
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient privilege"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Delete failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Account deleted"})
}

// TriggerCleanup runs a sweep. The default is synchronous so failures go back
// to the caller; "async" hands the sweep to the worker queue instead, falling
// back to a synchronous run when no queue is configured.
func (h *AdminHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	var req dto.SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Async && h.queue != nil {
		task, err := tasks.NewCleanupSweepTask(tasks.SweepPayload{Deep: req.Deep})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Sweep failed"})
			return
		}
		if _, err := h.queue.Enqueue(task); err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Sweep failed"})
			return
		}
		writeJSON(w, http.StatusAccepted, dto.SuccessResponse{Message: "Sweep queued"})
		return
	}

	if req.Deep {
		report, err := h.sweeper.DeepSweep(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Sweep failed"})
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	deleted, err := h.sweeper.SweepAbandoned(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Sweep failed"})
		return
	}

	writeJSON(w, http.StatusOK, cleanup.SweepReport{Abandoned: deleted})
}

func (h *AdminHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

func (h *AdminHandler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

func (h *AdminHandler) SchedulerRestart(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Restart(); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Scheduler restart failed"})
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}
