package workflow

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for process instances.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs workflow handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers workflow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/process-instances/{id}", h.getInstance)
	r.Post("/process-instances/{id}/advance", h.advanceStep)
}

type advanceRequest struct {
	StepName  string         `json:"step_name"`
	Action    string         `json:"action"`
	UserID    int64          `json:"user_id"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (h *Handler) advanceStep(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid instance id", "instance id must be a UUID")
		return
	}
	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if req.StepName == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", "step_name is required")
		return
	}
	instance, err := h.service.AdvanceStep(r.Context(), AdvanceInput{
		InstanceID: id,
		StepName:   req.StepName,
		Action:     req.Action,
		UserID:     req.UserID,
		Variables:  req.Variables,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, instance)
}

func (h *Handler) getInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid instance id", "instance id must be a UUID")
		return
	}
	instance, err := h.service.GetInstance(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, instance)
}
