package kpi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for KPI metrics.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs KPI handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers KPI routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/kpi-metrics", h.recordMetric)
	r.Get("/kpi-metrics", h.listMetrics)
}

func (h *Handler) recordMetric(w http.ResponseWriter, r *http.Request) {
	var input MetricInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	metric, err := h.service.RecordMetric(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, metric)
}

func (h *Handler) listMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Category: q.Get("category"),
		Period:   q.Get("period"),
	}
	filter.CompanyID, _ = strconv.ParseInt(q.Get("company_id"), 10, 64)
	if v := q.Get("from"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = ts
		}
	}
	if v := q.Get("to"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = ts
		}
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}

	metrics, err := h.service.ListMetrics(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": metrics})
}
