package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes the business-metrics endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs analytics handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/business-metrics", h.businessMetrics)
}

func (h *Handler) businessMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, _ := strconv.ParseInt(q.Get("company_id"), 10, 64)
	period := q.Get("period")
	if period == "" {
		period = "monthly"
	}
	summary, err := h.service.BusinessMetrics(r.Context(), companyID, period)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
