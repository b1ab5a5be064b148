package kpi

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts metric persistence.
type RepositoryPort interface {
	InsertMetric(ctx context.Context, metric KPIMetric) (int64, error)
	ListMetrics(ctx context.Context, filter ListFilter) ([]KPIMetric, error)
}

// AuditPort appends best-effort audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry audit.Entry)
}

// Service records KPI metric snapshots.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, auditPort AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		audit:    auditPort,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// RecordMetric validates and persists one metric snapshot, then appends a
// best-effort audit entry. Not transactional with any other component.
func (s *Service) RecordMetric(ctx context.Context, input MetricInput) (KPIMetric, error) {
	if err := s.validate.Struct(input); err != nil {
		return KPIMetric{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	metric := KPIMetric{
		MetricName:        input.MetricName,
		Category:          input.Category,
		Value:             input.Value,
		Target:            input.Target,
		Unit:              input.Unit,
		Period:            input.Period,
		PeriodStart:       input.PeriodStart,
		PeriodEnd:         input.PeriodEnd,
		CalculationMethod: input.CalculationMethod,
		CompanyID:         input.CompanyID,
		CalculatedAt:      time.Now().UTC(),
	}
	id, err := s.repo.InsertMetric(ctx, metric)
	if err != nil {
		return KPIMetric{}, fmt.Errorf("kpi: insert metric: %w", err)
	}
	metric.ID = id

	if s.audit != nil {
		s.audit.Append(ctx, audit.Entry{
			Action:   "kpi:record",
			Entity:   "kpi_metric",
			EntityID: strconv.FormatInt(id, 10),
			ActorID:  input.RecordedBy,
			NewState: map[string]any{
				"metric_name": metric.MetricName,
				"category":    metric.Category,
				"value":       metric.Value,
				"period":      metric.Period,
			},
			Severity:  audit.SeverityInfo,
			CompanyID: metric.CompanyID,
		})
	}
	return metric, nil
}

// ListMetrics returns recorded metrics for reporting.
func (s *Service) ListMetrics(ctx context.Context, filter ListFilter) ([]KPIMetric, error) {
	return s.repo.ListMetrics(ctx, filter)
}
