package kpi

import "time"

// KPIMetric is one recorded metric snapshot. Metrics are independent of the
// stock ledger; each recording call writes exactly one row.
type KPIMetric struct {
	ID                int64     `json:"id"`
	MetricName        string    `json:"metric_name"`
	Category          string    `json:"category"`
	Value             float64   `json:"value"`
	Target            *float64  `json:"target,omitempty"`
	Unit              string    `json:"unit"`
	Period            string    `json:"period"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	CalculationMethod string    `json:"calculation_method"`
	CompanyID         int64     `json:"company_id"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

// MetricInput describes a metric recording request.
type MetricInput struct {
	MetricName        string    `json:"metric_name" validate:"required,max=200"`
	Category          string    `json:"category" validate:"required,max=100"`
	Value             float64   `json:"value"`
	Target            *float64  `json:"target,omitempty"`
	Unit              string    `json:"unit" validate:"required,max=50"`
	Period            string    `json:"period" validate:"required,oneof=daily weekly monthly quarterly yearly"`
	PeriodStart       time.Time `json:"period_start" validate:"required"`
	PeriodEnd         time.Time `json:"period_end" validate:"required,gtefield=PeriodStart"`
	CalculationMethod string    `json:"calculation_method" validate:"required,max=200"`
	RecordedBy        int64     `json:"recorded_by" validate:"required,gt=0"`
	CompanyID         int64     `json:"company_id" validate:"required,gt=0"`
}

// ListFilter scopes metric listings.
type ListFilter struct {
	CompanyID int64
	Category  string
	Period    string
	From      time.Time
	To        time.Time
	Limit     int
}
