package audit

import (
	"errors"
	"time"
)

// Severity classifies the operational weight of an audit entry.
type Severity string

const (
	// SeverityInfo marks routine state changes.
	SeverityInfo Severity = "info"
	// SeverityWarning marks changes an operator should review.
	SeverityWarning Severity = "warning"
	// SeverityCritical marks changes that demand attention.
	SeverityCritical Severity = "critical"
)

// FieldChange captures a single field transition.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// Entry is one append-only audit record. Entries are never updated or
// deleted once written.
type Entry struct {
	ID            int64          `json:"id"`
	Action        string         `json:"action"`
	Entity        string         `json:"entity"`
	EntityID      string         `json:"entity_id"`
	ActorID       int64          `json:"actor_id"`
	PreviousState map[string]any `json:"previous_state,omitempty"`
	NewState      map[string]any `json:"new_state,omitempty"`
	Changes       []FieldChange  `json:"changes,omitempty"`
	Severity      Severity       `json:"severity"`
	CompanyID     int64          `json:"company_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// TimelineFilters scopes the operation-history query.
type TimelineFilters struct {
	CompanyID int64
	Entity    string
	Action    string
	Severity  Severity
	From      time.Time
	To        time.Time
	Page      int
	PageSize  int
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	NextPage int  `json:"next_page,omitempty"`
	PrevPage int  `json:"prev_page,omitempty"`
}

// Result bundles timeline rows with paging metadata.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}

// ErrInvalidEntry indicates an entry missing required identity fields.
var ErrInvalidEntry = errors.New("audit: entry requires action/entity/entity_id")
