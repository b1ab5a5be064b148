package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrInstanceNotFound indicates a missing process instance.
var ErrInstanceNotFound = fmt.Errorf("workflow: process instance: %w", shared.ErrNotFound)

// StepEvent is one entry in an instance's embedded history.
type StepEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	UserID       int64     `json:"user_id"`
	PreviousStep string    `json:"previous_step"`
	NewStep      string    `json:"new_step"`
}

// ProcessInstance is a running business process. Variables hold
// process-scoped state as a string-keyed map; History records every
// step transition in order.
type ProcessInstance struct {
	ID          uuid.UUID      `json:"id"`
	ProcessName string         `json:"process_name"`
	CurrentStep string         `json:"current_step"`
	Status      string         `json:"status"`
	Variables   map[string]any `json:"variables"`
	History     []StepEvent    `json:"history"`
	CompanyID   int64          `json:"company_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// AdvanceInput describes one step transition request.
type AdvanceInput struct {
	InstanceID uuid.UUID      `json:"instance_id"`
	StepName   string         `json:"step_name"`
	Action     string         `json:"action"`
	UserID     int64          `json:"user_id"`
	Variables  map[string]any `json:"variables,omitempty"`
}
