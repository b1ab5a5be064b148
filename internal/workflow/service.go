package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/audit"
)

// TxRepository is the transactional slice of instance persistence.
type TxRepository interface {
	GetInstanceForUpdate(ctx context.Context, id uuid.UUID) (*ProcessInstance, error)
	SaveInstance(ctx context.Context, instance *ProcessInstance) error
}

// RepositoryPort abstracts instance persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInstance(ctx context.Context, id uuid.UUID) (*ProcessInstance, error)
}

// AuditPort appends best-effort audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry audit.Entry)
}

// Service advances process instances through their steps.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, auditPort AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: auditPort, logger: logger}
}

// AdvanceStep moves an instance to the named step. The step change, variable
// merge and history append all commit as one unit; a concurrent advance of the
// same instance serializes on the row lock.
func (s *Service) AdvanceStep(ctx context.Context, input AdvanceInput) (*ProcessInstance, error) {
	var (
		updated  *ProcessInstance
		previous string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		instance, err := tx.GetInstanceForUpdate(ctx, input.InstanceID)
		if err != nil {
			return err
		}
		previous = instance.CurrentStep

		instance.CurrentStep = input.StepName
		if instance.Variables == nil {
			instance.Variables = make(map[string]any, len(input.Variables))
		}
		// Shallow merge; later keys overwrite earlier ones.
		for k, v := range input.Variables {
			instance.Variables[k] = v
		}
		instance.History = append(instance.History, StepEvent{
			Timestamp:    time.Now().UTC(),
			Action:       input.Action,
			UserID:       input.UserID,
			PreviousStep: previous,
			NewStep:      input.StepName,
		})
		instance.UpdatedAt = time.Now().UTC()

		if err := tx.SaveInstance(ctx, instance); err != nil {
			return fmt.Errorf("save instance: %w", err)
		}
		updated = instance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Append(ctx, audit.Entry{
			Action:   "workflow:advance",
			Entity:   "process_instance",
			EntityID: updated.ID.String(),
			ActorID:  input.UserID,
			PreviousState: map[string]any{
				"current_step": previous,
			},
			NewState: map[string]any{
				"current_step": updated.CurrentStep,
				"action":       input.Action,
			},
			Changes: []audit.FieldChange{
				{Field: "currentStep", OldValue: previous, NewValue: updated.CurrentStep},
			},
			Severity:  audit.SeverityInfo,
			CompanyID: updated.CompanyID,
		})
	}
	return updated, nil
}

// GetInstance loads one process instance.
func (s *Service) GetInstance(ctx context.Context, id uuid.UUID) (*ProcessInstance, error) {
	return s.repo.GetInstance(ctx, id)
}
