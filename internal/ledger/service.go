package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/audit"
)

// TxRepository exposes the writes one movement performs inside a shared
// storage transaction. Nested callers (sales) supply their own handle so all
// writes for one business operation commit or roll back as a unit.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (Product, error)
	UpdateProductStock(ctx context.Context, productID int64, quantity float64, updatedBy int64) error
	InsertMovement(ctx context.Context, movement StockMovement) (int64, error)
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, productID int64) (Product, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
}

// AuditPort appends best-effort audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry audit.Entry)
}

// Service records stock movements.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, auditPort AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: auditPort, logger: logger}
}

// RecordMovement applies one stock movement in its own transaction and
// appends the immutable ledger entry. The audit trail is written after
// commit and can never fail the operation.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (StockMovement, error) {
	var movement StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := s.RecordMovementTx(ctx, tx, input)
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return StockMovement{}, err
	}
	s.AppendMovementAudit(ctx, movement)
	return movement, nil
}

// RecordMovementTx applies one stock movement on the supplied transaction
// handle. The caller owns commit/rollback and is responsible for appending
// the movement's audit entry once the transaction has committed.
func (s *Service) RecordMovementTx(ctx context.Context, tx TxRepository, input MovementInput) (StockMovement, error) {
	if input.Quantity < 0 {
		return StockMovement{}, ErrInvalidQuantity
	}
	if !validMovementType(input.Type) {
		return StockMovement{}, fmt.Errorf("%w: %q", ErrInvalidMovementType, input.Type)
	}

	product, err := tx.GetProductForUpdate(ctx, input.ProductID)
	if err != nil {
		return StockMovement{}, err
	}

	previous := product.StockQuantity
	var next, recorded float64
	switch input.Type {
	case MovementIn, MovementReturn:
		recorded = math.Abs(input.Quantity)
		next = previous + recorded
	case MovementOut, MovementLoss, MovementTransfer:
		recorded = math.Abs(input.Quantity)
		next = math.Max(0, previous-recorded)
	case MovementAdjustment:
		// The caller supplies the absolute target; the ledger records the
		// signed delta actually applied.
		next = input.Quantity
		recorded = next - previous
	}

	unitCost := product.CostPrice
	if input.UnitCost != nil {
		unitCost = *input.UnitCost
	}

	movement := StockMovement{
		ProductID:        input.ProductID,
		WarehouseFromID:  input.WarehouseFromID,
		WarehouseToID:    input.WarehouseToID,
		Type:             input.Type,
		Quantity:         recorded,
		UnitCost:         unitCost,
		TotalValue:       unitCost * math.Abs(recorded),
		StockBefore:      previous,
		StockAfter:       next,
		Reason:           input.Reason,
		ReferenceType:    input.ReferenceType,
		ReferenceID:      input.ReferenceID,
		RelatedDocuments: input.RelatedDocuments,
		BatchNumber:      input.BatchNumber,
		ExpiryDate:       input.ExpiryDate,
		ProcessedBy:      input.ProcessedBy,
		ApprovedBy:       input.ApprovedBy,
		IsApproved:       input.ApprovedBy != nil,
		CompanyID:        input.CompanyID,
		OccurredAt:       time.Now().UTC(),
	}

	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return StockMovement{}, err
	}
	movement.ID = id

	if err := tx.UpdateProductStock(ctx, input.ProductID, next, input.ProcessedBy); err != nil {
		return StockMovement{}, err
	}

	return movement, nil
}

// AppendMovementAudit writes the single-field stock change record for a
// committed movement. Best-effort by contract.
func (s *Service) AppendMovementAudit(ctx context.Context, movement StockMovement) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, audit.Entry{
		Action:   fmt.Sprintf("ledger:%s", movement.Type),
		Entity:   "product",
		EntityID: strconv.FormatInt(movement.ProductID, 10),
		ActorID:  movement.ProcessedBy,
		Changes: []audit.FieldChange{
			{Field: "currentStock", OldValue: movement.StockBefore, NewValue: movement.StockAfter},
		},
		Severity:  audit.SeverityInfo,
		CompanyID: movement.CompanyID,
	})
}

// GetProduct returns the stock-bearing view of a product.
func (s *Service) GetProduct(ctx context.Context, productID int64) (Product, error) {
	return s.repo.GetProduct(ctx, productID)
}

// ListMovements returns ledger history for reporting.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	return s.repo.ListMovements(ctx, filter)
}

func validMovementType(t MovementType) bool {
	switch t {
	case MovementIn, MovementOut, MovementTransfer, MovementAdjustment, MovementLoss, MovementReturn:
		return true
	}
	return false
}
