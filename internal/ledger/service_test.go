package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	products  map[int64]Product
	movements []StockMovement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetProduct(ctx context.Context, productID int64) (Product, error) {
	product, ok := r.products[productID]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return product, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	result := make([]StockMovement, len(r.movements))
	copy(result, r.movements)
	return result, nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (Product, error) {
	return tx.repo.GetProduct(context.Background(), productID)
}

func (tx *memoryTx) UpdateProductStock(ctx context.Context, productID int64, quantity float64, updatedBy int64) error {
	product, ok := tx.repo.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	product.StockQuantity = quantity
	product.UpdatedBy = updatedBy
	tx.repo.products[productID] = product
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement StockMovement) (int64, error) {
	tx.repo.nextID++
	movement.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}

type captureAudit struct {
	entries []audit.Entry
}

func (c *captureAudit) Append(ctx context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

func TestRecordMovementInbound(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, SKU: "WID-1", StockQuantity: 100, CostPrice: 25, CompanyID: 7}
	auditor := &captureAudit{}
	svc := NewService(repo, auditor, nil)
	ctx := context.Background()

	movement, err := svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementIn, Quantity: 50, ProcessedBy: 9, CompanyID: 7,
	})
	require.NoError(t, err)
	require.InDelta(t, 100.0, movement.StockBefore, 0.0001)
	require.InDelta(t, 150.0, movement.StockAfter, 0.0001)
	require.InDelta(t, 50.0, movement.Quantity, 0.0001)
	require.InDelta(t, 25.0, movement.UnitCost, 0.0001)
	require.InDelta(t, 1250.0, movement.TotalValue, 0.0001)

	// Read-your-write: product stock matches the returned stockAfter.
	product, err := svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.InDelta(t, movement.StockAfter, product.StockQuantity, 0.0001)
	require.Equal(t, int64(9), product.UpdatedBy)

	require.Len(t, auditor.entries, 1)
	require.Equal(t, "ledger:in", auditor.entries[0].Action)
	require.Equal(t, "1", auditor.entries[0].EntityID)
}

func TestRecordMovementOutboundClampsAtZero(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, StockQuantity: 30, CostPrice: 10, CompanyID: 1}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	movement, err := svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementOut, Quantity: 50, ProcessedBy: 2, CompanyID: 1,
	})
	require.NoError(t, err)
	require.InDelta(t, 30.0, movement.StockBefore, 0.0001)
	require.InDelta(t, 0.0, movement.StockAfter, 0.0001)
	require.GreaterOrEqual(t, movement.StockAfter, 0.0)
}

func TestRecordMovementAdjustmentRecordsDelta(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, StockQuantity: 80, CostPrice: 5, CompanyID: 1}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	// Adjustment takes the absolute target, not a delta.
	movement, err := svc.RecordMovement(ctx, MovementInput{
		ProductID: 1, Type: MovementAdjustment, Quantity: 60, ProcessedBy: 2, CompanyID: 1,
	})
	require.NoError(t, err)
	require.InDelta(t, 80.0, movement.StockBefore, 0.0001)
	require.InDelta(t, 60.0, movement.StockAfter, 0.0001)
	require.InDelta(t, -20.0, movement.Quantity, 0.0001)
	// Total value uses the magnitude of the applied delta.
	require.InDelta(t, 100.0, movement.TotalValue, 0.0001)

	product, err := svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.InDelta(t, 60.0, product.StockQuantity, 0.0001)
}

func TestRecordMovementReturnAndLoss(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, StockQuantity: 10, CostPrice: 2, CompanyID: 1}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	movement, err := svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementReturn, Quantity: 4, ProcessedBy: 1, CompanyID: 1})
	require.NoError(t, err)
	require.InDelta(t, 14.0, movement.StockAfter, 0.0001)

	movement, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Type: MovementLoss, Quantity: 3, ProcessedBy: 1, CompanyID: 1})
	require.NoError(t, err)
	require.InDelta(t, 11.0, movement.StockAfter, 0.0001)
}

func TestRecordMovementUnitCostOverride(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, StockQuantity: 0, CostPrice: 9, CompanyID: 1}
	svc := NewService(repo, nil, nil)

	unitCost := 12.5
	movement, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: 1, Type: MovementIn, Quantity: 4, UnitCost: &unitCost, ProcessedBy: 1, CompanyID: 1,
	})
	require.NoError(t, err)
	require.InDelta(t, 12.5, movement.UnitCost, 0.0001)
	require.InDelta(t, 50.0, movement.TotalValue, 0.0001)
}

func TestRecordMovementUnknownProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: 404, Type: MovementIn, Quantity: 1, ProcessedBy: 1, CompanyID: 1,
	})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Empty(t, repo.movements)
}

func TestRecordMovementInvalidType(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, StockQuantity: 5, CompanyID: 1}
	svc := NewService(repo, nil, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: 1, Type: MovementType("teleport"), Quantity: 1, ProcessedBy: 1, CompanyID: 1,
	})
	require.ErrorIs(t, err, ErrInvalidMovementType)
	require.Empty(t, repo.movements)
	require.InDelta(t, 5.0, repo.products[1].StockQuantity, 0.0001)
}

type conflictRepo struct{}

func (r *conflictRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fmt.Errorf("run tx: %w", shared.ErrTransactionConflict)
}

func (r *conflictRepo) GetProduct(ctx context.Context, productID int64) (Product, error) {
	return Product{}, ErrProductNotFound
}

func (r *conflictRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	return nil, nil
}

func TestRecordMovementSurfacesTransactionConflict(t *testing.T) {
	auditor := &captureAudit{}
	svc := NewService(&conflictRepo{}, auditor, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: 1, Type: MovementOut, Quantity: 2, ProcessedBy: 1, CompanyID: 1,
	})
	require.ErrorIs(t, err, shared.ErrTransactionConflict)
	// A rolled-back movement leaves no audit trace.
	require.Empty(t, auditor.entries)
}

func TestRecordMovementNegativeQuantity(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, StockQuantity: 5, CompanyID: 1}
	svc := NewService(repo, nil, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: 1, Type: MovementOut, Quantity: -3, ProcessedBy: 1, CompanyID: 1,
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
