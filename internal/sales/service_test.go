package sales

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// memoryStore backs both the sales repository fake and the ledger handle it
// exposes. Writes are staged per transaction and only applied on success, so
// a failing callback leaves no orders, lines or movements behind.
type memoryStore struct {
	products  map[int64]ledger.Product
	orders    map[int64]Order
	movements []ledger.StockMovement
	nextOrder int64
	nextLine  int64
	nextMove  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products: make(map[int64]ledger.Product),
		orders:   make(map[int64]Order),
	}
}

type stagedTx struct {
	store     *memoryStore
	products  map[int64]ledger.Product
	orders    map[int64]Order
	lines     map[int64][]Line
	movements []ledger.StockMovement
}

func (s *memoryStore) begin() *stagedTx {
	tx := &stagedTx{
		store:    s,
		products: make(map[int64]ledger.Product, len(s.products)),
		orders:   make(map[int64]Order),
		lines:    make(map[int64][]Line),
	}
	for id, p := range s.products {
		tx.products[id] = p
	}
	return tx
}

func (tx *stagedTx) commit() {
	for id, p := range tx.products {
		tx.store.products[id] = p
	}
	for id, o := range tx.orders {
		o.Lines = tx.lines[id]
		tx.store.orders[id] = o
	}
	tx.store.movements = append(tx.store.movements, tx.movements...)
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := s.begin()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *memoryStore) GetOrder(ctx context.Context, id int64) (*Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (s *memoryStore) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error) {
	var result []Order
	for _, order := range s.orders {
		result = append(result, order)
	}
	return result, len(result), nil
}

func (s *memoryStore) GetProduct(ctx context.Context, productID int64) (ledger.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return ledger.Product{}, ledger.ErrProductNotFound
	}
	return product, nil
}

func (tx *stagedTx) InsertOrder(ctx context.Context, order Order) (int64, error) {
	tx.store.nextOrder++
	order.ID = tx.store.nextOrder
	tx.orders[order.ID] = order
	return order.ID, nil
}

func (tx *stagedTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	tx.store.nextLine++
	line.ID = tx.store.nextLine
	tx.lines[line.OrderID] = append(tx.lines[line.OrderID], line)
	return line.ID, nil
}

func (tx *stagedTx) Ledger() ledger.TxRepository {
	return (*stagedLedgerTx)(tx)
}

// stagedLedgerTx shares the staged product state so sequential deductions in
// one order observe each other.
type stagedLedgerTx stagedTx

func (tx *stagedLedgerTx) GetProductForUpdate(ctx context.Context, productID int64) (ledger.Product, error) {
	product, ok := tx.products[productID]
	if !ok {
		return ledger.Product{}, ledger.ErrProductNotFound
	}
	return product, nil
}

func (tx *stagedLedgerTx) UpdateProductStock(ctx context.Context, productID int64, quantity float64, updatedBy int64) error {
	product, ok := tx.products[productID]
	if !ok {
		return ledger.ErrProductNotFound
	}
	product.StockQuantity = quantity
	product.UpdatedBy = updatedBy
	tx.products[productID] = product
	return nil
}

func (tx *stagedLedgerTx) InsertMovement(ctx context.Context, movement ledger.StockMovement) (int64, error) {
	tx.store.nextMove++
	movement.ID = tx.store.nextMove
	tx.movements = append(tx.movements, movement)
	return movement.ID, nil
}

type captureAudit struct {
	entries []audit.Entry
}

func (c *captureAudit) Append(ctx context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

func newTestService(store *memoryStore) (*Service, *captureAudit) {
	auditor := &captureAudit{}
	ledgerService := ledger.NewService(nil, auditor, nil)
	return NewService(store, store, ledgerService, auditor, nil), auditor
}

func TestCreateOrderDeductsStockSequentially(t *testing.T) {
	store := newMemoryStore()
	store.products[1] = ledger.Product{ID: 1, StockQuantity: 100, CostPrice: 40, UnitPrice: 60, CompanyID: 3}
	svc, auditor := newTestService(store)
	ctx := context.Background()

	// Two lines hit the same product; the second must see the first's write.
	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		CompanyID:     3,
		CustomerID:    11,
		SalesPersonID: 5,
		ShippingCost:  10,
		Items: []OrderItemInput{
			{ProductID: 1, Quantity: 30},
			{ProductID: 1, Quantity: 20, Discount: 50, Tax: 25},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)

	require.InDelta(t, 60*30+60*20, order.Subtotal, 0.0001)
	require.InDelta(t, 50.0, order.TotalDiscount, 0.0001)
	require.InDelta(t, 25.0, order.TotalTax, 0.0001)
	require.InDelta(t, order.Subtotal-50+25+10, order.GrandTotal, 0.0001)
	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, PaymentPending, order.PaymentStatus)

	require.Len(t, store.movements, 2)
	require.InDelta(t, 100.0, store.movements[0].StockBefore, 0.0001)
	require.InDelta(t, 70.0, store.movements[0].StockAfter, 0.0001)
	require.InDelta(t, 70.0, store.movements[1].StockBefore, 0.0001)
	require.InDelta(t, 50.0, store.movements[1].StockAfter, 0.0001)
	require.Equal(t, "Sales reservation", store.movements[0].Reason)
	require.Equal(t, order.OrderNumber, store.movements[0].ReferenceID)

	require.InDelta(t, 50.0, store.products[1].StockQuantity, 0.0001)

	// One order creation entry plus one per movement.
	require.Len(t, auditor.entries, 3)
	require.Equal(t, "sales:create", auditor.entries[0].Action)
}

func TestCreateOrderUnknownProductLeavesNoWrites(t *testing.T) {
	store := newMemoryStore()
	store.products[1] = ledger.Product{ID: 1, StockQuantity: 10, UnitPrice: 5, CompanyID: 1}
	svc, auditor := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CompanyID:     1,
		CustomerID:    1,
		SalesPersonID: 1,
		Items: []OrderItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 999, Quantity: 1},
		},
	})
	require.ErrorIs(t, err, ledger.ErrProductNotFound)
	require.Empty(t, store.orders)
	require.Empty(t, store.movements)
	require.InDelta(t, 10.0, store.products[1].StockQuantity, 0.0001)
	require.Empty(t, auditor.entries)
}

func TestCreateOrderUsesSuppliedUnitPrice(t *testing.T) {
	store := newMemoryStore()
	store.products[1] = ledger.Product{ID: 1, StockQuantity: 10, UnitPrice: 100, CompanyID: 1}
	svc, _ := newTestService(store)

	override := 80.0
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CompanyID:     1,
		CustomerID:    1,
		SalesPersonID: 1,
		Items: []OrderItemInput{
			{ProductID: 1, Quantity: 2, UnitPrice: &override},
		},
	})
	require.NoError(t, err)
	require.InDelta(t, 80.0, order.Lines[0].UnitPrice, 0.0001)
	require.InDelta(t, 160.0, order.Lines[0].TotalPrice, 0.0001)
}

func TestCreateOrderRequiresItems(t *testing.T) {
	store := newMemoryStore()
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{CompanyID: 1, CustomerID: 1, SalesPersonID: 1})
	require.Error(t, err)
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	number := NewOrderNumber(now)
	require.Regexp(t, regexp.MustCompile(`^SO-20260314-150926-[0-9A-F]{8}$`), number)

	other := NewOrderNumber(now)
	require.NotEqual(t, number, other)
}
