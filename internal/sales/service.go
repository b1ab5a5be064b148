package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrNotFound indicates a missing sales transaction.
var ErrNotFound = fmt.Errorf("sales: order: %w", shared.ErrNotFound)

// LedgerPort is the slice of the ledger service the order processor uses.
// RecordMovementTx runs on the caller-supplied transaction handle so stock
// reservations commit or roll back together with the order.
type LedgerPort interface {
	RecordMovementTx(ctx context.Context, tx ledger.TxRepository, input ledger.MovementInput) (ledger.StockMovement, error)
	AppendMovementAudit(ctx context.Context, movement ledger.StockMovement)
}

// ProductPort resolves products for pricing, outside any transaction.
type ProductPort interface {
	GetProduct(ctx context.Context, productID int64) (ledger.Product, error)
}

// AuditPort appends best-effort audit entries.
type AuditPort interface {
	Append(ctx context.Context, entry audit.Entry)
}

// TxRepository exposes the order writes plus the ledger handle bound to the
// same storage transaction.
type TxRepository interface {
	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	Ledger() ledger.TxRepository
}

// RepositoryPort abstracts sales persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error)
}

// Service processes sales orders.
type Service struct {
	repo     RepositoryPort
	products ProductPort
	ledger   LedgerPort
	audit    AuditPort
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductPort, ledgerPort LedgerPort, auditPort AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, products: products, ledger: ledgerPort, audit: auditPort, logger: logger}
}

// CreateOrder prices the requested items, persists the sales transaction and
// reserves stock for every line inside one storage transaction. On any
// failure nothing survives: no order, no lines, no stock movements.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, errors.New("sales: at least one item required")
	}

	// Pricing resolution is read-only and safe to run concurrently. Any
	// unresolved product aborts before a single write happens.
	resolved := make([]ledger.Product, len(input.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i := range input.Items {
		g.Go(func() error {
			product, err := s.products.GetProduct(gctx, input.Items[i].ProductID)
			if err != nil {
				return err
			}
			resolved[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := Order{
		OrderNumber:     NewOrderNumber(now),
		CustomerID:      input.CustomerID,
		SalesPersonID:   input.SalesPersonID,
		ShippingCost:    input.ShippingCost,
		Status:          StatusDraft,
		PaymentStatus:   PaymentPending,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		Notes:           input.Notes,
		CompanyID:       input.CompanyID,
	}
	for i, item := range input.Items {
		unitPrice := resolved[i].UnitPrice
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		order.Lines = append(order.Lines, Line{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  unitPrice,
			Discount:   item.Discount,
			Tax:        item.Tax,
			TotalPrice: unitPrice*item.Quantity - item.Discount + item.Tax,
		})
	}
	order.Recalculate()

	var orderID int64
	var movements []ledger.StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID = id

		for i := range order.Lines {
			order.Lines[i].OrderID = id
			lineID, err := tx.InsertLine(ctx, order.Lines[i])
			if err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
			order.Lines[i].ID = lineID
		}

		// Stock deductions run strictly sequentially: two lines may hit the
		// same product and the second must observe the first one's write.
		for _, line := range order.Lines {
			movement, err := s.ledger.RecordMovementTx(ctx, tx.Ledger(), ledger.MovementInput{
				ProductID:     line.ProductID,
				Type:          ledger.MovementOut,
				Quantity:      line.Quantity,
				Reason:        "Sales reservation",
				ReferenceType: "sales_transaction",
				ReferenceID:   order.OrderNumber,
				RelatedDocuments: []ledger.RelatedDocument{
					{Kind: "sales_transaction", ID: strconv.FormatInt(id, 10)},
				},
				ProcessedBy: input.SalesPersonID,
				CompanyID:   input.CompanyID,
			})
			if err != nil {
				return fmt.Errorf("reserve stock: %w", err)
			}
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.appendCreationAudit(ctx, orderID, order)
	for _, movement := range movements {
		s.ledger.AppendMovementAudit(ctx, movement)
	}

	return s.repo.GetOrder(ctx, orderID)
}

// GetOrder retrieves a sales transaction with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns a paginated list of sales transactions.
func (s *Service) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error) {
	return s.repo.ListOrders(ctx, filter)
}

func (s *Service) appendCreationAudit(ctx context.Context, orderID int64, order Order) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, audit.Entry{
		Action:   "sales:create",
		Entity:   "sales_transaction",
		EntityID: strconv.FormatInt(orderID, 10),
		ActorID:  order.SalesPersonID,
		NewState: map[string]any{
			"order_number": order.OrderNumber,
			"customer_id":  order.CustomerID,
			"grand_total":  order.GrandTotal,
			"items":        len(order.Lines),
		},
		Severity:  audit.SeverityInfo,
		CompanyID: order.CompanyID,
	})
}
