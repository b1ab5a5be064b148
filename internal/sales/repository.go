package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for sales transactions.
type Repository struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, txTimeout time.Duration) *Repository {
	return &Repository{pool: pool, txTimeout: txTimeout}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction shared with the
// ledger handle exposed by TxRepository.Ledger.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, r.txTimeout, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) Ledger() ledger.TxRepository {
	return ledger.NewTxRepository(t.tx)
}

func (t *txRepo) InsertOrder(ctx context.Context, order Order) (int64, error) {
	query := `
		INSERT INTO sales_transactions (
			order_number, customer_id, sales_person_id, subtotal, total_discount,
			total_tax, shipping_cost, grand_total, status, payment_status,
			shipping_address, billing_address, notes, company_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		order.OrderNumber, order.CustomerID, order.SalesPersonID, order.Subtotal, order.TotalDiscount,
		order.TotalTax, order.ShippingCost, order.GrandTotal, string(order.Status), string(order.PaymentStatus),
		order.ShippingAddress, order.BillingAddress, order.Notes, order.CompanyID,
	).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	query := `
		INSERT INTO sales_transaction_lines (
			transaction_id, product_id, quantity, unit_price, discount, tax, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.Discount, line.Tax, line.TotalPrice,
	).Scan(&id)
	return id, err
}

const orderColumns = `id, order_number, customer_id, sales_person_id, subtotal, total_discount,
total_tax, shipping_cost, grand_total, status, payment_status,
shipping_address, billing_address, notes, company_id, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                     Order
		status, paymentStatus string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.SalesPersonID, &o.Subtotal, &o.TotalDiscount,
		&o.TotalTax, &o.ShippingCost, &o.GrandTotal, &status, &paymentStatus,
		&o.ShippingAddress, &o.BillingAddress, &o.Notes, &o.CompanyID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.PaymentStatus = PaymentStatus(paymentStatus)
	return o, nil
}

// GetOrder loads one sales transaction with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_transactions WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, product_id, quantity, unit_price, discount, tax, total_price
FROM sales_transaction_lines WHERE transaction_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity,
			&line.UnitPrice, &line.Discount, &line.Tax, &line.TotalPrice); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns orders matching the filter plus the total count.
func (r *Repository) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error) {
	where := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.CustomerID != nil {
		add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.DateFrom != nil {
		add("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("created_at <= $%d", *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM sales_transactions WHERE %s`, whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT `+orderColumns+`
FROM sales_transactions
WHERE %s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}
