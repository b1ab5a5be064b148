package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

// NewRepository constructs Repository. txTimeout bounds every transaction
// opened through WithTx; zero selects the platform default.
func NewRepository(pool *pgxpool.Pool, txTimeout time.Duration) *Repository {
	return &Repository{pool: pool, txTimeout: txTimeout}
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository wraps an existing pgx transaction so nested callers can
// record movements inside their own unit of work.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, r.txTimeout, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const productColumns = `id, sku, stock_quantity, cost_price, unit_price, reorder_point, company_id, updated_by, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p         Product
		updatedBy *int64
	)
	err := row.Scan(&p.ID, &p.SKU, &p.StockQuantity, &p.CostPrice, &p.UnitPrice,
		&p.ReorderPoint, &p.CompanyID, &updatedBy, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	// Products are seeded outside the ledger; updated_by stays NULL until the
	// first movement touches the row.
	if updatedBy != nil {
		p.UpdatedBy = *updatedBy
	}
	return p, nil
}

// GetProduct returns a product without locking it.
func (r *Repository) GetProduct(ctx context.Context, productID int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
	return scanProduct(row)
}

// ListBelowReorderPoint returns products whose stock fell to or below their
// reorder point. Used by the low-stock scan job.
func (r *Repository) ListBelowReorderPoint(ctx context.Context, companyID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+`
FROM products
WHERE company_id = $1 AND reorder_point > 0 AND stock_quantity <= reorder_point
ORDER BY stock_quantity ASC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListMovements returns ledger entries newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	where := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.ProductID != 0 {
		add("product_id = $%d", filter.ProductID)
	}
	if filter.Type != "" {
		add("movement_type = $%d", string(filter.Type))
	}
	if !filter.From.IsZero() {
		add("occurred_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("occurred_at <= $%d", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT id, product_id, warehouse_from_id, warehouse_to_id, movement_type,
quantity, unit_cost, total_value, stock_before, stock_after, reason, reference_type, reference_id,
related_documents, batch_number, expiry_date, processed_by, approved_by, is_approved, company_id, occurred_at
FROM stock_movements
WHERE %s
ORDER BY occurred_at DESC, id DESC
LIMIT $%d`, strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var (
			m           StockMovement
			movType     string
			relatedRaw  []byte
			batchNumber *string
			refType     *string
			refID       *string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseFromID, &m.WarehouseToID, &movType,
			&m.Quantity, &m.UnitCost, &m.TotalValue, &m.StockBefore, &m.StockAfter, &m.Reason,
			&refType, &refID, &relatedRaw, &batchNumber, &m.ExpiryDate,
			&m.ProcessedBy, &m.ApprovedBy, &m.IsApproved, &m.CompanyID, &m.OccurredAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(movType)
		if refType != nil {
			m.ReferenceType = *refType
		}
		if refID != nil {
			m.ReferenceID = *refID
		}
		if batchNumber != nil {
			m.BatchNumber = *batchNumber
		}
		if len(relatedRaw) > 0 {
			_ = json.Unmarshal(relatedRaw, &m.RelatedDocuments)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (t *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, productID)
	return scanProduct(row)
}

func (t *txRepo) UpdateProductStock(ctx context.Context, productID int64, quantity float64, updatedBy int64) error {
	cmdTag, err := t.tx.Exec(ctx, `UPDATE products
SET stock_quantity = $1, updated_by = $2, updated_at = $3
WHERE id = $4`, quantity, updatedBy, time.Now().UTC(), productID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (t *txRepo) InsertMovement(ctx context.Context, m StockMovement) (int64, error) {
	relatedJSON, err := json.Marshal(m.RelatedDocuments)
	if err != nil {
		return 0, err
	}
	query := `
		INSERT INTO stock_movements (
			product_id, warehouse_from_id, warehouse_to_id, movement_type,
			quantity, unit_cost, total_value, stock_before, stock_after,
			reason, reference_type, reference_id, related_documents,
			batch_number, expiry_date, processed_by, approved_by, is_approved,
			company_id, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`
	var id int64
	err = t.tx.QueryRow(ctx, query,
		m.ProductID, m.WarehouseFromID, m.WarehouseToID, string(m.Type),
		m.Quantity, m.UnitCost, m.TotalValue, m.StockBefore, m.StockAfter,
		m.Reason, m.ReferenceType, m.ReferenceID, relatedJSON,
		m.BatchNumber, m.ExpiryDate, m.ProcessedBy, m.ApprovedBy, m.IsApproved,
		m.CompanyID, m.OccurredAt,
	).Scan(&id)
	return id, err
}
